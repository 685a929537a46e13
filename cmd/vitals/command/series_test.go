package command

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

var _ = Describe("Series command", func() {
	var cfg series.Config
	var now time.Time

	BeforeEach(func() {
		cfg = series.DefaultConfig()
		cfg.AbnormalBand = readings.Band{Min: 60, Max: 100}
		cfg.Location = time.UTC
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	It("prints the points and statistics", func() {
		rs := []readings.Reading{
			{Timestamp: now.Add(-2 * time.Minute), Value: 72},
			{Timestamp: now.Add(-time.Minute), Value: 130},
		}
		s := &monitor.Series{
			Title: "Heart Rate",
			Unit:  "bpm",
			View:  series.Compute(rs, series.Recent(30*time.Minute), now, cfg),
		}

		out := &bytes.Buffer{}
		Expect(writeSeries(out, s)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Heart Rate (bpm), window 30m"))
		Expect(out.String()).To(ContainSubstring("11:58:00"))
		Expect(out.String()).To(MatchRegexp(`11:59:00\s+130\s+1\s+Abnormal`))
		Expect(out.String()).To(ContainSubstring("1 of 2 abnormal"))
	})

	It("prints a notice for empty windows", func() {
		s := &monitor.Series{
			Title: "Heart Rate",
			Unit:  "bpm",
			View:  series.Compute(nil, series.Recent(30*time.Minute), now, cfg),
		}

		out := &bytes.Buffer{}
		Expect(writeSeries(out, s)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No readings in the selected window"))
	})

	It("parses custom window bounds", func() {
		from, err := parseTime("2024-03-01T10:00:00Z")
		Expect(err).ToNot(HaveOccurred())
		Expect(from.Hour()).To(Equal(10))

		empty, err := parseTime("")
		Expect(err).ToNot(HaveOccurred())
		Expect(empty).To(BeNil())

		_, err = parseTime("yesterday")
		Expect(err).To(HaveOccurred())
	})
})
