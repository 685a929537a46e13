package alerts_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/alerts"
	alertsTest "github.com/tidepool-org/vitals/alerts/test"
	"github.com/tidepool-org/vitals/readings"
	readingsTest "github.com/tidepool-org/vitals/readings/test"
)

var _ = Describe("Tracker", func() {
	var ctrl *gomock.Controller
	var repo *alertsTest.MockRepository
	var tracker *alerts.Tracker
	var patientId string
	var band readings.Band
	var start time.Time

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		repo = alertsTest.NewMockRepository(ctrl)
		patientId = readingsTest.RandomPatientId()
		band = readings.Band{Min: 60, Max: 100}
		start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		tracker = alerts.NewTracker(repo, patientId, readings.MetricHeartRate, zap.NewNop().Sugar())
	})

	It("records abnormal readings as events", func() {
		rs := []readings.Reading{
			{Timestamp: start, Value: 72},
			{Timestamp: start.Add(time.Second), Value: 130},
			{Timestamp: start.Add(2 * time.Second), Value: 100},
			{Timestamp: start.Add(3 * time.Second), Value: 45},
		}
		repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		events, err := tracker.Observe(context.Background(), rs, band)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Value).To(Equal(130.0))
		Expect(events[0].PatientId).To(Equal(patientId))
		Expect(events[0].Metric).To(Equal(readings.MetricHeartRate))
		Expect(events[0].Band).To(Equal(band))
		Expect(events[0].Id).ToNot(BeEmpty())
		Expect(events[1].Value).To(Equal(45.0))
		Expect(events[1].Timestamp).To(Equal(start.Add(3 * time.Second)))
	})

	It("ignores readings already observed", func() {
		first := []readings.Reading{
			{Timestamp: start, Value: 130},
		}
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		_, err := tracker.Observe(context.Background(), first, band)
		Expect(err).ToNot(HaveOccurred())

		second := append(first, readings.Reading{Timestamp: start.Add(time.Second), Value: 140})
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, events ...alerts.Event) error {
			Expect(events).To(HaveLen(1))
			Expect(events[0].Value).To(Equal(140.0))
			return nil
		})
		events, err := tracker.Observe(context.Background(), second, band)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(1))
	})

	It("does not write when every new reading is normal", func() {
		rs := readingsTest.RandomReadings(start, time.Second, 10, band)

		events, err := tracker.Observe(context.Background(), rs, band)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("skips malformed readings", func() {
		rs := []readings.Reading{
			{Value: 500},
		}

		events, err := tracker.Observe(context.Background(), rs, band)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("observes the batch again after a failed write", func() {
		rs := []readings.Reading{
			{Timestamp: start, Value: 130},
		}
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))
		_, err := tracker.Observe(context.Background(), rs, band)
		Expect(err).To(HaveOccurred())

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		events, err := tracker.Observe(context.Background(), rs, band)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(1))
	})
})
