package poller_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/poller"
	"github.com/tidepool-org/vitals/readings"
	readingsTest "github.com/tidepool-org/vitals/readings/test"
	"github.com/tidepool-org/vitals/series"
)

type recorder struct {
	mu      sync.Mutex
	updates []poller.Update
}

func (r *recorder) record(update poller.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *recorder) Updates() []poller.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]poller.Update{}, r.updates...)
}

func (r *recorder) Count() int {
	return len(r.Updates())
}

func (r *recorder) Last() poller.Update {
	updates := r.Updates()
	Expect(updates).ToNot(BeEmpty())
	return updates[len(updates)-1]
}

var _ = Describe("Poller", func() {
	var updates *recorder
	var band readings.Band
	var start time.Time
	var logger *zap.SugaredLogger

	BeforeEach(func() {
		updates = &recorder{}
		band = readings.Band{Min: 1800, Max: 2000}
		start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		logger = zap.NewNop().Sugar()
	})

	It("fetches immediately after start", func() {
		rs := readingsTest.RandomReadings(start, time.Second, 5, band)
		p := poller.New(time.Hour, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			return rs, nil
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())
		DeferCleanup(p.Stop)

		Eventually(updates.Updates).Should(HaveLen(1))
		Expect(updates.Last().Readings).To(Equal(rs))
		Expect(updates.Last().Generation).To(Equal(uint64(1)))
		Expect(p.Readings()).To(Equal(rs))
	})

	It("fetches on every interval with increasing generations", func() {
		var count atomic.Int32
		p := poller.New(10*time.Millisecond, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			count.Add(1)
			return []readings.Reading{}, nil
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())
		DeferCleanup(p.Stop)

		Eventually(updates.Count).Should(BeNumerically(">=", 3))
		all := updates.Updates()
		for i := 1; i < len(all); i++ {
			Expect(all[i].Generation).To(BeNumerically(">", all[i-1].Generation))
		}
	})

	It("refuses to start twice", func() {
		p := poller.New(time.Hour, series.Recent(time.Hour), func(ctx context.Context) ([]readings.Reading, error) {
			return nil, nil
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())
		DeferCleanup(p.Stop)

		Expect(p.Start(context.Background())).To(MatchError(poller.ErrAlreadyStarted))
	})

	It("discards the result of a fetch superseded by a window change", func() {
		stale := readingsTest.RandomReadings(start, time.Second, 3, band)
		fresh := readingsTest.RandomReadings(start.Add(time.Minute), time.Second, 4, band)
		release := make(chan struct{})
		staleDone := make(chan struct{})

		var calls atomic.Int32
		p := poller.New(time.Hour, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			if calls.Add(1) == 1 {
				defer close(staleDone)
				<-release
				return stale, nil
			}
			return fresh, nil
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())
		DeferCleanup(p.Stop)

		Eventually(calls.Load).Should(Equal(int32(1)))
		p.SetWindow(series.Recent(time.Hour))

		Eventually(updates.Updates).Should(HaveLen(1))
		Expect(updates.Last().Readings).To(Equal(fresh))
		Expect(updates.Last().Window).To(Equal(series.Recent(time.Hour)))

		close(release)
		Eventually(staleDone).Should(BeClosed())
		Consistently(updates.Updates, 50*time.Millisecond).Should(HaveLen(1))
		Expect(p.Readings()).To(Equal(fresh))
		Expect(p.Window()).To(Equal(series.Recent(time.Hour)))
	})

	It("keeps the previous readings when a fetch fails", func() {
		rs := readingsTest.RandomReadings(start, time.Second, 5, band)
		fetchErr := errors.New("upstream unavailable")

		var calls atomic.Int32
		p := poller.New(10*time.Millisecond, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			if calls.Add(1) == 1 {
				return rs, nil
			}
			return nil, fetchErr
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())
		DeferCleanup(p.Stop)

		Eventually(updates.Count).Should(BeNumerically(">=", 2))
		last := updates.Last()
		Expect(last.Err).To(MatchError(fetchErr))
		Expect(last.Readings).To(Equal(rs))
		Expect(p.Readings()).To(Equal(rs))
	})

	It("cancels fetches in flight and waits for them on stop", func() {
		var exited atomic.Bool
		fetching := make(chan struct{})
		p := poller.New(time.Hour, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			close(fetching)
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			exited.Store(true)
			return nil, ctx.Err()
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())

		Eventually(fetching).Should(BeClosed())
		p.Stop()

		Expect(exited.Load()).To(BeTrue())
		Expect(updates.Updates()).To(BeEmpty())
	})

	It("delivers nothing after stop", func() {
		var count atomic.Int32
		p := poller.New(5*time.Millisecond, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			count.Add(1)
			return []readings.Reading{}, nil
		}, updates.record, logger)
		Expect(p.Start(context.Background())).To(Succeed())

		Eventually(updates.Count).Should(BeNumerically(">=", 2))
		p.Stop()
		delivered := len(updates.Updates())
		fetched := count.Load()

		Consistently(updates.Updates, 50*time.Millisecond).Should(HaveLen(delivered))
		Expect(count.Load()).To(Equal(fetched))
		p.Stop()
	})

	It("stops when the parent context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		p := poller.New(5*time.Millisecond, series.Recent(30*time.Minute), func(ctx context.Context) ([]readings.Reading, error) {
			return []readings.Reading{}, nil
		}, updates.record, logger)
		Expect(p.Start(ctx)).To(Succeed())
		Eventually(updates.Updates).ShouldNot(BeEmpty())

		cancel()
		done := make(chan struct{})
		go func() {
			p.Stop()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})
})
