package scheduler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/outcomelog"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo/file"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingNotifier) Send(ctx context.Context, owner, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, owner+": "+message)
	return nil
}

func (r *recordingNotifier) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

const checkID = "w0rk3rch3ck000000001"

var _ = Describe("Worker", func() {
	var (
		status   atomic.Int64
		target   *httptest.Server
		store    *memory.Store
		sink     *file.LogSink
		notifier *recordingNotifier
		worker   *scheduler.Worker
		cancel   context.CancelFunc
		done     chan struct{}
	)

	storedState := func() domain.State {
		raw, err := store.Read(context.Background(), checkID)
		Expect(err).NotTo(HaveOccurred())
		var c domain.Check
		Expect(json.Unmarshal(raw, &c)).To(Succeed())
		return c.State
	}

	BeforeEach(func() {
		status.Store(http.StatusOK)
		target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(int(status.Load()))
		}))

		store = memory.New()
		raw, _ := json.Marshal(map[string]any{
			"id":             checkID,
			"userPhone":      "55551234",
			"protocol":       "http",
			"url":            strings.TrimPrefix(target.URL, "http://") + "/health",
			"method":         "GET",
			"successCodes":   []int{200},
			"timeoutSeconds": 1,
		})
		store.Put(checkID, raw)

		var err error
		sink, err = file.NewLogSink(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		notifier = &recordingNotifier{}
		log := zap.NewNop()
		proc := scheduler.NewProcessor(log, store, outcomelog.NewLogger(sink), notifier)
		rc := scheduler.NewRechecker(log, store, probe.NewHTTPExecutor("uptimeworker-test"), proc, 20*time.Millisecond, 4)
		lr := scheduler.NewLogRotator(log, outcomelog.NewRotator(sink, log), 150*time.Millisecond)
		worker = scheduler.NewWorker(log, rc, lr)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			worker.Run(ctx)
		}()
	})

	AfterEach(func() {
		cancel()
		Eventually(done, 2*time.Second).Should(BeClosed())
		target.Close()
	})

	It("marks a healthy check up without alerting on the first run", func() {
		Eventually(storedState, 2*time.Second).Should(Equal(domain.StateUp))
		Consistently(notifier.Sent, 100*time.Millisecond).Should(BeEmpty())
	})

	It("alerts the owner once when the target starts failing", func() {
		Eventually(storedState, 2*time.Second).Should(Equal(domain.StateUp))

		status.Store(http.StatusServiceUnavailable)
		Eventually(storedState, 2*time.Second).Should(Equal(domain.StateDown))
		Eventually(notifier.Sent, time.Second).Should(HaveLen(1))
		Consistently(notifier.Sent, 150*time.Millisecond).Should(HaveLen(1))

		Expect(notifier.Sent()[0]).To(HavePrefix("55551234: Alert: Your check for GET http://"))
		Expect(notifier.Sent()[0]).To(HaveSuffix("is currently down"))
	})

	It("rotates outcome logs into archives while checks keep running", func() {
		archives := func() []string {
			ids, err := sink.List(context.Background(), true)
			Expect(err).NotTo(HaveOccurred())
			var out []string
			for _, id := range ids {
				if strings.HasPrefix(id, checkID+"-") {
					out = append(out, id)
				}
			}
			return out
		}
		archived := func() string {
			var all strings.Builder
			for _, id := range archives() {
				data, err := sink.ReadArchive(context.Background(), id)
				Expect(err).NotTo(HaveOccurred())
				all.Write(data)
			}
			return all.String()
		}
		Eventually(archived, 2*time.Second).Should(ContainSubstring(`"attempt"`))
		Expect(storedState()).To(Equal(domain.StateUp))
	})
})

var _ = Describe("LogRotator", func() {
	It("does nothing when the interval is zero", func() {
		calls := &countingRotator{}
		lr := scheduler.NewLogRotator(zap.NewNop(), calls, 0)
		lr.Run(context.Background())
		Expect(calls.n.Load()).To(BeZero())
	})

	It("rotates immediately and then on every tick", func() {
		calls := &countingRotator{}
		lr := scheduler.NewLogRotator(zap.NewNop(), calls, 10*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go lr.Run(ctx)

		Eventually(calls.n.Load).Should(BeNumerically(">=", 3))
	})
})

type countingRotator struct{ n atomic.Int64 }

func (c *countingRotator) Rotate(ctx context.Context) error {
	c.n.Add(1)
	return nil
}
