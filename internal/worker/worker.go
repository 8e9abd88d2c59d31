// Package worker scores submitted assessments asynchronously from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellbeing/pulse/internal/assess"
	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/features"
)

// ErrStopped is returned for submissions delivered after Stop began.
var ErrStopped = errors.New("worker stopped")

// DefaultDrainTimeout bounds how long Stop waits for queued submissions.
const DefaultDrainTimeout = 30 * time.Second

// Worker consumes TopicAssessmentSubmitted, scores each submission,
// stores the result and announces the outcome.
type Worker struct {
	bus       domain.EventBus
	repo      domain.Repository
	processor *assess.Processor

	// mu guards stopping and the close of jobs against in-progress enqueues.
	mu            sync.RWMutex
	stopping      bool
	jobs          chan *domain.Message
	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	drainTimeout  time.Duration

	// ctx is cancelled only once the queue is drained or the drain timed out.
	ctx    context.Context
	cancel context.CancelFunc

	processed atomic.Uint64
	failed    atomic.Uint64
}

// Config holds worker configuration.
type Config struct {
	// InstitutionIDs to process; empty subscribes to every institution
	InstitutionIDs []string

	// WorkerCount is the number of goroutines scoring submissions
	WorkerCount int

	// DrainTimeout bounds Stop; in-flight saves are cancelled after it
	DrainTimeout time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, processor *assess.Processor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the scoring goroutines and subscribes to submissions.
func (w *Worker) Start(cfg Config) error {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	w.drainTimeout = cfg.DrainTimeout
	if w.drainTimeout <= 0 {
		w.drainTimeout = DefaultDrainTimeout
	}

	w.jobs = make(chan *domain.Message, cfg.WorkerCount*16)
	for i := 0; i < cfg.WorkerCount; i++ {
		w.wg.Add(1)
		go w.loop()
	}

	institutions := cfg.InstitutionIDs
	if len(institutions) == 0 {
		institutions = []string{domain.AnyInstitution}
	}

	for _, institutionID := range institutions {
		sub, err := w.bus.Subscribe(w.ctx, institutionID, domain.TopicAssessmentSubmitted, w.enqueue)
		if err != nil {
			slog.Error("failed to start worker for institution",
				"institution_id", institutionID,
				"error", err,
			)
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	if len(w.subscriptions) == 0 {
		w.Stop()
		return fmt.Errorf("no submission subscriptions could be created")
	}

	slog.Info("workers started",
		"institutions", institutions,
		"worker_count", cfg.WorkerCount,
	)
	return nil
}

// enqueue hands a message to the pool, waiting while every worker is busy.
// Stop cannot close the queue while a send is pending.
func (w *Worker) enqueue(_ context.Context, msg *domain.Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopping {
		return ErrStopped
	}
	select {
	case w.jobs <- msg:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// loop runs until the queue is closed and empty.
func (w *Worker) loop() {
	defer w.wg.Done()
	for msg := range w.jobs {
		if err := w.Process(w.ctx, msg); err != nil {
			w.failed.Add(1)
			continue
		}
		w.processed.Add(1)
	}
}

// Process scores one submission message.
func (w *Worker) Process(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var sub domain.SubmissionEvent
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		slog.Error("failed to parse submission",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	traceID := sub.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	resp := w.processor.Assess(sub.Answers)
	if resp.Failed() {
		slog.Warn("submission not scored",
			"message_id", msg.ID,
			"institution_id", msg.InstitutionID,
			"error", resp.Error,
		)
		return fmt.Errorf("assessment failed: %s", resp.Error)
	}

	id := sub.AssessmentID
	if id == "" {
		id = uuid.New().String()
	}
	a := domain.NewAssessment(id, msg.InstitutionID, traceID, features.Parse(sub.Answers), resp)

	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, msg.InstitutionID, a); err != nil {
			slog.Error("failed to save assessment",
				"assessment_id", a.ID,
				"error", err,
			)
			return fmt.Errorf("failed to save assessment %s: %w", a.ID, err)
		}
	}

	PublishOutcome(ctx, w.bus, a)

	slog.Info("assessment processed",
		"assessment_id", a.ID,
		"institution_id", a.InstitutionID,
		"risk_level", a.RiskLevel,
		"risk_probability", a.RiskProbability,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// PublishOutcome announces a scored assessment, and raises a high-risk
// event when the risk level is High. Failures are logged only.
func PublishOutcome(ctx context.Context, bus domain.EventBus, a *domain.Assessment) {
	if bus == nil {
		return
	}

	payload, err := json.Marshal(domain.NewOutcomeEvent(a))
	if err != nil {
		slog.Error("failed to marshal outcome", "assessment_id", a.ID, "error", err)
		return
	}

	if err := bus.Publish(ctx, a.InstitutionID, domain.TopicAssessmentScored, payload); err != nil {
		slog.Error("failed to publish outcome",
			"assessment_id", a.ID,
			"error", err,
		)
	}

	if assess.IsHighRisk(a.Response) {
		if err := bus.Publish(ctx, a.InstitutionID, domain.TopicHighRisk, payload); err != nil {
			slog.Error("failed to publish high-risk event",
				"assessment_id", a.ID,
				"error", err,
			)
		}
	}
}

// Stop unsubscribes, then scores every queued submission before returning.
// Saves still running after the drain timeout are cancelled.
func (w *Worker) Stop() error {
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	// Closing the queue waits for pending enqueues, so it runs under the
	// drain timeout as well.
	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		if !w.stopping {
			w.stopping = true
			if w.jobs != nil {
				close(w.jobs)
			}
		}
		w.mu.Unlock()
		w.wg.Wait()
		close(done)
	}()

	timeout := w.drainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("drain timed out, cancelling in-flight submissions", "timeout", timeout)
		w.cancel()
		<-done
	}
	w.cancel()

	slog.Info("workers stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         uint64   `json:"processed"`
	Failed            uint64   `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
