// Package scheduler runs one recurring check-and-notify job per
// subscribed chat.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"daypass-monitor/classifier"
	"daypass-monitor/models"
)

// Fetcher fetches an availability report for a date range
type Fetcher interface {
	FetchAvailability(ctx context.Context, startDate time.Time, daysToCheck int) (*models.AvailabilityReport, error)
}

// Notifier delivers a (possibly empty) set of flagged fare cells to a
// subscriber. Rendering is entirely the notifier's business.
type Notifier interface {
	Notify(chatID int64, flagged []models.FareCell)
}

// Options configures the scheduler's timing. Zero values fall back to the
// production schedule: first tick a few seconds after subscribing, then
// one tick every 24 hours.
type Options struct {
	InitialDelay time.Duration
	Interval     time.Duration
	FetchTimeout time.Duration
}

// subscription is one active monitor entry. days may be replaced by a
// re-subscribe while the job keeps running.
type subscription struct {
	days   int
	cancel context.CancelFunc
}

// Scheduler owns the subscription map and the per-subscriber jobs.
// The map is the only shared mutable state; every read or write goes
// through mu.
type Scheduler struct {
	mu         sync.Mutex
	subs       map[int64]*subscription
	fetcher    Fetcher
	classifier *classifier.Classifier
	notifier   Notifier
	logger     zerolog.Logger

	initialDelay time.Duration
	interval     time.Duration
	fetchTimeout time.Duration

	// now is injectable for tests
	now func() time.Time
}

// New creates a Scheduler
func New(fetcher Fetcher, cl *classifier.Classifier, notifier Notifier, opts Options, logger zerolog.Logger) *Scheduler {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 5 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Minute
	}
	return &Scheduler{
		subs:         make(map[int64]*subscription),
		fetcher:      fetcher,
		classifier:   cl,
		notifier:     notifier,
		logger:       logger,
		initialDelay: opts.InitialDelay,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
		now:          time.Now,
	}
}

// Subscribe starts monitoring daysToCheck days for chatID. Re-subscribing
// an already active chat only replaces its day count; the running job is
// kept, so there is never more than one job per chat.
func (s *Scheduler) Subscribe(chatID int64, daysToCheck int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[chatID]; ok {
		sub.days = daysToCheck
		s.logger.Info().Int64("chat_id", chatID).Int("days", daysToCheck).
			Msg("Subscription updated")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.subs[chatID] = &subscription{days: daysToCheck, cancel: cancel}
	go s.run(ctx, chatID)

	s.logger.Info().Int64("chat_id", chatID).Int("days", daysToCheck).
		Msg("Subscription started")
}

// Unsubscribe stops monitoring for chatID. It reports whether a job was
// actually found and cancelled. After it returns no new tick starts for
// the chat; a tick already in flight may still complete and deliver.
func (s *Scheduler) Unsubscribe(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[chatID]
	if !ok {
		return false
	}
	sub.cancel()
	delete(s.subs, chatID)
	s.logger.Info().Int64("chat_id", chatID).Msg("Subscription stopped")
	return true
}

// Active reports whether chatID currently has a monitor job
func (s *Scheduler) Active(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[chatID]
	return ok
}

// Stop cancels every outstanding job. No tick starts after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, sub := range s.subs {
		sub.cancel()
		delete(s.subs, chatID)
	}
	s.logger.Info().Msg("Scheduler stopped")
}

// run drives one subscriber's schedule: first tick after the initial
// delay, then one per interval measured from scheduling time. Each tick
// runs in its own goroutine so a slow fetch never delays the next firing;
// overlapping ticks for the same chat are tolerated.
func (s *Scheduler) run(ctx context.Context, chatID int64) {
	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()

	select {
	case <-ctx.Done():
		return
	case <-initial.C:
		go s.tick(chatID)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.tick(chatID)
		}
	}
}

// tick performs one fetch-classify-notify cycle for chatID. A chat that
// raced with Unsubscribe is skipped. Fetch failures are logged and
// swallowed here; the next scheduled tick retries naturally.
func (s *Scheduler) tick(chatID int64) {
	s.mu.Lock()
	sub, ok := s.subs[chatID]
	var days int
	if ok {
		days = sub.days
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	// The tick context is deliberately not derived from the job context:
	// cancellation is best effort and an in-flight fetch may finish.
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	startDate := s.now().AddDate(0, 0, 1)
	report, err := s.fetcher.FetchAvailability(ctx, startDate, days)
	if err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Int("days", days).
			Msg("Scheduled availability check failed")
		return
	}

	flagged := s.classifier.Classify(report)
	s.logger.Info().Int64("chat_id", chatID).Int("days", days).
		Int("flagged", len(flagged)).Msg("Scheduled availability check completed")

	s.notifier.Notify(chatID, flagged)
}
