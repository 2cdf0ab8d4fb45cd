package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
	"github.com/sonaskin/storefront-backend/pkg/outbox"
	"github.com/sonaskin/storefront-backend/pkg/outbox/registry"
)

const (
	sinkTimeout = 15 * time.Second

	// idle polling backs off up to maxIdleBackoff after batch errors
	maxIdleBackoff = 10 * time.Second
	pollJitter     = 250 * time.Millisecond

	// per-row retry schedule: retryBase doubled per attempt, capped, plus up to
	// a fifth of the delay as jitter
	retryBase     = 5 * time.Second
	maxRetryDelay = 10 * time.Minute
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, nextAttemptAt time.Time) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sinkGuard remembers which sinks already took an event so a retry only
// redelivers to the ones that failed.
type sinkGuard interface {
	CheckAndMarkDelivered(ctx context.Context, sink string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, sink string, eventID uuid.UUID) error
}

// Dependency is pinged once before the relay starts polling.
type Dependency struct {
	Name string
	Ping func(context.Context) error
}

type RelayParams struct {
	Outbox       config.OutboxConfig
	Logger       *logger.Logger
	DB           txRunner
	Events       eventStore
	DeadLetters  deadLetters
	Registry     resolver
	Sinks        []outbox.Sink
	Guard        sinkGuard
	Metrics      *metrics.OutboxMetrics
	Dependencies []Dependency
}

// Relay moves committed outbox rows to their sinks. Each batch runs in one
// transaction so row locks are held until the row is marked.
type Relay struct {
	logg    *logger.Logger
	db      txRunner
	events  eventStore
	dead    deadLetters
	reg     resolver
	sinks   map[string]outbox.Sink
	guard   sinkGuard
	metrics *metrics.OutboxMetrics
	deps    []Dependency

	batch       int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
	jitter      func(time.Duration) time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	var missing []string
	for name, ok := range map[string]bool{
		"logger":       p.Logger != nil,
		"db":           p.DB != nil,
		"events":       p.Events != nil,
		"dead letters": p.DeadLetters != nil,
		"registry":     p.Registry != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("outbox relay: missing %v", missing)
	}

	sinks := make(map[string]outbox.Sink, len(p.Sinks))
	for _, s := range p.Sinks {
		if s != nil {
			sinks[s.Name()] = s
		}
	}
	if len(sinks) == 0 {
		return nil, errors.New("outbox relay: no sinks configured")
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		events:      p.Events,
		dead:        p.DeadLetters,
		reg:         p.Registry,
		sinks:       sinks,
		guard:       p.Guard,
		metrics:     p.Metrics,
		deps:        p.Dependencies,
		batch:       p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
		now:         time.Now,
		jitter:      withJitter,
	}
	if r.batch <= 0 {
		r.batch = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.poll <= 0 {
		r.poll = time.Second
	}
	return r, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by the next one.
func (r *Relay) Run(ctx context.Context) error {
	deps := append([]Dependency{{Name: "database", Ping: r.db.Ping}}, r.deps...)
	for _, dep := range deps {
		if dep.Ping == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", dep.Name, err)
		}
	}

	wait := r.poll
	for ctx.Err() == nil {
		busy, err := r.processBatch(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case busy:
			wait = r.poll
			continue
		default:
			wait = r.poll
		}
		if err := sleep(ctx, wait+withJitter(pollJitter)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// processBatch reports whether any row was picked up.
func (r *Relay) processBatch(ctx context.Context) (bool, error) {
	picked := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := r.now().UTC()
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batch, r.maxAttempts, now)
		if err != nil {
			return err
		}
		picked = len(rows) > 0
		for _, row := range rows {
			if err := r.relay(ctx, tx, row, now); err != nil {
				return err
			}
		}
		return nil
	})
	return picked, err
}

// relay delivers one row and records the outcome. Only bookkeeping errors are returned.
func (r *Relay) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, now time.Time) error {
	eventType := string(row.EventType)
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   eventType,
		"aggregate_id": row.AggregateID.String(),
		"attempt":      row.AttemptCount + 1,
	})

	resolved, err := r.reg.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}

	deliverErr := r.fanOut(ctx, row, resolved)
	switch {
	case deliverErr == nil:
		if err := r.events.MarkPublishedTx(tx, row.ID, r.now().UTC()); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(ctx, "outbox event published")
		return nil
	case registry.IsNonRetryable(deliverErr):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, deliverErr)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, deliverErr))
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", deliverErr.Error()), "outbox delivery failed, will retry")
	r.metrics.IncFailed(eventType)
	if err := r.events.MarkFailedTx(tx, row.ID, deliverErr, now.Add(r.backoff(row.AttemptCount+1))); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) fanOut(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	delivery := resolved.Delivery(row)
	var errs error
	for _, name := range resolved.Descriptor.Sinks {
		sink, ok := r.sinks[name]
		if !ok {
			errs = multierr.Append(errs, registry.NewNonRetryableError(fmt.Errorf("sink %q is not configured", name)))
			continue
		}
		if r.guard != nil {
			already, err := r.guard.CheckAndMarkDelivered(ctx, name, row.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: delivery marker: %w", name, err))
				continue
			}
			if already {
				continue
			}
		}
		if err := deliverWithTimeout(ctx, sink, delivery); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			if r.guard != nil {
				if relErr := r.guard.Release(ctx, name, row.ID); relErr != nil {
					r.logg.Error(r.logg.WithField(ctx, "sink", name), "release delivery marker", relErr)
				}
			}
		}
	}
	return errs
}

func deliverWithTimeout(ctx context.Context, sink outbox.Sink, d outbox.Delivery) error {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	return sink.Deliver(ctx, d)
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"error": msg, "error_reason": reason}), "outbox event dead-lettered")

	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.dead.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	r.metrics.IncDeadLettered(string(row.EventType))
	return nil
}

// retryDelay is 5s for the first retry, doubling per attempt up to maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	delay := retryBase
	for i := 1; i < attempt; i++ {
		if delay *= 2; delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// backoff spreads retries of rows that failed together.
func (r *Relay) backoff(attempt int) time.Duration {
	delay := retryDelay(attempt)
	return delay + r.jitter(delay/5)
}

func withJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
