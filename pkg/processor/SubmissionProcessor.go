package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/relaykit/go-submitq/pkg/ratelimit"
	"github.com/relaykit/go-submitq/pkg/store"
	"github.com/relaykit/go-submitq/pkg/submission"
	"github.com/relaykit/go-submitq/pkg/transport"
)

// Status describes the outcome of a submit call.
type Status string

const (
	StatusDelivered          Status = "delivered"
	StatusQueued             Status = "queued"
	StatusRejectedValidation Status = "rejected_validation"
	StatusRejectedRateLimit  Status = "rejected_rate_limit"
	StatusRejectedServer     Status = "rejected_server"
)

// Result is returned to the caller of Submit. A queued submission is an
// explicit third state: neither delivered nor failed, it completes
// automatically on a later drain.
type Result struct {
	Status           Status
	Ack              transport.Ack
	ValidationErrors []string
	Message          string
}

// drainItemDelay throttles redelivery between queued items so a drain cycle
// does not burst the endpoint.
const drainItemDelay = 1 * time.Second

// SubmissionProcessor coordinates validation, rate limiting, delivery and
// the enqueue/dequeue decisions for every submission.
type SubmissionProcessor struct {
	repo    store.SubmissionRepository
	client  transport.EndpointClient
	limiter *ratelimit.Limiter
	log     *zap.Logger
	tracer  trace.Tracer

	online atomic.Bool

	// drainMu allows one drain cycle at a time
	drainMu sync.Mutex

	drainDelay time.Duration
}

// NewSubmissionProcessor creates a new instance of SubmissionProcessor.
// The processor starts in the online state.
func NewSubmissionProcessor(repo store.SubmissionRepository, client transport.EndpointClient, limiter *ratelimit.Limiter, log *zap.Logger) *SubmissionProcessor {
	p := &SubmissionProcessor{
		repo:       repo,
		client:     client,
		limiter:    limiter,
		log:        log,
		tracer:     otel.Tracer("go-submitq"),
		drainDelay: drainItemDelay,
	}
	p.online.Store(true)
	return p
}

// Online reports the last known connectivity state.
func (p *SubmissionProcessor) Online() bool {
	return p.online.Load()
}

// SetOnline records the connectivity state. An offline to online transition
// triggers an asynchronous drain of the retry queue.
func (p *SubmissionProcessor) SetOnline(online bool) {
	was := p.online.Swap(online)
	if online && !was {
		p.log.Info("Connectivity restored, draining retry queue")
		go func() {
			if err := p.DrainQueue(context.Background()); err != nil {
				p.log.Error("Drain cycle failed", zap.Error(err))
			}
		}()
	}
}

// Submit validates, rate-limits and attempts delivery of a submission.
// Transient delivery failures are converted into a queued result; validation
// failures, the client-side rate limit and explicit endpoint rejections are
// surfaced synchronously and never queued.
func (p *SubmissionProcessor) Submit(ctx context.Context, formType submission.FormType, payload map[string]string) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("submission.form_type", string(formType)),
	))
	defer span.End()

	if errs := submission.Validate(formType, payload); len(errs) > 0 {
		return Result{Status: StatusRejectedValidation, ValidationErrors: errs}, nil
	}

	sub := submission.New(formType, payload)
	span.SetAttributes(attribute.String("submission.id", sub.QueueID))

	// No network attempt while offline: queue straight away. The payload was
	// validated above, so the drain path can skip re-validation.
	if !p.online.Load() {
		if err := p.repo.Enqueue(ctx, sub); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("enqueue offline submission: %w", err)
		}
		return Result{Status: StatusQueued, Message: "offline, submission will be delivered automatically"}, nil
	}

	ok, err := p.limiter.CanSubmit(ctx, sub.IdentityKey(), formType)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !ok {
		return Result{Status: StatusRejectedRateLimit, Message: "too many recent submissions for this form"}, nil
	}

	ack, err := p.client.Send(ctx, sub)
	switch {
	case err == nil:
		return Result{Status: StatusDelivered, Ack: ack}, nil

	case transport.Retryable(err):
		span.RecordError(err)
		if qerr := p.repo.Enqueue(ctx, sub); qerr != nil {
			span.RecordError(qerr)
			return Result{}, fmt.Errorf("enqueue after transient failure: %w", qerr)
		}
		p.log.Warn("Delivery failed, queued for retry",
			zap.String("id", sub.QueueID), zap.Error(err))
		return Result{Status: StatusQueued, Message: "delivery failed, submission will be retried automatically"}, nil

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var rejected *transport.ServerRejectedError
		if errors.As(err, &rejected) {
			return Result{Status: StatusRejectedServer, Message: rejected.Message}, nil
		}
		return Result{}, err
	}
}

// DrainQueue replays queued submissions in enqueue order. Items are sent
// without re-validation. Transient failures leave the item queued for the
// next cycle; a server rejection drops it, since retrying the same payload
// cannot succeed.
func (p *SubmissionProcessor) DrainQueue(ctx context.Context) error {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	ctx, span := p.tracer.Start(ctx, "DrainQueue")
	defer span.End()

	queued, err := p.repo.ListQueued(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list retry queue: %w", err)
	}
	span.SetAttributes(attribute.Int("queue.length", len(queued)))

	for i, sub := range queued {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.drainDelay):
			}
		}

		_, err := p.client.Send(ctx, sub)
		switch {
		case err == nil:
			if err := p.repo.Dequeue(ctx, sub.QueueID); err != nil {
				span.RecordError(err)
				return fmt.Errorf("dequeue %s: %w", sub.QueueID, err)
			}
			p.log.Info("Queued submission delivered", zap.String("id", sub.QueueID))

		case transport.Retryable(err):
			p.log.Warn("Redelivery failed, leaving queued",
				zap.String("id", sub.QueueID), zap.Error(err))

		default:
			// permanent rejection: drop the entry rather than retry forever
			if derr := p.repo.Dequeue(ctx, sub.QueueID); derr != nil {
				span.RecordError(derr)
				return fmt.Errorf("dequeue rejected %s: %w", sub.QueueID, derr)
			}
			p.log.Warn("Queued submission rejected by endpoint, dropped",
				zap.String("id", sub.QueueID), zap.Error(err))
		}
	}

	return nil
}
