// Package dispatch fans a batch of registrations out to the mail provider:
// render, send and, on success, retire each registration. Failures are
// contained per recipient and never abort the batch.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/notification"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

const defaultSendTimeout = 30 * time.Second

var tracer = otel.Tracer("github.com/shaharia-lab/restock-notifier/internal/dispatch")

// Renderer composes the email for one registration.
type Renderer interface {
	Render(reg restock.EmailRegistration, names restock.ProductNameSet) (notification.Rendered, error)
}

// Deleter retires a registration after it has been notified.
type Deleter interface {
	DeleteRegistration(ctx context.Context, entryID string) error
}

// EventPublisher allows the engine to emit outcome events without depending on
// a concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Config holds the engine's collaborators and limits.
type Config struct {
	Renderer Renderer
	Provider notification.Provider
	Deleter  Deleter
	// From is the sender address of every notification.
	From string
	// MaxConcurrency bounds simultaneous deliveries. Zero or less is unbounded.
	MaxConcurrency int
	// SendTimeout bounds a single Send. Zero uses 30s.
	SendTimeout time.Duration
	Logger      *slog.Logger
	// EventPublisher is optional. When set, every terminal outcome is published.
	EventPublisher EventPublisher
}

// Engine delivers restock notifications.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Renderer == nil || cfg.Provider == nil || cfg.Deleter == nil {
		return nil, fmt.Errorf("dispatch: renderer, provider and deleter are required")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Dispatch delivers to every registration concurrently and returns once every
// delivery has settled. Per-recipient failures are logged and reported in the
// Report; they are never returned as errors. The batch is not cancelled when
// ctx is.
func (e *Engine) Dispatch(ctx context.Context, regs []restock.EmailRegistration, names restock.ProductNameSet) Report {
	ctx = context.WithoutCancel(ctx)
	batchID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "dispatch.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.size", len(regs)),
	)

	outcomes := make([]Outcome, len(regs))

	var g errgroup.Group
	if e.cfg.MaxConcurrency > 0 {
		g.SetLimit(e.cfg.MaxConcurrency)
	}
	for i, reg := range regs {
		g.Go(func() error {
			outcomes[i] = e.deliver(ctx, batchID, reg, names)
			return nil
		})
	}
	_ = g.Wait()

	report := newReport(batchID, outcomes, time.Since(start))
	e.logger.Info("dispatch batch settled",
		"batch_id", batchID,
		"total", report.Total,
		"deleted", report.Deleted,
		"send_failed", report.SendFailed,
		"delete_failed", report.DeleteFailed,
		"render_failed", report.RenderFailed,
		"duration", report.Duration,
	)
	e.publish(eventbus.EventBatchCompleted, map[string]string{
		"batch_id":      batchID,
		"total":         strconv.Itoa(report.Total),
		"sent":          strconv.Itoa(report.Sent),
		"deleted":       strconv.Itoa(report.Deleted),
		"send_failed":   strconv.Itoa(report.SendFailed),
		"delete_failed": strconv.Itoa(report.DeleteFailed),
		"render_failed": strconv.Itoa(report.RenderFailed),
		"duration_ms":   strconv.FormatInt(report.Duration.Milliseconds(), 10),
	})
	return report
}

// deliver walks one registration through PENDING -> RENDERED -> SENT -> DELETED.
func (e *Engine) deliver(ctx context.Context, batchID string, reg restock.EmailRegistration, names restock.ProductNameSet) (out Outcome) {
	out = Outcome{Registration: reg, State: StatePending}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "dispatch.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("registration.entry_id", reg.EntryID),
		attribute.String("registration.language", reg.Language),
	)

	log := e.logger.With("batch_id", batchID, "email", reg.Email, "entry_id", reg.EntryID)

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
			switch out.State {
			case StatePending:
				out.State = StateRenderFailed
			case StateSent:
				out.State = StateDeleteFailed
			default:
				out.State = StateSendFailed
			}
			log.Error("delivery panicked", "state", out.State, "panic", r)
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, string(out.State))
		}
		e.publishOutcome(batchID, out)
	}()

	rendered, err := e.cfg.Renderer.Render(reg, names)
	if err != nil {
		out.State, out.Err = StateRenderFailed, restock.NewError(restock.CodeRenderFailed, "render", err)
		log.Error("failed to render notification", "error", err)
		return out
	}
	out.State = StateRendered
	out.Language = rendered.Language

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	err = e.cfg.Provider.Send(sendCtx, rendered.Message(e.cfg.From, reg.Email))
	cancel()
	if err != nil {
		// The registration stays in the store; the next restock retries it.
		out.State, out.Err = StateSendFailed, restock.NewError(restock.CodeSendFailed, "send", err)
		log.Error("failed to send notification", "error", err)
		return out
	}
	out.State = StateSent

	if err := e.cfg.Deleter.DeleteRegistration(ctx, reg.EntryID); err != nil {
		out.State, out.Err = StateDeleteFailed, restock.NewError(restock.CodeDeleteFailed, "delete", err)
		log.Error("notification sent but registration not deleted", "error", err)
		return out
	}
	out.State = StateDeleted
	log.Debug("notification delivered", "language", rendered.Language)
	return out
}

func (e *Engine) publishOutcome(batchID string, out Outcome) {
	var eventType string
	switch out.State {
	case StateDeleted:
		eventType = eventbus.EventDeliverySent
	case StateSendFailed:
		eventType = eventbus.EventDeliverySendFailed
	case StateDeleteFailed:
		eventType = eventbus.EventDeliveryDeleteFailed
	case StateRenderFailed:
		eventType = eventbus.EventDeliveryRenderFailed
	default:
		return
	}

	payload := map[string]string{
		"batch_id":    batchID,
		"product_id":  out.Registration.RelatedProductID,
		"entry_id":    out.Registration.EntryID,
		"email":       out.Registration.Email,
		"language":    out.Language,
		"state":       string(out.State),
		"duration_ms": strconv.FormatInt(out.Duration.Milliseconds(), 10),
	}
	if out.Err != nil {
		payload["error"] = out.Err.Error()
	}
	e.publish(eventType, payload)
}

func (e *Engine) publish(eventType string, payload map[string]string) {
	if e.cfg.EventPublisher != nil {
		e.cfg.EventPublisher.Publish(eventType, payload)
	}
}
