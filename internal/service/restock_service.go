package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

var tracer = otel.Tracer("github.com/shaharia-lab/restock-notifier/internal/service")

// RegistrationStore looks up the registrations waiting on a product.
type RegistrationStore interface {
	FetchRegistrations(ctx context.Context, productID string) ([]restock.EmailRegistration, error)
}

// Dispatcher delivers notifications to a batch of registrations.
type Dispatcher interface {
	Dispatch(ctx context.Context, regs []restock.EmailRegistration, names restock.ProductNameSet) dispatch.Report
}

// WebhookObserver is notified of the result code of every handled webhook.
type WebhookObserver interface {
	ObserveWebhook(code restock.Code)
}

// Result is the outcome of one webhook, ready to be written to the caller.
type Result struct {
	Status  int          `json:"-"`
	Code    restock.Code `json:"code"`
	Message string       `json:"message"`
}

var results = map[restock.Code]Result{
	restock.CodeInvalidPayload:     {http.StatusBadRequest, restock.CodeInvalidPayload, "Invalid webhook payload"},
	restock.CodeMissingProductInfo: {http.StatusBadRequest, restock.CodeMissingProductInfo, "Product ID or name is missing"},
	restock.CodeMethodNotAllowed:   {http.StatusMethodNotAllowed, restock.CodeMethodNotAllowed, "Method Not Allowed"},
	restock.CodeNotRestocked:       {http.StatusOK, restock.CodeNotRestocked, "Product is not back in stock"},
	restock.CodeDispatched:         {http.StatusOK, restock.CodeDispatched, "Emails sent successfully"},
	restock.CodeDispatchError:      {http.StatusInternalServerError, restock.CodeDispatchError, "Error processing webhook"},
}

// ResultFor returns the canonical response for a webhook result code.
// Unknown codes map to DISPATCH_ERROR.
func ResultFor(code restock.Code) Result {
	if r, ok := results[code]; ok {
		return r
	}
	return results[restock.CodeDispatchError]
}

// RestockService turns stock-change webhooks into notification batches.
type RestockService interface {
	// Handle validates a raw webhook body and, for an in-stock product,
	// fetches its registrations and dispatches them. It blocks until the
	// batch has settled.
	Handle(ctx context.Context, raw []byte) Result

	// Notify fetches the registrations for productID and dispatches them
	// with the given names. Per-recipient failures are reported in the
	// returned Report, never as an error.
	Notify(ctx context.Context, productID string, names restock.ProductNameSet) (dispatch.Report, error)
}

type restockService struct {
	store        RegistrationStore
	dispatcher   Dispatcher
	fallbackLang string
	observer     WebhookObserver
	logger       *slog.Logger
}

// NewRestockService constructs a RestockService. observer may be nil.
func NewRestockService(
	store RegistrationStore,
	dispatcher Dispatcher,
	fallbackLang string,
	observer WebhookObserver,
	logger *slog.Logger,
) RestockService {
	if logger == nil {
		logger = slog.Default()
	}
	return &restockService{
		store:        store,
		dispatcher:   dispatcher,
		fallbackLang: fallbackLang,
		observer:     observer,
		logger:       logger,
	}
}

func (s *restockService) Handle(ctx context.Context, raw []byte) (res Result) {
	ctx, span := tracer.Start(ctx, "restock.webhook")
	defer func() {
		span.SetAttributes(
			attribute.String("restock.code", string(res.Code)),
			attribute.Int("http.response.status_code", res.Status),
		)
		if res.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, res.Message)
		}
		span.End()
		if s.observer != nil {
			s.observer.ObserveWebhook(res.Code)
		}
	}()

	ev, err := restock.ParseStockChangeEvent(raw, s.fallbackLang)
	if err != nil {
		var ve *restock.ValidationError
		if errors.As(err, &ve) {
			s.logger.Warn("rejected webhook", "code", ve.Code, "reason", ve.Error())
			return ResultFor(ve.Code)
		}
		s.logger.Warn("rejected webhook", "error", err)
		return ResultFor(restock.CodeInvalidPayload)
	}

	span.SetAttributes(attribute.String("restock.product_id", ev.ProductID))
	if !ev.InStock {
		s.logger.Info("product not in stock, nothing to notify", "product_id", ev.ProductID)
		return ResultFor(restock.CodeNotRestocked)
	}

	if _, err := s.Notify(ctx, ev.ProductID, ev.Names); err != nil {
		span.RecordError(err)
		s.logger.Error("error processing webhook", "product_id", ev.ProductID, "error", err)
		return ResultFor(restock.CodeDispatchError)
	}
	return ResultFor(restock.CodeDispatched)
}

func (s *restockService) Notify(ctx context.Context, productID string, names restock.ProductNameSet) (report dispatch.Report, err error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || !names.HasAny() {
		return dispatch.Report{}, &restock.ValidationError{
			Code:    restock.CodeMissingProductInfo,
			Message: "product id and at least one name are required",
		}
	}

	regs, err := s.store.FetchRegistrations(ctx, productID)
	if err != nil {
		return dispatch.Report{}, fmt.Errorf("fetching registrations for product %q: %w", productID, err)
	}
	s.logger.Info("dispatching restock notifications",
		"product_id", productID,
		"registrations", len(regs),
		"languages", names.Languages(),
	)

	defer func() {
		if r := recover(); r != nil {
			err = restock.NewError(restock.CodeDispatchError, "dispatch", fmt.Errorf("panic: %v", r))
		}
	}()
	report = s.dispatcher.Dispatch(ctx, regs, names)
	return report, nil
}
