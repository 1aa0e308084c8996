package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/document"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

const (
	opLine   = "line"
	opTotals = "totals"
	opVerify = "verify"
)

// Handler serves the pricing and document verification endpoints.
type Handler struct {
	store     catalog.Store
	metrics   *obs.PricingMetrics
	log       zerolog.Logger
	rounding  pricing.RoundingMode
	encoding  pricing.DiscountEncoding
	tolerance decimal.Decimal
	verifyMW  []func(http.Handler) http.Handler
}

// Config configures the Handler dependencies.
type Config struct {
	Store     catalog.Store
	Metrics   *obs.PricingMetrics
	Logger    zerolog.Logger
	Rounding  pricing.RoundingMode
	// Encoding is the discountType wire code on every endpoint.
	Encoding  pricing.DiscountEncoding
	Tolerance decimal.Decimal
	// VerifyMiddleware wraps the verify route only, e.g. idempotency.
	VerifyMiddleware []func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		rounding:  cfg.Rounding,
		encoding:  cfg.Encoding,
		tolerance: cfg.Tolerance,
		verifyMW:  cfg.VerifyMiddleware,
	}
}

// Routes mounts the pricing endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/pricing/line", h.Line)
	r.Post("/pricing/totals", h.Totals)
	r.With(h.verifyMW...).Post("/documents/{kind}/verify", h.Verify)
}

type changeRequest struct {
	Field        pricing.Field    `json:"field"`
	Value        pricing.Input    `json:"value"`
	DiscountType json.RawMessage  `json:"discountType"`
	TaxInfo      *pricing.TaxInfo `json:"taxInfo"`
	ProductID    string           `json:"productId"`
}

type lineRequest struct {
	Item   wireItem      `json:"item"`
	Change changeRequest `json:"change"`
}

type lineResponse struct {
	Item      wireItem              `json:"item"`
	Breakdown pricing.LineBreakdown `json:"breakdown"`
}

// Line handles POST /api/v1/pricing/line?kind=.
func (h *Handler) Line(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, opLine, err)
		return
	}
	current, err := h.fromWire(req.Item, "item")
	if err != nil {
		h.fail(w, opLine, err)
		return
	}
	change, err := h.change(r, req.Change)
	if err != nil {
		h.fail(w, opLine, err)
		return
	}
	item := pricing.PriceLine(current, change)
	h.metrics.Operation(opLine, "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": lineResponse{
		Item:      h.toWire(item),
		Breakdown: pricing.Breakdown(item),
	}})
}

func (h *Handler) change(r *http.Request, c changeRequest) (pricing.Change, error) {
	switch c.Field {
	case pricing.FieldQuantity:
		return pricing.SetQuantity(c.Value.Raw), nil
	case pricing.FieldRate:
		return pricing.SetRate(c.Value.Raw), nil
	case pricing.FieldDiscountValue:
		return pricing.SetDiscount(c.Value.Raw), nil
	case pricing.FieldDiscountType:
		t, err := h.discountType(c.DiscountType, "change.discountType")
		if err != nil {
			return pricing.Change{}, err
		}
		return pricing.SetDiscountType(t), nil
	case pricing.FieldTax:
		return pricing.SetTax(c.TaxInfo), nil
	case pricing.FieldProduct:
		return h.productChange(r, c.ProductID)
	default:
		return pricing.Change{}, common.NewAppError("INVALID_CHANGE", "change.field is required", http.StatusBadRequest, nil)
	}
}

func (h *Handler) productChange(r *http.Request, id string) (pricing.Change, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pricing.Change{}, common.NewAppError("INVALID_CHANGE", "change.productId is required", http.StatusBadRequest, nil)
	}
	if h.store == nil {
		return pricing.Change{}, common.NewAppError("CATALOG_UNAVAILABLE", "catalog unavailable", http.StatusServiceUnavailable, nil)
	}
	profile, err := profileFromQuery(r)
	if err != nil {
		return pricing.Change{}, err
	}
	p, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return pricing.Change{}, common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrStoreUnavailable):
		return pricing.Change{}, common.NewAppError("CATALOG_UNAVAILABLE", "catalog unavailable", http.StatusServiceUnavailable, err)
	case err != nil:
		return pricing.Change{}, err
	}
	return pricing.SelectProduct(p.PricingEntry(profile.Basis)), nil
}

func profileFromQuery(r *http.Request) (document.Profile, error) {
	name := r.URL.Query().Get("kind")
	if strings.TrimSpace(name) == "" {
		name = string(document.KindInvoice)
	}
	kind, err := document.ParseKind(name)
	if err != nil {
		return document.Profile{}, common.NewAppError("UNKNOWN_KIND", "unknown document kind", http.StatusBadRequest, err)
	}
	return document.ProfileFor(kind)
}

type totalsRequest struct {
	Items    []wireItem `json:"items"`
	RoundOff bool       `json:"roundOff"`
}

// Totals handles POST /api/v1/pricing/totals. Amounts are recomputed from the
// item inputs; cached amounts in the request are ignored.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.fail(w, opTotals, err)
		return
	}
	items, err := h.fromWireItems(req.Items)
	if err != nil {
		h.fail(w, opTotals, err)
		return
	}
	for i, item := range items {
		items[i] = pricing.Reprice(item)
	}
	totals := pricing.AggregateWith(items, pricing.Options{RoundOff: req.RoundOff, Rounding: h.rounding})
	h.metrics.Operation(opTotals, "ok")
	h.metrics.Items(len(items))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"items":  h.toWireItems(items),
		"totals": totals,
	}})
}

// Verify handles POST /api/v1/documents/{kind}/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	kind, err := document.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, opVerify, common.NewAppError("UNKNOWN_KIND", "unknown document kind", http.StatusNotFound, err))
		return
	}
	var sub document.Submission
	if err := common.DecodeJSON(r, &sub); err != nil {
		h.fail(w, opVerify, err)
		return
	}
	if sub.Kind == "" {
		sub.Kind = kind
	} else if k, err := document.ParseKind(string(sub.Kind)); err != nil || k != kind {
		h.fail(w, opVerify, common.NewAppError("KIND_MISMATCH", "body kind does not match path", http.StatusBadRequest, err))
		return
	}
	if err := document.ValidateForSubmit(sub); err != nil {
		var verr *document.ValidationError
		if errors.As(err, &verr) {
			h.fail(w, opVerify, common.NewAppError("VALIDATION_FAILED", "submission is incomplete", http.StatusUnprocessableEntity, err).
				WithDetails(verr))
			return
		}
		h.fail(w, opVerify, err)
		return
	}

	totals, err := document.Verify(sub, document.VerifyOptions{
		Encoding:  h.encoding,
		Rounding:  h.rounding,
		Tolerance: h.tolerance,
	})
	var mismatch *document.MismatchError
	switch {
	case errors.As(err, &mismatch):
		h.metrics.Mismatch(string(kind))
		zerolog.Ctx(r.Context()).Warn().
			Str("kind", string(kind)).
			Str("submitted_total", mismatch.Submitted.TotalAmount.String()).
			Str("computed_total", mismatch.Computed.TotalAmount.String()).
			Ints("lines", mismatch.Lines).
			Msg("submission totals mismatch")
		h.fail(w, opVerify, common.NewAppError("TOTALS_MISMATCH", "totals do not match items", http.StatusUnprocessableEntity, err).
			WithDetails(mismatch))
		return
	case errors.Is(err, document.ErrInvalidSubmission):
		h.fail(w, opVerify, common.NewAppError("INVALID_SUBMISSION", err.Error(), http.StatusBadRequest, err))
		return
	case err != nil:
		h.fail(w, opVerify, err)
		return
	}
	h.metrics.Operation(opVerify, "ok")
	h.metrics.Items(len(sub.Items))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"kind":   kind,
		"totals": totals,
	}})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		h.metrics.Operation(op, "error")
		h.log.Error().Err(err).Str("operation", op).Msg("pricing request failed")
		common.WriteAppError(w, err)
		return
	}
	result := "rejected"
	if appErr.Code == "TOTALS_MISMATCH" {
		result = "mismatch"
	} else if appErr.HTTPStatus >= http.StatusInternalServerError {
		result = "error"
	}
	h.metrics.Operation(op, result)
	common.WriteAppError(w, appErr)
}
