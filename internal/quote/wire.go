package quote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/pricing"
)

// wireItem is a LineItem as it crosses HTTP. Discount type codes, including
// the one inside the rate intent, follow the configured DiscountEncoding so
// line, totals and verify all read the same code the same way.
type wireItem struct {
	pricing.LineItem
	DiscountType json.RawMessage `json:"discountType,omitempty"`
	RateIntent   *wireIntent     `json:"rateIntent,omitempty"`
}

type wireIntent struct {
	pricing.RateIntent
	DiscountType json.RawMessage `json:"discountType,omitempty"`
}

func (h *Handler) discountType(raw json.RawMessage, field string) (pricing.DiscountType, error) {
	t, err := h.encoding.DecodeJSON(raw)
	if err != nil {
		return pricing.Flat, common.NewAppError("INVALID_DISCOUNT_TYPE", "unknown discount type", http.StatusBadRequest, err).
			WithDetails(map[string]any{"field": field})
	}
	return t, nil
}

func (h *Handler) fromWire(w wireItem, field string) (pricing.LineItem, error) {
	item := w.LineItem
	t, err := h.discountType(w.DiscountType, field+".discountType")
	if err != nil {
		return pricing.LineItem{}, err
	}
	item.DiscountType = t
	item.RateIntent = nil
	if w.RateIntent != nil {
		intent := w.RateIntent.RateIntent
		intent.DiscountType, err = h.discountType(w.RateIntent.DiscountType, field+".rateIntent.discountType")
		if err != nil {
			return pricing.LineItem{}, err
		}
		item.RateIntent = &intent
	}
	return item, nil
}

func (h *Handler) fromWireItems(ws []wireItem) ([]pricing.LineItem, error) {
	items := make([]pricing.LineItem, len(ws))
	for i, w := range ws {
		item, err := h.fromWire(w, fmt.Sprintf("items[%d]", i))
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

func (h *Handler) code(t pricing.DiscountType) json.RawMessage {
	return json.RawMessage(strconv.Itoa(h.encoding.Encode(t)))
}

func (h *Handler) toWire(item pricing.LineItem) wireItem {
	w := wireItem{LineItem: item, DiscountType: h.code(item.DiscountType)}
	if item.RateIntent != nil {
		w.RateIntent = &wireIntent{
			RateIntent:   *item.RateIntent,
			DiscountType: h.code(item.RateIntent.DiscountType),
		}
	}
	return w
}

func (h *Handler) toWireItems(items []pricing.LineItem) []wireItem {
	out := make([]wireItem, len(items))
	for i, item := range items {
		out[i] = h.toWire(item)
	}
	return out
}
