package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/journal"
	"volume-splitter/internal/splitter"
)

const (
	defaultEventsLimit = 200
	maxEventsLimit     = 1000
)

type createOrdersRequest struct {
	Volume    *float64 `json:"volume"`
	Number    *int     `json:"number"`
	AmountDif *float64 `json:"amountDif"`
	Side      *string  `json:"side"`
	PriceMin  *float64 `json:"priceMin"`
	PriceMax  *float64 `json:"priceMax"`
	Symbol    *string  `json:"symbol"`
}

type symbolRequest struct {
	Symbol *string `json:"symbol"`
}

// symbolLimitsResponse 的键名带空格，与既有客户端保持一致。
type symbolLimitsResponse struct {
	MinQuantity       float64 `json:"min quantity"`
	MaxQuantity       float64 `json:"max quantity"`
	MinPrice          float64 `json:"min price"`
	MaxPrice          float64 `json:"max price"`
	PricePrecision    int     `json:"price precision"`
	QuantityPrecision int     `json:"quantity precision"`
	BestPrice         string  `json:"best price"`
}

// createOrders handles POST /create_orders.
func (h *handler) createOrders(w http.ResponseWriter, r *http.Request) {
	var body createOrdersRequest
	if issues := decodeBody(r, &body); issues != nil {
		writeIssues(w, issues)
		return
	}

	var missing required
	missing.check("volume", body.Volume != nil)
	missing.check("number", body.Number != nil)
	missing.check("amountDif", body.AmountDif != nil)
	missing.check("side", body.Side != nil)
	missing.check("priceMin", body.PriceMin != nil)
	missing.check("priceMax", body.PriceMax != nil)
	if len(missing) > 0 {
		writeIssues(w, missing)
		return
	}

	symbol := h.deps.DefaultSymbol
	if body.Symbol != nil && strings.TrimSpace(*body.Symbol) != "" {
		symbol = strings.ToUpper(strings.TrimSpace(*body.Symbol))
	}

	acks, err := h.deps.Splitter.Run(r.Context(), splitter.OrderRequest{
		Symbol:    symbol,
		Volume:    *body.Volume,
		Count:     *body.Number,
		Side:      *body.Side,
		PriceMin:  *body.PriceMin,
		PriceMax:  *body.PriceMax,
		AmountDif: *body.AmountDif,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, acks)
}

// symbolLimits handles POST /symbol_limits.
func (h *handler) symbolLimits(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.decodeSymbol(w, r)
	if !ok {
		return
	}

	l, err := h.deps.Limits.Resolve(r.Context(), symbol)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, symbolLimitsResponse{
		MinQuantity:       l.MinQty,
		MaxQuantity:       l.MaxQty,
		MinPrice:          l.MinPrice,
		MaxPrice:          l.MaxPrice,
		PricePrecision:    l.PricePrecision,
		QuantityPrecision: l.QuantityPrecision,
		BestPrice:         l.BestPrice,
	})
}

// checkOrder handles POST /check_order.
func (h *handler) checkOrder(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.decodeSymbol(w, r)
	if !ok {
		return
	}

	orders, err := h.deps.History.Orders(r.Context(), symbol)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if orders == nil {
		orders = []exchange.OrderAck{}
	}

	WriteJSON(w, http.StatusOK, orders)
}

// listEvents handles GET /events.
func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	if h.deps.Events == nil {
		WriteError(w, http.StatusNotFound, "journal is disabled")
		return
	}

	q := r.URL.Query()
	limit := defaultEventsLimit
	if qs := q.Get("limit"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxEventsLimit)
	}

	eventType := journal.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = journal.EventType(strings.ToLower(typ))
		if !eventType.Valid() {
			WriteError(w, http.StatusBadRequest, "unknown event type: "+typ)
			return
		}
	}

	events, err := h.deps.Events.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		h.logger.Error("查询审计事件失败", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	WriteJSON(w, http.StatusOK, events)
}

func (h *handler) decodeSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body symbolRequest
	if issues := decodeBody(r, &body); issues != nil {
		writeIssues(w, issues)
		return "", false
	}

	var missing required
	missing.check("symbol", body.Symbol != nil)
	if len(missing) > 0 {
		writeIssues(w, missing)
		return "", false
	}

	return strings.ToUpper(strings.TrimSpace(*body.Symbol)), true
}

// writeFailure 将业务错误映射为 HTTP 状态码。
func (h *handler) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case splitter.IsValidationError(err):
		WriteError(w, http.StatusBadRequest, err.Error())
	case exchange.IsAPIError(err):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, exchange.ErrUnavailable),
		errors.Is(err, exchange.ErrMalformedResponse),
		errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled):
		WriteError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error("未分类的请求错误", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
