package journal

import (
	"time"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/splitter"
)

// EventType 表示审计事件类型。
type EventType string

const (
	EventOrderSubmitted EventType = "order_submitted"
	EventSplitCompleted EventType = "split_completed"
	EventSplitFailed    EventType = "split_failed"
)

// Valid 判断是否为已知事件类型。
func (t EventType) Valid() bool {
	switch t {
	case EventOrderSubmitted, EventSplitCompleted, EventSplitFailed:
		return true
	default:
		return false
	}
}

// Event 封装通用审计事件。
type Event struct {
	ID        int64       `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Request 为拆单请求的审计视图。
type Request struct {
	Symbol    string  `json:"symbol"`
	Volume    float64 `json:"volume"`
	Count     int     `json:"number"`
	Side      string  `json:"side"`
	PriceMin  float64 `json:"priceMin"`
	PriceMax  float64 `json:"priceMax"`
	AmountDif float64 `json:"amountDif"`
}

func requestView(req splitter.OrderRequest) Request {
	return Request{
		Symbol:    req.Symbol,
		Volume:    req.Volume,
		Count:     req.Count,
		Side:      req.Side,
		PriceMin:  req.PriceMin,
		PriceMax:  req.PriceMax,
		AmountDif: req.AmountDif,
	}
}

// OrderSubmittedPayload 记录单笔子订单及交易所回执。
type OrderSubmittedPayload struct {
	Request       Request           `json:"request"`
	Index         int               `json:"index"`
	Price         float64           `json:"price"`
	Quantity      float64           `json:"quantity"`
	Notional      float64           `json:"notional"`
	ClientOrderID string            `json:"clientOrderId"`
	Ack           exchange.OrderAck `json:"ack"`
}

// SplitCompletedPayload 记录整批拆单完成。
type SplitCompletedPayload struct {
	Request  Request `json:"request"`
	Orders   int     `json:"orders"`
	OrderIDs []int64 `json:"orderIds"`
}

// SplitFailedPayload 记录拆单失败；Submitted 为失败前已被交易所接受的订单，需人工对账。
type SplitFailedPayload struct {
	Request   Request             `json:"request"`
	State     splitter.State      `json:"state"`
	Error     string              `json:"error"`
	Submitted []exchange.OrderAck `json:"submitted"`
}
