package exchange

import "context"

const (
	// FilterLotSize 描述数量范围与步长。
	FilterLotSize = "LOT_SIZE"
	// FilterPrice 描述价格范围与跳动单位。
	FilterPrice = "PRICE_FILTER"

	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeLimit = "LIMIT"
	TimeInForceIOC = "IOC"
)

// Gateway 抽象交易所 REST 接口，方便切换 SDK 或在测试中替换。
type Gateway interface {
	ExchangeInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	BookTicker(ctx context.Context, symbol string) (BookTicker, error)
	NewOrder(ctx context.Context, params OrderParams) (OrderAck, error)
	Orders(ctx context.Context, symbol string) ([]OrderAck, error)
}

// Filter 为交易对过滤器，数值保持交易所返回的字符串形式。
type Filter struct {
	FilterType string
	MinQty     string
	MaxQty     string
	StepSize   string
	MinPrice   string
	MaxPrice   string
	TickSize   string
}

// SymbolInfo 为单个交易对的元数据。
type SymbolInfo struct {
	Symbol  string
	Filters []Filter
}

// Find 按类型查找过滤器。
func (s SymbolInfo) Find(filterType string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return Filter{}, false
}

// BookTicker 为最优挂单报价。
type BookTicker struct {
	Symbol      string
	BidPrice    string
	BidQuantity string
	AskPrice    string
	AskQuantity string
}

// OrderParams 描述一笔限价委托。
type OrderParams struct {
	Symbol         string
	Side           string
	Quantity       float64
	Price          float64
	QtyPrecision   int
	PricePrecision int
	ClientOrderID  string
}

// OrderAck 为交易所返回的委托回执，只保留对外透传的字段。
type OrderAck struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	Status              string `json:"status"`
	Side                string `json:"side"`
	Type                string `json:"type"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	ClientOrderID       string `json:"-"`
}
