package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"volume-splitter/internal/exchange"
	"volume-splitter/internal/splitter"
	"volume-splitter/internal/store"
)

// DefaultListLimit 为查询事件时的默认条数。
const DefaultListLimit = 100

// Service 负责持久化拆单审计事件，实现 splitter.Recorder。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ splitter.Recorder = (*Service)(nil)

// NewService 初始化审计服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS journal_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	symbol TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_events_type ON journal_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, symbol string, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_events (event_type, symbol, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(event.Type), symbol, string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入事件失败: %w", err)
	}

	return nil
}

// OrderSubmitted 记录单笔子订单。
func (s *Service) OrderSubmitted(ctx context.Context, req splitter.OrderRequest, child splitter.ChildOrder, ack exchange.OrderAck) {
	s.record(ctx, req.Symbol, EventOrderSubmitted, OrderSubmittedPayload{
		Request:       requestView(req),
		Index:         child.Index,
		Price:         child.Price,
		Quantity:      child.Quantity,
		Notional:      child.Notional,
		ClientOrderID: child.ClientOrderID,
		Ack:           ack,
	})
}

// SplitCompleted 记录拆单完成。
func (s *Service) SplitCompleted(ctx context.Context, req splitter.OrderRequest, acks []exchange.OrderAck) {
	ids := make([]int64, 0, len(acks))
	for _, ack := range acks {
		ids = append(ids, ack.OrderID)
	}
	s.record(ctx, req.Symbol, EventSplitCompleted, SplitCompletedPayload{
		Request:  requestView(req),
		Orders:   len(acks),
		OrderIDs: ids,
	})
}

// SplitFailed 记录拆单失败及失败前已提交的订单。
func (s *Service) SplitFailed(ctx context.Context, req splitter.OrderRequest, state splitter.State, submitted []exchange.OrderAck, err error) {
	payload := SplitFailedPayload{
		Request:   requestView(req),
		State:     state,
		Submitted: submitted,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if payload.Submitted == nil {
		payload.Submitted = []exchange.OrderAck{}
	}
	s.record(ctx, req.Symbol, EventSplitFailed, payload)
}

func (s *Service) record(ctx context.Context, symbol string, typ EventType, payload interface{}) {
	// 请求被取消时仍需落盘，否则已提交的订单无从对账
	ctx = context.WithoutCancel(ctx)
	if err := s.Record(ctx, symbol, Event{Type: typ, Payload: payload}); err != nil {
		s.logger.Warn("记录审计事件失败", zap.String("type", string(typ)), zap.Error(err))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回所有类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, event_type, payload, created_at FROM journal_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			id      int64
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&id, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}

		events = append(events, Event{
			ID:        id,
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
	}

	return events, nil
}
