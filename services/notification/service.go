package notification

import (
	"context"
	"strings"

	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/db/option"
	"vaultbooks/pkg/db/pagination"
	"vaultbooks/pkg/errutil"
	applog "vaultbooks/pkg/logger"
	"vaultbooks/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxPerCustomer bounds each inbox; the oldest notifications are dropped first.
const MaxPerCustomer = 100

var (
	ErrNotificationNotFound = errutil.NotFound("notification not found", nil)
	ErrInvalidEvent         = errutil.BadRequest("notification requires customer_id and title", nil)
)

type Service struct {
	db    *gorm.DB
	repo  repository.Repository[Notification]
	node  *snowflake.Node
	clock clock.Clock
	max   int
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock clock.Clock `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:    p.DB,
		repo:  repository.ProvideStore[Notification](p.DB),
		node:  p.Node,
		clock: c,
		max:   MaxPerCustomer,
	}
}

type ListFilter struct {
	UnreadOnly bool
	Type       string
	Priority   Priority
	Limit      int
	After      *pagination.Cursor
}

// Add stores ev in the customer's inbox and trims the inbox to MaxPerCustomer.
func (s *Service) Add(ctx context.Context, ev Event) (*Notification, error) {
	if strings.TrimSpace(ev.CustomerID) == "" || strings.TrimSpace(ev.Title) == "" {
		return nil, ErrInvalidEvent
	}
	ctx = applog.CustomerID(ctx, ev.CustomerID)

	priority := ev.Priority
	if !priority.Valid() {
		priority = PriorityNormal
	}

	createdAt := ev.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	n := &Notification{
		ID:         s.node.Generate().String(),
		CustomerID: ev.CustomerID,
		Type:       ev.Type,
		Title:      ev.Title,
		Message:    ev.Message,
		Priority:   priority,
		CreatedAt:  createdAt.UTC(),
	}
	if len(ev.Data) > 0 {
		n.Data = datatypes.JSONMap{}
		for k, v := range ev.Data {
			n.Data[k] = v
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		if err := repo.Create(ctx, n); err != nil {
			return err
		}
		return s.trim(ctx, tx, ev.CustomerID)
	}); err != nil {
		zap.L().Error("failed to store notification", zap.String("customer_id", ev.CustomerID), zap.Error(err))
		return nil, err
	}

	return n, nil
}

func (s *Service) trim(ctx context.Context, tx *gorm.DB, customerID string) error {
	repo := s.repo.WithTrx(tx)
	total, err := repo.Count(ctx, &Notification{CustomerID: customerID})
	if err != nil {
		return err
	}
	if total <= int64(s.max) {
		return nil
	}

	oldest, err := repo.Find(ctx, &Notification{CustomerID: customerID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}, option.QuerySortBy{Field: "id"}),
		option.WithLimit(int(total)-s.max),
	)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(oldest))
	for _, n := range oldest {
		ids = append(ids, n.ID)
	}
	return tx.WithContext(ctx).Where("id IN ?", ids).Delete(&Notification{}).Error
}

// List returns the newest notifications first.
func (s *Service) List(ctx context.Context, customerID string, f ListFilter) ([]*Notification, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "created_at", OrderBy: "DESC"}, option.QuerySortBy{Field: "id", OrderBy: "DESC"}),
		option.WithLimit(f.Limit),
		pagination.After(f.After),
	}
	if f.UnreadOnly {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_read", Operator: option.EQ, Value: false}))
	}

	return s.repo.Find(ctx, &Notification{
		CustomerID: customerID,
		Type:       f.Type,
		Priority:   f.Priority,
	}, opts...)
}

// ListPage is List with cursor pagination. An undecodable cursor is a bad request.
func (s *Service) ListPage(ctx context.Context, customerID string, f ListFilter, p pagination.Pagination) ([]*Notification, pagination.PageInfo, error) {
	if p.Cursor != "" {
		after, err := pagination.DecodeCursor(p.Cursor)
		if err != nil {
			return nil, pagination.PageInfo{}, errutil.BadRequest("invalid cursor", err)
		}
		f.After = after
	}

	size := p.Size()
	f.Limit = size + 1
	items, err := s.List(ctx, customerID, f)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return pagination.Page(items, size, func(n *Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
}

func (s *Service) UnreadCount(ctx context.Context, customerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("customer_id = ? AND is_read = ?", customerID, false).
		Count(&count).Error
	return count, err
}

func (s *Service) get(ctx context.Context, customerID, id string) (*Notification, error) {
	n, err := s.repo.FindOne(ctx, &Notification{ID: id, CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (s *Service) MarkAsRead(ctx context.Context, customerID, id string) (*Notification, error) {
	n, err := s.get(ctx, customerID, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, id, map[string]any{"is_read": true, "read_at": now}); err != nil {
		return nil, err
	}
	n.Read = true
	n.ReadAt = &now
	return n, nil
}

// MarkAllAsRead returns how many notifications changed state.
func (s *Service) MarkAllAsRead(ctx context.Context, customerID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("customer_id = ? AND is_read = ?", customerID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.clock.Now()})
	return res.RowsAffected, res.Error
}

func (s *Service) Delete(ctx context.Context, customerID, id string) error {
	if _, err := s.get(ctx, customerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, &Notification{ID: id, CustomerID: customerID})
}

func (s *Service) ClearAll(ctx context.Context, customerID string) error {
	return s.repo.Delete(ctx, &Notification{CustomerID: customerID})
}
