package loyalty

import (
	"context"
	"errors"
	"fmt"

	dbutil "vaultbooks/pkg/db"
	"vaultbooks/pkg/db/option"
	applog "vaultbooks/pkg/logger"
	"vaultbooks/pkg/repository"

	"gorm.io/gorm"
)

// GormStore keeps a customer row plus its history, rewards and referrals in
// four tables. Every write runs in one transaction with the customer row
// locked.
type GormStore struct {
	db        *gorm.DB
	customers repository.Repository[Customer]
	history   repository.Repository[HistoryEntry]
	rewards   repository.Repository[IssuedReward]
	referrals repository.Repository[Referral]
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:        db,
		customers: repository.ProvideStore[Customer](db),
		history:   repository.ProvideStore[HistoryEntry](db),
		rewards:   repository.ProvideStore[IssuedReward](db),
		referrals: repository.ProvideStore[Referral](db),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func (s *GormStore) Load(ctx context.Context, id string) (*Customer, error) {
	ctx = applog.CustomerID(ctx, id)
	return s.load(ctx, s.db, id, false)
}

func (s *GormStore) load(ctx context.Context, tx *gorm.DB, id string, lock bool) (*Customer, error) {
	var opts []option.QueryOption
	if lock {
		opts = append(opts, option.WithLockingUpdate())
	}

	c, err := s.customers.WithTrx(tx).FindOne(ctx, &Customer{ID: id}, opts...)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}

	history, err := s.history.WithTrx(tx).Find(ctx, &HistoryEntry{CustomerID: id},
		option.WithSortBy(option.QuerySortBy{Field: "seq"}))
	if err != nil {
		return nil, err
	}
	rewards, err := s.rewards.WithTrx(tx).Find(ctx, &IssuedReward{CustomerID: id},
		option.WithSortBy(option.QuerySortBy{Field: "redeemed_at"}, option.QuerySortBy{Field: "id"}))
	if err != nil {
		return nil, err
	}
	referrals, err := s.referrals.WithTrx(tx).Find(ctx, &Referral{CustomerID: id},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}, option.QuerySortBy{Field: "id"}))
	if err != nil {
		return nil, err
	}

	c.History = deref(history)
	c.Rewards = deref(rewards)
	c.Referrals = deref(referrals)
	return c, nil
}

func deref[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}

func (s *GormStore) Create(ctx context.Context, c *Customer) error {
	ctx = applog.CustomerID(ctx, c.ID)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.persist(ctx, tx, nil, c)
	})
}

// Save writes c, creating it when absent.
func (s *GormStore) Save(ctx context.Context, c *Customer) error {
	ctx = applog.CustomerID(ctx, c.ID)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.load(ctx, tx, c.ID, true)
		if err != nil && !errors.Is(err, ErrCustomerNotFound) {
			return err
		}
		return s.persist(ctx, tx, before, c)
	})
}

func (s *GormStore) Update(ctx context.Context, id string, fn func(c *Customer) error) (*Customer, error) {
	ctx = applog.CustomerID(ctx, id)
	var after *Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.load(ctx, tx, id, true)
		if err != nil {
			return err
		}

		next := before.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, before, next); err != nil {
			return err
		}
		after = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

// persist writes the difference between before and after. History and
// referrals only grow; issued rewards only flip to used.
func (s *GormStore) persist(ctx context.Context, tx *gorm.DB, before, after *Customer) error {
	if before == nil {
		if err := s.customers.WithTrx(tx).Create(ctx, after); err != nil {
			if dbutil.IsDuplicateKeyErr(err) {
				return ErrCustomerExists
			}
			return err
		}
		before = &Customer{}
	} else {
		if err := s.customers.WithTrx(tx).Update(ctx, after.ID, map[string]any{
			"name":       after.Name,
			"points":     after.Points,
			"tier":       after.Tier,
			"updated_at": after.UpdatedAt,
		}); err != nil {
			return err
		}
	}

	if len(after.History) < len(before.History) {
		return fmt.Errorf("loyalty: history of %s is append-only", after.ID)
	}
	newEntries := make([]*HistoryEntry, 0, len(after.History)-len(before.History))
	for i := len(before.History); i < len(after.History); i++ {
		newEntries = append(newEntries, &after.History[i])
	}
	if err := s.history.WithTrx(tx).BatchCreate(ctx, newEntries); err != nil {
		return err
	}

	known := make(map[string]IssuedReward, len(before.Rewards))
	for _, r := range before.Rewards {
		known[r.ID] = r
	}
	var newRewards []*IssuedReward
	for i := range after.Rewards {
		r := &after.Rewards[i]
		prev, ok := known[r.ID]
		if !ok {
			newRewards = append(newRewards, r)
			continue
		}
		if r.Used && !prev.Used {
			if err := s.rewards.WithTrx(tx).Update(ctx, r.ID, map[string]any{
				"used":    true,
				"used_at": r.UsedAt,
			}); err != nil {
				return err
			}
		}
	}
	if err := s.rewards.WithTrx(tx).BatchCreate(ctx, newRewards); err != nil {
		return err
	}

	referred := make(map[string]struct{}, len(before.Referrals))
	for _, r := range before.Referrals {
		referred[r.ID] = struct{}{}
	}
	var newReferrals []*Referral
	for i := range after.Referrals {
		if _, ok := referred[after.Referrals[i].ID]; !ok {
			newReferrals = append(newReferrals, &after.Referrals[i])
		}
	}
	if err := s.referrals.WithTrx(tx).BatchCreate(ctx, newReferrals); err != nil {
		if dbutil.IsDuplicateKeyErr(err) {
			return ErrDuplicateReferral
		}
		return err
	}

	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	ctx = applog.CustomerID(ctx, id)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.customers.WithTrx(tx).FindOne(ctx, &Customer{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCustomerNotFound
		}

		if err := s.history.WithTrx(tx).Delete(ctx, &HistoryEntry{CustomerID: id}); err != nil {
			return err
		}
		if err := s.rewards.WithTrx(tx).Delete(ctx, &IssuedReward{CustomerID: id}); err != nil {
			return err
		}
		if err := s.referrals.WithTrx(tx).Delete(ctx, &Referral{CustomerID: id}); err != nil {
			return err
		}
		return s.customers.WithTrx(tx).Delete(ctx, &Customer{ID: id})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
