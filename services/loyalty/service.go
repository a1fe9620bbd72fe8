package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/config"
	"vaultbooks/pkg/featureflags"
	"vaultbooks/pkg/middleware"
	"vaultbooks/pkg/minio"
	"vaultbooks/pkg/sequence"
	"vaultbooks/services/notification"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	defaultRewardValidity = 30 * 24 * time.Hour
	defaultReferralBonus  = 500
	defaultCardPrefix     = "VB-"
	defaultSummaryTTL     = time.Minute
	cardNumberWidth       = 8
)

type Options struct {
	RewardValidity time.Duration
	ReferralBonus  int64
	CardPrefix     string
}

func optionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		RewardValidity: defaultRewardValidity,
		ReferralBonus:  defaultReferralBonus,
		CardPrefix:     defaultCardPrefix,
	}
	if cfg == nil {
		return opts
	}
	if cfg.Loyalty.RewardValidity > 0 {
		opts.RewardValidity = cfg.Loyalty.RewardValidity
	}
	if cfg.Loyalty.ReferralBonus > 0 {
		opts.ReferralBonus = cfg.Loyalty.ReferralBonus
	}
	if cfg.Loyalty.CardPrefix != "" {
		opts.CardPrefix = cfg.Loyalty.CardPrefix
	}
	return opts
}

type Service struct {
	store    Store
	catalog  *Catalog
	notifier notification.Notifier
	flags    featureflags.FeatureFlag
	codes    sequence.Generator
	objects  minio.ObjectStore
	node     *snowflake.Node
	clock    clock.Clock
	cache    *SummaryCache
	opts     Options
}

type ServiceParams struct {
	fx.In

	Store    Store
	Catalog  *Catalog
	Node     *snowflake.Node
	Config   *config.Config           `optional:"true"`
	Notifier notification.Notifier    `optional:"true"`
	Flags    featureflags.FeatureFlag `optional:"true"`
	Codes    sequence.Generator       `optional:"true"`
	Objects  minio.ObjectStore        `optional:"true"`
	Clock    clock.Clock              `optional:"true"`
	Cache    *SummaryCache            `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	svc := &Service{
		store:    p.Store,
		catalog:  p.Catalog,
		notifier: p.Notifier,
		flags:    p.Flags,
		codes:    p.Codes,
		objects:  p.Objects,
		node:     p.Node,
		clock:    p.Clock,
		cache:    p.Cache,
		opts:     optionsFromConfig(p.Config),
	}

	if svc.catalog == nil {
		svc.catalog = DefaultCatalog()
	}
	if svc.notifier == nil {
		svc.notifier = notification.NewNopNotifier()
	}
	if svc.flags == nil {
		svc.flags = featureflags.Static{}
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if svc.cache == nil {
		ttl := defaultSummaryTTL
		if p.Config != nil && p.Config.Loyalty.SummaryCacheTTL != 0 {
			ttl = p.Config.Loyalty.SummaryCacheTTL
		}
		svc.cache = NewSummaryCache(ttl, svc.clock)
	}

	return svc
}

type EarnResult struct {
	EarnedPoints int64  `json:"earned_points"`
	TotalPoints  int64  `json:"total_points"`
	Tier         string `json:"tier"`
}

type RedeemResult struct {
	Reward          IssuedReward `json:"reward"`
	RemainingPoints int64        `json:"remaining_points"`
}

// ApplyResult carries FreeShipping for the billing side; shipping rewards
// never discount the amount itself.
type ApplyResult struct {
	Discount     decimal.Decimal `json:"discount"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	FreeShipping bool            `json:"free_shipping"`
	Reward       IssuedReward    `json:"reward"`
}

type ReferralResult struct {
	Points      int64 `json:"points"`
	TotalPoints int64 `json:"total_points"`
}

type AvailableReward struct {
	Reward
	Available bool `json:"available"`
}

type NextTierInfo struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	MinPoints    int64  `json:"min_points"`
	PointsNeeded int64  `json:"points_needed"`
}

type Summary struct {
	Customer         *Customer         `json:"customer"`
	TierDetails      Tier              `json:"tier_details"`
	NextTier         *NextTierInfo     `json:"next_tier"`
	AvailableRewards []AvailableReward `json:"available_rewards"`
	Benefits         []string          `json:"benefits"`
}

type tierChange struct {
	from, to Tier
	at       time.Time
}

// now is truncated to milliseconds, the coarsest precision any supported
// dialect stores, so hashed timestamps survive a database round trip.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

var maxBalance = decimal.NewFromInt(math.MaxInt64)

// fitsBalance reports whether balance + credit stays within int64.
func fitsBalance(balance int64, credit decimal.Decimal) bool {
	return !credit.GreaterThan(maxBalance.Sub(decimal.NewFromInt(balance)))
}

func (s *Service) newID() string {
	return s.node.Generate().String()
}

func (s *Service) tierOf(c *Customer) Tier {
	if t, ok := s.catalog.Tier(c.Tier); ok {
		return t
	}
	return s.catalog.TierFor(c.Points)
}

// mutate runs fn inside Store.Update and, once the change is stored, drops
// the cached summary and sends tier change notifications.
func (s *Service) mutate(ctx context.Context, id string, fn func(c *Customer, now time.Time) error) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidCustomerID
	}

	var changes []tierChange
	c, err := s.store.Update(ctx, id, func(c *Customer) error {
		changes = changes[:0]
		now := s.now()
		if err := fn(c, now); err != nil {
			return err
		}
		if ch := s.recompute(c, now); ch != nil {
			changes = append(changes, *ch)
		}
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(id)
	for _, ch := range changes {
		s.notifyTierChange(ctx, c, ch)
	}
	return c, nil
}

// recompute moves c to the tier its balance earns and records the move.
func (s *Service) recompute(c *Customer, now time.Time) *tierChange {
	target := s.catalog.TierFor(c.Points)
	if target.Code == c.Tier {
		return nil
	}

	from := s.tierOf(c)
	verb := "Upgraded"
	if s.catalog.Rank(target.Code) < s.catalog.Rank(c.Tier) {
		verb = "Downgraded"
	}

	c.appendEntry(HistoryEntry{
		ID:          s.newID(),
		Type:        EntryTierChange,
		FromTier:    c.Tier,
		ToTier:      target.Code,
		Description: fmt.Sprintf("%s to %s tier", verb, target.Code),
		CreatedAt:   now,
	})
	c.Tier = target.Code

	return &tierChange{from: from, to: target, at: now}
}

func (s *Service) notifyTierChange(ctx context.Context, c *Customer, ch tierChange) {
	ev := notification.Event{
		CustomerID: c.ID,
		Type:       notification.TypeTierChange,
		Data: map[string]string{
			"from": ch.from.Code,
			"to":   ch.to.Code,
		},
		OccurredAt: ch.at,
	}

	if s.catalog.Rank(ch.to.Code) > s.catalog.Rank(ch.from.Code) {
		ev.Title = "Congratulations! 🎉"
		ev.Message = fmt.Sprintf("You've been upgraded to %s tier! Enjoy new exclusive benefits.", ch.to.Name)
		ev.Priority = notification.PriorityHigh
	} else {
		ev.Title = "Tier update"
		ev.Message = fmt.Sprintf("Your tier has changed to %s. Earn more points to move back up.", ch.to.Name)
		ev.Priority = notification.PriorityMedium
	}

	if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		zap.L().Warn("failed to send tier change notification",
			zap.String("customer_id", c.ID),
			zap.String("from", ch.from.Code),
			zap.String("to", ch.to.Code),
			zap.Error(err),
		)
	}
}

// InitializeCustomer creates the record on first use and returns an
// existing record unchanged.
func (s *Service) InitializeCustomer(ctx context.Context, id, name string) (*Customer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidCustomerID
	}

	c, err := s.store.Load(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, err
	}

	now := s.now()
	c = &Customer{
		ID:        id,
		Name:      name,
		Points:    0,
		Tier:      s.catalog.TierFor(0).Code,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
		History:   []HistoryEntry{},
		Rewards:   []IssuedReward{},
		Referrals: []Referral{},
	}

	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCustomerExists) {
			return s.store.Load(ctx, id)
		}
		zap.L().Error("failed to create customer", zap.String("customer_id", id), zap.Error(err))
		return nil, err
	}

	zap.L().Info("customer enrolled", zap.String("customer_id", id), zap.String("tier", c.Tier))
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	return s.store.Load(ctx, id)
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	zap.L().Info("customer deleted", zap.String("customer_id", id))
	return nil
}

// AddPoints credits floor(amount × multiplier) using the tier held before
// the purchase.
func (s *Service) AddPoints(ctx context.Context, id string, amount decimal.Decimal) (*EarnResult, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var earned int64
	c, err := s.mutate(ctx, id, func(c *Customer, now time.Time) error {
		tier := s.tierOf(c)
		credit := amount.Mul(tier.Multiplier).Floor()
		if !fitsBalance(c.Points, credit) {
			return ErrInvalidAmount
		}
		earned = credit.IntPart()

		c.Points += earned
		c.appendEntry(HistoryEntry{
			ID:          s.newID(),
			Type:        EntryEarn,
			Points:      earned,
			Amount:      amount.Round(2),
			Channel:     middleware.GetChannel(ctx),
			Description: "Purchase points",
			CreatedAt:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("points earned",
		zap.String("customer_id", id),
		zap.Int64("earned", earned),
		zap.Int64("total", c.Points),
		zap.String("trace_id", middleware.TraceID(ctx)),
	)

	return &EarnResult{
		EarnedPoints: earned,
		TotalPoints:  c.Points,
		Tier:         c.Tier,
	}, nil
}

// RecomputeTier reports whether the customer's tier moved.
func (s *Service) RecomputeTier(ctx context.Context, id string) (bool, error) {
	var before string
	c, err := s.mutate(ctx, id, func(c *Customer, _ time.Time) error {
		before = c.Tier
		return nil
	})
	if err != nil {
		return false, err
	}
	return c.Tier != before, nil
}

func (s *Service) nextCode(ctx context.Context) (string, error) {
	if s.codes == nil {
		return "RWD-" + s.newID(), nil
	}
	return s.codes.NextRewardCode(ctx)
}

// RedeemReward exchanges points for a new issued reward. Each call issues a
// separate reward.
func (s *Service) RedeemReward(ctx context.Context, id, rewardID string) (*RedeemResult, error) {
	reward, ok := s.catalog.Reward(rewardID)
	if !ok {
		return nil, ErrRewardNotFound
	}

	var issued IssuedReward
	c, err := s.mutate(ctx, id, func(c *Customer, now time.Time) error {
		eligible, err := s.catalog.Eligible(reward, c.Tier, c.Points)
		if err != nil {
			return err
		}
		if !eligible {
			return ErrRewardNotEligible
		}
		if c.Points < reward.Points {
			return ErrInsufficientPoints
		}

		code, err := s.nextCode(ctx)
		if err != nil {
			return err
		}

		c.Points -= reward.Points
		issued = IssuedReward{
			ID:          s.newID(),
			CustomerID:  c.ID,
			Code:        code,
			RewardID:    reward.ID,
			Name:        reward.Name,
			Kind:        reward.Kind,
			Value:       reward.Value,
			Points:      reward.Points,
			Description: reward.Description,
			RedeemedAt:  now,
			ExpiresAt:   now.Add(s.opts.RewardValidity),
		}
		c.Rewards = append(c.Rewards, issued)
		c.appendEntry(HistoryEntry{
			ID:          s.newID(),
			Type:        EntryRedeem,
			Points:      -reward.Points,
			RewardID:    reward.ID,
			Channel:     middleware.GetChannel(ctx),
			Description: "Redeemed " + reward.Name,
			CreatedAt:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("reward redeemed",
		zap.String("customer_id", id),
		zap.String("reward_id", reward.ID),
		zap.String("code", issued.Code),
		zap.Int64("remaining", c.Points),
	)

	return &RedeemResult{Reward: issued, RemainingPoints: c.Points}, nil
}

// findUsable matches ref against issued reward ids and codes first, then
// against catalog ids picking the usable reward that expires soonest.
func findUsable(c *Customer, ref string, now time.Time) int {
	for i := range c.Rewards {
		r := &c.Rewards[i]
		if (r.ID == ref || r.Code == ref) && r.Usable(now) {
			return i
		}
	}

	best := -1
	for i := range c.Rewards {
		r := &c.Rewards[i]
		if r.RewardID != ref || !r.Usable(now) {
			continue
		}
		if best < 0 || r.ExpiresAt.Before(c.Rewards[best].ExpiresAt) {
			best = i
		}
	}
	return best
}

// ApplyReward spends an issued reward against a purchase amount.
func (s *Service) ApplyReward(ctx context.Context, id string, amount decimal.Decimal, ref string) (*ApplyResult, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var res ApplyResult
	_, err := s.mutate(ctx, id, func(c *Customer, now time.Time) error {
		idx := findUsable(c, ref, now)
		if idx < 0 {
			return ErrInvalidOrExpired
		}
		r := &c.Rewards[idx]

		discount := decimal.Zero
		switch r.Kind {
		case KindDiscount:
			discount = amount.Mul(r.Value).Round(2)
		case KindGiftCard:
			discount = decimal.Min(amount, r.Value)
		case KindShipping:
			res.FreeShipping = true
		}

		usedAt := now
		r.Used = true
		r.UsedAt = &usedAt

		res.Discount = discount
		res.FinalAmount = amount.Sub(discount)
		res.Reward = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("reward applied",
		zap.String("customer_id", id),
		zap.String("reward_id", res.Reward.RewardID),
		zap.String("discount", res.Discount.String()),
	)
	return &res, nil
}

// AddReferral credits the referral bonus to id for bringing in referredID.
func (s *Service) AddReferral(ctx context.Context, id, referredID string) (*ReferralResult, error) {
	if id == referredID {
		return nil, ErrSelfReferral
	}
	if !s.flags.Enabled(ctx, id, featureflags.ReferralProgram, true) {
		return nil, ErrReferralDisabled
	}
	if _, err := s.store.Load(ctx, referredID); err != nil {
		return nil, err
	}

	bonus := s.opts.ReferralBonus
	meta, err := json.Marshal(map[string]string{"referred_customer_id": referredID})
	if err != nil {
		return nil, err
	}

	c, err := s.mutate(ctx, id, func(c *Customer, now time.Time) error {
		if c.hasReferred(referredID) {
			return ErrDuplicateReferral
		}
		if !fitsBalance(c.Points, decimal.NewFromInt(bonus)) {
			return ErrInvalidAmount
		}

		c.Points += bonus
		c.Referrals = append(c.Referrals, Referral{
			ID:                 s.newID(),
			CustomerID:         c.ID,
			ReferredCustomerID: referredID,
			Points:             bonus,
			CreatedAt:          now,
		})
		c.appendEntry(HistoryEntry{
			ID:          s.newID(),
			Type:        EntryReferral,
			Points:      bonus,
			Channel:     middleware.GetChannel(ctx),
			Description: "Referral bonus",
			Metadata:    datatypes.JSON(meta),
			CreatedAt:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReferralResult{Points: bonus, TotalPoints: c.Points}, nil
}

func (s *Service) availableRewards(c *Customer) ([]AvailableReward, error) {
	rewards := s.catalog.Rewards()
	out := make([]AvailableReward, 0, len(rewards))
	for _, r := range rewards {
		eligible, err := s.catalog.Eligible(r, c.Tier, c.Points)
		if err != nil {
			return nil, err
		}
		out = append(out, AvailableReward{
			Reward:    r,
			Available: eligible && c.Points >= r.Points,
		})
	}
	return out, nil
}

func (s *Service) AvailableRewards(ctx context.Context, id string) ([]AvailableReward, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.availableRewards(c)
}

func (s *Service) TierBenefits(ctx context.Context, id string) ([]string, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.tierOf(c).Benefits, nil
}

func (s *Service) nextTier(c *Customer) *NextTierInfo {
	next, ok := s.catalog.NextTier(s.tierOf(c).Code)
	if !ok {
		return nil
	}
	return &NextTierInfo{
		Code:         next.Code,
		Name:         next.Name,
		MinPoints:    next.MinPoints,
		PointsNeeded: next.MinPoints - c.Points,
	}
}

// NextTier returns nil for customers already at the top of the ladder.
func (s *Service) NextTier(ctx context.Context, id string) (*NextTierInfo, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.nextTier(c), nil
}

// Summary is served from the summary cache. The returned value is shared and
// must not be modified.
func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	return s.cache.GetOrLoad(id, func() (*Summary, error) {
		c, err := s.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		rewards, err := s.availableRewards(c)
		if err != nil {
			return nil, err
		}

		tier := s.tierOf(c)
		return &Summary{
			Customer:         c,
			TierDetails:      tier,
			NextTier:         s.nextTier(c),
			AvailableRewards: rewards,
			Benefits:         tier.Benefits,
		}, nil
	})
}

// VerifyHistory checks the hash chain and that the balance and tier agree
// with the ledger.
func (s *Service) VerifyHistory(ctx context.Context, id string) (bool, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return false, err
	}

	logger := zap.L().With(zap.String("customer_id", id))

	if !VerifyChain(c.History) {
		logger.Warn("history chain broken")
		return false, nil
	}

	var sum int64
	for _, e := range c.History {
		sum += e.Points
	}
	if sum != c.Points {
		logger.Warn("balance does not match history", zap.Int64("balance", c.Points), zap.Int64("ledger", sum))
		return false, nil
	}

	if want := s.catalog.TierFor(c.Points).Code; want != c.Tier {
		logger.Warn("tier does not match balance", zap.String("tier", c.Tier), zap.String("expected", want))
		return false, nil
	}

	return true, nil
}

// ExportHistory uploads a JSON snapshot of the record and returns its key.
func (s *Service) ExportHistory(ctx context.Context, id string) (string, error) {
	if s.objects == nil {
		return "", ErrExportUnavailable
	}

	c, err := s.store.Load(ctx, id)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("loyalty/%s/%s.json", id, s.now().Format("20060102T150405Z"))
	if err := s.objects.Put(ctx, key, body, "application/json"); err != nil {
		if errors.Is(err, minio.ErrStorageDisabled) {
			return "", ErrExportUnavailable
		}
		zap.L().Error("failed to export history", zap.String("customer_id", id), zap.Error(err))
		return "", err
	}

	return key, nil
}
