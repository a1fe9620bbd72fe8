package loyalty

import (
	"fmt"
	"slices"
	"strings"

	"vaultbooks/pkg/celengine"
	"vaultbooks/pkg/config"

	"github.com/google/cel-go/cel"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

type RewardKind string

const (
	KindDiscount RewardKind = "discount"
	KindGiftCard RewardKind = "gift_card"
	KindShipping RewardKind = "shipping"
)

type Tier struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	MinPoints  int64           `json:"min_points"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Benefits   []string        `json:"benefits"`
}

func (t Tier) clone() Tier {
	t.Benefits = slices.Clone(t.Benefits)
	return t
}

// Reward is a catalog template. Value is a fraction for discounts, a currency
// amount for gift cards and unused for shipping.
type Reward struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Points      int64           `json:"points"`
	Kind        RewardKind      `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
	Eligibility string          `json:"eligibility,omitempty"`
}

// Catalog is the immutable tier ladder and reward list.
type Catalog struct {
	tiers   []Tier
	rewards []Reward
	tierIdx map[string]int
	rwdIdx  map[string]int
	env     *cel.Env
}

// eligibility expressions see the customer's tier code and balance.
var eligibilityAttrs = map[string]any{
	"tier":   "",
	"points": int64(0),
}

func DefaultTiers() []Tier {
	return []Tier{
		{
			Code:       "BRONZE",
			Name:       "Bronze",
			MinPoints:  0,
			Multiplier: decimal.NewFromInt(1),
			Benefits: []string{
				"Earn 1 point per dollar spent",
				"Birthday reward",
			},
		},
		{
			Code:       "SILVER",
			Name:       "Silver",
			MinPoints:  1000,
			Multiplier: decimal.RequireFromString("1.5"),
			Benefits: []string{
				"Earn 1.5 points per dollar spent",
				"Birthday reward",
				"5% discount on selected items",
				"Free delivery on orders over $50",
			},
		},
		{
			Code:       "GOLD",
			Name:       "Gold",
			MinPoints:  5000,
			Multiplier: decimal.NewFromInt(2),
			Benefits: []string{
				"Earn 2 points per dollar spent",
				"Birthday reward",
				"10% discount on selected items",
				"Free delivery on all orders",
				"Priority customer service",
			},
		},
		{
			Code:       "PLATINUM",
			Name:       "Platinum",
			MinPoints:  10000,
			Multiplier: decimal.NewFromInt(3),
			Benefits: []string{
				"Earn 3 points per dollar spent",
				"Birthday reward",
				"15% discount on all items",
				"Free delivery on all orders",
				"VIP customer service",
				"Exclusive early access to sales",
				"Special event invitations",
			},
		},
	}
}

func DefaultRewards() []Reward {
	return []Reward{
		{ID: "DISCOUNT_10", Name: "10% Off Next Purchase", Points: 500, Kind: KindDiscount, Value: decimal.RequireFromString("0.1"), Description: "Get 10% off your next purchase"},
		{ID: "DISCOUNT_20", Name: "20% Off Next Purchase", Points: 1000, Kind: KindDiscount, Value: decimal.RequireFromString("0.2"), Description: "Get 20% off your next purchase"},
		{ID: "FREE_DELIVERY", Name: "Free Delivery", Points: 300, Kind: KindShipping, Description: "Free delivery on your next order"},
		{ID: "GIFT_CARD_10", Name: "$10 Gift Card", Points: 800, Kind: KindGiftCard, Value: decimal.NewFromInt(10), Description: "Get a $10 gift card"},
		{ID: "GIFT_CARD_25", Name: "$25 Gift Card", Points: 2000, Kind: KindGiftCard, Value: decimal.NewFromInt(25), Description: "Get a $25 gift card"},
	}
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultTiers(), DefaultRewards())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates tiers and rewards. Tiers must start at 0 and be
// strictly ascending by MinPoints.
func NewCatalog(tiers []Tier, rewards []Reward) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("loyalty catalog: at least one tier is required")
	}

	env, err := celengine.GetOrBuildEnv(eligibilityAttrs)
	if err != nil {
		return nil, fmt.Errorf("loyalty catalog: build eligibility env: %w", err)
	}

	c := &Catalog{
		tiers:   make([]Tier, len(tiers)),
		rewards: make([]Reward, len(rewards)),
		tierIdx: make(map[string]int, len(tiers)),
		rwdIdx:  make(map[string]int, len(rewards)),
		env:     env,
	}
	for i, t := range tiers {
		c.tiers[i] = t.clone()
	}
	copy(c.rewards, rewards)

	for i, t := range c.tiers {
		if t.Code == "" {
			return nil, fmt.Errorf("loyalty catalog: tier %d has no code", i)
		}
		if _, dup := c.tierIdx[t.Code]; dup {
			return nil, fmt.Errorf("loyalty catalog: duplicate tier %s", t.Code)
		}
		if i == 0 && t.MinPoints != 0 {
			return nil, fmt.Errorf("loyalty catalog: first tier %s must start at 0 points", t.Code)
		}
		if i > 0 && t.MinPoints <= c.tiers[i-1].MinPoints {
			return nil, fmt.Errorf("loyalty catalog: tier %s threshold must exceed %s", t.Code, c.tiers[i-1].Code)
		}
		if !t.Multiplier.IsPositive() {
			return nil, fmt.Errorf("loyalty catalog: tier %s multiplier must be positive", t.Code)
		}
		c.tierIdx[t.Code] = i
	}

	for i, r := range c.rewards {
		if r.ID == "" {
			return nil, fmt.Errorf("loyalty catalog: reward %d has no id", i)
		}
		if _, dup := c.rwdIdx[r.ID]; dup {
			return nil, fmt.Errorf("loyalty catalog: duplicate reward %s", r.ID)
		}
		if r.Points <= 0 {
			return nil, fmt.Errorf("loyalty catalog: reward %s must cost points", r.ID)
		}

		switch r.Kind {
		case KindDiscount:
			if !r.Value.IsPositive() || r.Value.GreaterThan(decimal.NewFromInt(1)) {
				return nil, fmt.Errorf("loyalty catalog: discount %s value must be in (0,1]", r.ID)
			}
		case KindGiftCard:
			if !r.Value.IsPositive() {
				return nil, fmt.Errorf("loyalty catalog: gift card %s value must be positive", r.ID)
			}
		case KindShipping:
		default:
			return nil, fmt.Errorf("loyalty catalog: reward %s has unknown kind %q", r.ID, r.Kind)
		}

		if r.Eligibility != "" {
			if err := celengine.ValidateExpression(env, r.Eligibility); err != nil {
				return nil, fmt.Errorf("loyalty catalog: reward %s eligibility: %w", r.ID, err)
			}
		}
		c.rwdIdx[r.ID] = i
	}

	return c, nil
}

// CatalogFromConfig builds the catalog from LOYALTY.TIERS and LOYALTY.REWARDS,
// falling back to the defaults for whichever list is empty.
func CatalogFromConfig(cfg config.Loyalty) (*Catalog, error) {
	tiers := DefaultTiers()
	if len(cfg.Tiers) > 0 {
		tiers = make([]Tier, 0, len(cfg.Tiers))
		for _, t := range cfg.Tiers {
			mult, err := decimal.NewFromString(t.Multiplier)
			if err != nil {
				return nil, fmt.Errorf("loyalty catalog: tier %s multiplier %q: %w", t.Code, t.Multiplier, err)
			}
			code := strings.ToUpper(t.Code)
			name := t.Name
			if name == "" {
				name = code
			}
			tiers = append(tiers, Tier{
				Code:       code,
				Name:       name,
				MinPoints:  t.MinPoints,
				Multiplier: mult,
				Benefits:   t.Benefits,
			})
		}
	}

	rewards := DefaultRewards()
	if len(cfg.Rewards) > 0 {
		rewards = make([]Reward, 0, len(cfg.Rewards))
		for _, r := range cfg.Rewards {
			value := decimal.Zero
			if r.Value != "" {
				v, err := decimal.NewFromString(r.Value)
				if err != nil {
					return nil, fmt.Errorf("loyalty catalog: reward %s value %q: %w", r.Name, r.Value, err)
				}
				value = v
			}
			id := r.ID
			if id == "" {
				id = rewardIDFromName(r.Name)
			}
			rewards = append(rewards, Reward{
				ID:          id,
				Name:        r.Name,
				Points:      r.Points,
				Kind:        RewardKind(strings.ToLower(r.Kind)),
				Value:       value,
				Description: r.Description,
				Eligibility: r.Eligibility,
			})
		}
	}

	return NewCatalog(tiers, rewards)
}

func rewardIDFromName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(slug.Make(name), "-", "_"))
}

// TierFor returns the highest tier whose threshold does not exceed points.
func (c *Catalog) TierFor(points int64) Tier {
	for i := len(c.tiers) - 1; i > 0; i-- {
		if c.tiers[i].MinPoints <= points {
			return c.tiers[i].clone()
		}
	}
	return c.tiers[0].clone()
}

func (c *Catalog) Tier(code string) (Tier, bool) {
	i, ok := c.tierIdx[code]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[i].clone(), true
}

// Rank is the position of code in the ladder, -1 when unknown.
func (c *Catalog) Rank(code string) int {
	i, ok := c.tierIdx[code]
	if !ok {
		return -1
	}
	return i
}

func (c *Catalog) NextTier(code string) (Tier, bool) {
	i, ok := c.tierIdx[code]
	if !ok || i+1 >= len(c.tiers) {
		return Tier{}, false
	}
	return c.tiers[i+1].clone(), true
}

func (c *Catalog) Reward(id string) (Reward, bool) {
	i, ok := c.rwdIdx[id]
	if !ok {
		return Reward{}, false
	}
	return c.rewards[i], true
}

func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, len(c.tiers))
	for i, t := range c.tiers {
		out[i] = t.clone()
	}
	return out
}

func (c *Catalog) Rewards() []Reward {
	out := make([]Reward, len(c.rewards))
	copy(out, c.rewards)
	return out
}

// Eligible evaluates the reward's eligibility expression for a customer.
func (c *Catalog) Eligible(r Reward, tier string, points int64) (bool, error) {
	if r.Eligibility == "" {
		return true, nil
	}
	return celengine.Evaluate(c.env, r.Eligibility, map[string]any{
		"tier":   tier,
		"points": points,
	})
}
