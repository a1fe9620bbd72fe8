package loyalty

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type EntryType string

const (
	EntryEarn       EntryType = "EARN"
	EntryRedeem     EntryType = "REDEEM"
	EntryTierChange EntryType = "TIER_CHANGE"
	EntryReferral   EntryType = "REFERRAL"
)

// Customer is the loyalty record of one customer. History, Rewards and
// Referrals are stored in their own tables and loaded by the Store.
type Customer struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Points    int64     `gorm:"column:points;not null;default:0" json:"points"`
	Tier      string    `gorm:"column:tier;type:varchar(32)" json:"tier"`
	JoinedAt  time.Time `gorm:"column:joined_at" json:"joined_at"`
	CreatedAt time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"-"`

	History   []HistoryEntry `gorm:"-" json:"history"`
	Rewards   []IssuedReward `gorm:"-" json:"rewards"`
	Referrals []Referral     `gorm:"-" json:"referrals"`
}

func (Customer) TableName() string {
	return "loyalty_customers"
}

// HistoryEntry is one ledger line. Entries are append-only; each one hashes
// its predecessor's hash.
type HistoryEntry struct {
	ID           string          `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CustomerID   string          `gorm:"column:customer_id;uniqueIndex:idx_loyalty_history_seq,priority:1" json:"-"`
	Seq          int64           `gorm:"column:seq;uniqueIndex:idx_loyalty_history_seq,priority:2" json:"seq"`
	Type         EntryType       `gorm:"column:type;type:varchar(20)" json:"type"`
	Points       int64           `gorm:"column:points" json:"points"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,2)" json:"amount"`
	FromTier     string          `gorm:"column:from_tier" json:"from,omitempty"`
	ToTier       string          `gorm:"column:to_tier" json:"to,omitempty"`
	RewardID     string          `gorm:"column:reward_id" json:"reward_id,omitempty"`
	Channel      string          `gorm:"column:channel" json:"channel,omitempty"`
	Description  string          `gorm:"column:description" json:"description"`
	Metadata     datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	PreviousHash string          `gorm:"column:previous_hash" json:"previous_hash"`
	Hash         string          `gorm:"column:hash" json:"hash"`
}

func (HistoryEntry) TableName() string {
	return "loyalty_history_entries"
}

func (e *HistoryEntry) HashFields() map[string]string {
	return map[string]string{
		"id":            e.ID,
		"customer_id":   e.CustomerID,
		"seq":           fmt.Sprintf("%d", e.Seq),
		"type":          string(e.Type),
		"points":        fmt.Sprintf("%d", e.Points),
		"amount":        e.Amount.StringFixed(2),
		"from_tier":     e.FromTier,
		"to_tier":       e.ToTier,
		"reward_id":     e.RewardID,
		"channel":       e.Channel,
		"description":   e.Description,
		"created_at":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash": e.PreviousHash,
	}
}

func (e *HistoryEntry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// IssuedReward is a reward owned by a customer after redemption.
type IssuedReward struct {
	ID          string          `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CustomerID  string          `gorm:"column:customer_id;index" json:"-"`
	Code        string          `gorm:"column:code;type:varchar(32)" json:"code"`
	RewardID    string          `gorm:"column:reward_id;index" json:"reward_id"`
	Name        string          `gorm:"column:name" json:"name"`
	Kind        RewardKind      `gorm:"column:kind;type:varchar(20)" json:"kind"`
	Value       decimal.Decimal `gorm:"column:value;type:decimal(20,4)" json:"value"`
	Points      int64           `gorm:"column:points" json:"points"`
	Description string          `gorm:"column:description" json:"description"`
	RedeemedAt  time.Time       `gorm:"column:redeemed_at" json:"redeemed_at"`
	ExpiresAt   time.Time       `gorm:"column:expires_at" json:"expires_at"`
	Used        bool            `gorm:"column:used;not null;default:false" json:"used"`
	UsedAt      *time.Time      `gorm:"column:used_at" json:"used_at,omitempty"`
}

func (IssuedReward) TableName() string {
	return "loyalty_issued_rewards"
}

// Usable reports whether the reward is unused and strictly before expiry.
func (r *IssuedReward) Usable(now time.Time) bool {
	return !r.Used && r.ExpiresAt.After(now)
}

type Referral struct {
	ID                 string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CustomerID         string    `gorm:"column:customer_id;uniqueIndex:idx_loyalty_referral,priority:1" json:"-"`
	ReferredCustomerID string    `gorm:"column:referred_customer_id;uniqueIndex:idx_loyalty_referral,priority:2" json:"referred_customer_id"`
	Points             int64     `gorm:"column:points" json:"points"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Referral) TableName() string {
	return "loyalty_referrals"
}

// Models lists the tables owned by the loyalty service.
func Models() []any {
	return []any{&Customer{}, &HistoryEntry{}, &IssuedReward{}, &Referral{}}
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	out := *c

	out.History = make([]HistoryEntry, len(c.History))
	for i, e := range c.History {
		if e.Metadata != nil {
			e.Metadata = append(datatypes.JSON(nil), e.Metadata...)
		}
		out.History[i] = e
	}

	out.Rewards = make([]IssuedReward, len(c.Rewards))
	for i, r := range c.Rewards {
		if r.UsedAt != nil {
			t := *r.UsedAt
			r.UsedAt = &t
		}
		out.Rewards[i] = r
	}

	out.Referrals = append([]Referral(nil), c.Referrals...)
	if out.Referrals == nil {
		out.Referrals = []Referral{}
	}
	return &out
}

func (c *Customer) lastHash() string {
	if len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1].Hash
}

// appendEntry assigns the next sequence number and chains e onto the history.
func (c *Customer) appendEntry(e HistoryEntry) HistoryEntry {
	e.CustomerID = c.ID
	e.Seq = int64(len(c.History)) + 1
	e.PreviousHash = c.lastHash()
	e.Hash = e.GenerateHash()
	c.History = append(c.History, e)
	return e
}

func (c *Customer) hasReferred(customerID string) bool {
	for _, r := range c.Referrals {
		if r.ReferredCustomerID == customerID {
			return true
		}
	}
	return false
}

// VerifyChain reports whether every entry's hash, link and sequence number
// is intact.
func VerifyChain(entries []HistoryEntry) bool {
	var last string
	for i := range entries {
		e := &entries[i]
		if e.Seq != int64(i)+1 || e.PreviousHash != last || e.Hash != e.GenerateHash() {
			return false
		}
		last = e.Hash
	}
	return true
}
