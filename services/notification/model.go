package notification

import (
	"time"

	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Event types
const (
	TypeTierChange = "TIER_CHANGE"
)

// Event is what producers hand to a Notifier.
type Event struct {
	CustomerID string            `json:"customer_id"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Priority   Priority          `json:"priority"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type Notification struct {
	ID         string            `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CustomerID string            `gorm:"column:customer_id;index;not null" json:"customer_id"`
	Type       string            `gorm:"column:type;type:varchar(40);index" json:"type"`
	Title      string            `gorm:"column:title" json:"title"`
	Message    string            `gorm:"column:message;type:text" json:"message"`
	Priority   Priority          `gorm:"column:priority;type:varchar(10);default:'normal'" json:"priority"`
	Read       bool              `gorm:"column:is_read;not null;default:false" json:"read"`
	ReadAt     *time.Time        `gorm:"column:read_at" json:"read_at,omitempty"`
	Data       datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
