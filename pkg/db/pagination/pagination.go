package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"vaultbooks/pkg/db/option"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// Size clamps Limit into [1, MaxLimit], using DefaultLimit when unset.
func (p Pagination) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// Cursor points at the last row of a page ordered by created_at DESC, id DESC.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// After restricts a newest-first query to rows strictly older than c.
func After(c *Cursor) option.QueryOption {
	return option.QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if c == nil {
			return db
		}
		return db.Where("(created_at < ? OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	})
}

// Page cuts data fetched with limit+1 rows down to limit and reports whether
// another page follows.
func Page[T any](data []*T, limit int, cursorOf func(*T) Cursor) ([]*T, PageInfo, error) {
	if len(data) <= limit {
		return data, PageInfo{}, nil
	}

	data = data[:limit]
	next, err := EncodeCursor(cursorOf(data[len(data)-1]))
	if err != nil {
		return nil, PageInfo{}, err
	}
	return data, PageInfo{NextCursor: next, HasMore: true}, nil
}
