package loyalty

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

const cardQRSize = 200

type LoyaltyCard struct {
	CardNumber string    `json:"card_number"`
	CustomerID string    `json:"customer_id"`
	Name       string    `json:"name"`
	Tier       Tier      `json:"tier"`
	Points     int64     `json:"points"`
	IssueDate  time.Time `json:"issue_date"`
	// QRPayload is the JSON encoded in QRCode, for scanners at the till.
	QRPayload string `json:"qr_payload"`
	// QRCode is a PNG data URL.
	QRCode string `json:"qr_code"`
}

// CardQRPayload is what the card's QR code carries.
type CardQRPayload struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Points int64     `json:"points"`
	Tier   string    `json:"tier"`
	Joined time.Time `json:"joined"`
}

func (s *Service) LoyaltyCard(ctx context.Context, id string) (*LoyaltyCard, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	number := c.ID
	if len(number) < cardNumberWidth {
		number = strings.Repeat("0", cardNumberWidth-len(number)) + number
	}

	tier := s.tierOf(c)
	payload, err := json.Marshal(CardQRPayload{
		ID:     c.ID,
		Name:   c.Name,
		Points: c.Points,
		Tier:   tier.Code,
		Joined: c.JoinedAt,
	})
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, cardQRSize)
	if err != nil {
		return nil, err
	}

	return &LoyaltyCard{
		CardNumber: s.opts.CardPrefix + number,
		CustomerID: c.ID,
		Name:       c.Name,
		Tier:       tier,
		Points:     c.Points,
		IssueDate:  c.JoinedAt,
		QRPayload:  string(payload),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}
