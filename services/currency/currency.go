package currency

import (
	"fmt"
	"sort"
	"strings"

	"vaultbooks/pkg/config"
	"vaultbooks/pkg/errutil"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedCurrency = errutil.BadRequest("unsupported currency", nil)
	ErrInvalidAmount       = errutil.BadRequest("amount must be a non-negative number", nil)
	ErrAmountTooLarge      = errutil.BadRequest("amount is too large", nil)
)

// Language selects the word table used by AmountInWords.
type Language string

const (
	English Language = "en"
	Nepali  Language = "ne"
)

// Currency describes one supported currency. Rate is units per 1 USD.
type Currency struct {
	Code     string          `json:"code"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Locale   string          `json:"locale"`
	Decimals int32           `json:"decimals"`
	Rate     decimal.Decimal `json:"rate"`
	Words    Language        `json:"-"`
}

const BaseCode = "USD"

func defaultCurrencies() []Currency {
	return []Currency{
		{Code: "USD", Symbol: "$", Name: "US Dollar", Locale: "en-US", Decimals: 2, Rate: decimal.NewFromInt(1), Words: English},
		{Code: "NPR", Symbol: "रू", Name: "Nepali Rupee", Locale: "ne-NP", Decimals: 2, Rate: decimal.RequireFromString("132.95"), Words: Nepali},
		{Code: "EUR", Symbol: "€", Name: "Euro", Locale: "en-IE", Decimals: 2, Rate: decimal.RequireFromString("0.91"), Words: English},
		{Code: "GBP", Symbol: "£", Name: "British Pound", Locale: "en-GB", Decimals: 2, Rate: decimal.RequireFromString("0.79"), Words: English},
		{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Locale: "en-IN", Decimals: 2, Rate: decimal.RequireFromString("83.20"), Words: English},
	}
}

// Registry is the immutable table of currencies the service knows about.
type Registry struct {
	byCode      map[string]Currency
	defaultCode string
}

func NewRegistry(cfg *config.Config) (*Registry, error) {
	return RegistryFromConfig(cfg.Currency)
}

// RegistryFromConfig applies configured rate overrides on top of the
// built-in table. Rates for codes outside the table are ignored.
func RegistryFromConfig(c config.Currency) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Currency), defaultCode: BaseCode}
	for _, cur := range defaultCurrencies() {
		r.byCode[cur.Code] = cur
	}

	for code, raw := range c.Rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		cur, ok := r.byCode[code]
		if !ok {
			zap.L().Warn("ignoring rate for unknown currency", zap.String("code", code))
			continue
		}
		if code == BaseCode {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q for currency %s", raw, code)
		}
		cur.Rate = rate
		r.byCode[code] = cur
	}

	if c.Default != "" {
		code := strings.ToUpper(c.Default)
		if _, ok := r.byCode[code]; !ok {
			return nil, fmt.Errorf("default currency %s is not supported", code)
		}
		r.defaultCode = code
	}
	return r, nil
}

// Lookup resolves a code case-insensitively. An empty code yields the default currency.
func (r *Registry) Lookup(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = r.defaultCode
	}
	cur, ok := r.byCode[code]
	if !ok {
		return Currency{}, ErrUnsupportedCurrency
	}
	return cur, nil
}

func (r *Registry) Default() Currency {
	return r.byCode[r.defaultCode]
}

// List returns the currencies sorted by code.
func (r *Registry) List() []Currency {
	out := make([]Currency, 0, len(r.byCode))
	for _, cur := range r.byCode {
		out = append(out, cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
