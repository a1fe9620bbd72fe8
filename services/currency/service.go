package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	// maxSpelled bounds AmountInWords so the whole part stays well inside uint64.
	maxSpelled = decimal.New(1, 15)
	// maxFormatted bounds Format to whole parts that fit int64.
	maxFormatted = decimal.NewFromInt(math.MaxInt64)
)

type Service struct {
	registry *Registry
}

func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

func (s *Service) Registry() *Registry {
	return s.registry
}

type Conversion struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Result decimal.Decimal `json:"result"`
}

// Convert moves amount from one currency to another through the USD base
// rate and rounds to the target currency's minor unit.
func (s *Service) Convert(amount decimal.Decimal, from, to string) (Conversion, error) {
	src, err := s.registry.Lookup(from)
	if err != nil {
		return Conversion{}, err
	}
	dst, err := s.registry.Lookup(to)
	if err != nil {
		return Conversion{}, err
	}

	result := amount
	if src.Code != dst.Code {
		result = amount.Mul(dst.Rate).Div(src.Rate)
	}
	return Conversion{
		Amount: amount,
		From:   src.Code,
		To:     dst.Code,
		Result: result.Round(dst.Decimals),
	}, nil
}

// Format renders amount with the currency symbol and the grouping rules of
// the currency's locale. Whole and minor units are printed separately as
// integers so no digit passes through a float.
func (s *Service) Format(amount decimal.Decimal, code string) (string, error) {
	cur, err := s.registry.Lookup(code)
	if err != nil {
		return "", err
	}

	rounded := amount.Round(cur.Decimals)
	abs := rounded.Abs()
	if abs.GreaterThan(maxFormatted) {
		return "", ErrAmountTooLarge
	}

	p := message.NewPrinter(language.Make(cur.Locale))
	whole := abs.Truncate(0)

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteString("-")
	}
	b.WriteString(cur.Symbol)
	b.WriteString(p.Sprint(number.Decimal(whole.IntPart())))
	if cur.Decimals > 0 {
		minor := abs.Sub(whole).Shift(cur.Decimals).IntPart()
		b.WriteString(decimalSeparator(p))
		b.WriteString(p.Sprint(number.Decimal(minor,
			number.MinIntegerDigits(int(cur.Decimals)),
			number.NoSeparator(),
		)))
	}
	return b.String(), nil
}

// decimalSeparator is whatever the locale prints between the digits of 0.5.
func decimalSeparator(p *message.Printer) string {
	r := []rune(p.Sprint(number.Decimal(0.5, number.Scale(1))))
	if len(r) < 3 {
		return "."
	}
	return string(r[1 : len(r)-1])
}

// AmountInWords spells out a non-negative amount for invoices. NPR is
// spelled in Nepali with lakh and crore grouping, everything else in English.
// The amount is rounded half away from zero to two places first.
func (s *Service) AmountInWords(amount decimal.Decimal, code string) (string, error) {
	cur, err := s.registry.Lookup(code)
	if err != nil {
		return "", err
	}
	if amount.IsNegative() {
		return "", ErrInvalidAmount
	}

	rounded := amount.Round(2)
	if rounded.GreaterThanOrEqual(maxSpelled) {
		return "", ErrAmountTooLarge
	}
	whole := rounded.Truncate(0)
	fraction := rounded.Sub(whole).Shift(2).IntPart()

	if cur.Words == Nepali {
		return spellNepali(uint64(whole.IntPart()), uint64(fraction)), nil
	}
	return spellEnglish(uint64(whole.IntPart()), uint64(fraction), cur.Name), nil
}
