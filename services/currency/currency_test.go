package currency

import (
	"errors"
	"testing"

	"vaultbooks/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	r, err := RegistryFromConfig(config.Currency{})
	require.NoError(t, err)
	return NewService(r)
}

func TestRegistry_Defaults(t *testing.T) {
	r, err := RegistryFromConfig(config.Currency{})
	require.NoError(t, err)

	require.Equal(t, "USD", r.Default().Code)
	codes := make([]string, 0)
	for _, c := range r.List() {
		codes = append(codes, c.Code)
	}
	require.Equal(t, []string{"EUR", "GBP", "INR", "NPR", "USD"}, codes)

	npr, err := r.Lookup("npr")
	require.NoError(t, err)
	require.Equal(t, "रू", npr.Symbol)
	require.True(t, npr.Rate.Equal(dec("132.95")))

	_, err = r.Lookup("XYZ")
	require.True(t, errors.Is(err, ErrUnsupportedCurrency))
}

func TestRegistry_ConfigOverrides(t *testing.T) {
	r, err := RegistryFromConfig(config.Currency{
		Default: "eur",
		Rates:   map[string]string{"npr": "133.10", "usd": "2", "xyz": "9"},
	})
	require.NoError(t, err)
	require.Equal(t, "EUR", r.Default().Code)

	npr, err := r.Lookup("NPR")
	require.NoError(t, err)
	require.True(t, npr.Rate.Equal(dec("133.10")))

	usd, err := r.Lookup("USD")
	require.NoError(t, err)
	require.True(t, usd.Rate.Equal(decimal.NewFromInt(1)), "base rate is fixed")

	empty, err := r.Lookup("")
	require.NoError(t, err)
	require.Equal(t, "EUR", empty.Code)
}

func TestRegistry_InvalidConfig(t *testing.T) {
	_, err := RegistryFromConfig(config.Currency{Rates: map[string]string{"EUR": "abc"}})
	require.Error(t, err)

	_, err = RegistryFromConfig(config.Currency{Rates: map[string]string{"EUR": "-1"}})
	require.Error(t, err)

	_, err = RegistryFromConfig(config.Currency{Default: "JPY"})
	require.Error(t, err)
}

func TestService_Convert(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Convert(dec("100"), "USD", "NPR")
	require.NoError(t, err)
	require.Equal(t, "USD", res.From)
	require.Equal(t, "NPR", res.To)
	require.True(t, res.Result.Equal(dec("13295")), res.Result.String())

	res, err = svc.Convert(dec("13295"), "npr", "usd")
	require.NoError(t, err)
	require.True(t, res.Result.Equal(dec("100")), res.Result.String())

	res, err = svc.Convert(dec("100"), "EUR", "GBP")
	require.NoError(t, err)
	require.True(t, res.Result.Equal(dec("86.81")), res.Result.String())

	res, err = svc.Convert(dec("12.345"), "INR", "INR")
	require.NoError(t, err)
	require.True(t, res.Result.Equal(dec("12.35")), res.Result.String())

	_, err = svc.Convert(dec("1"), "USD", "JPY")
	require.True(t, errors.Is(err, ErrUnsupportedCurrency))
}

func TestService_Format(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.Format(dec("1234.5"), "USD")
	require.NoError(t, err)
	require.Equal(t, "$1,234.50", out)

	out, err = svc.Format(dec("-5"), "GBP")
	require.NoError(t, err)
	require.Equal(t, "-£5.00", out)

	_, err = svc.Format(dec("1"), "JPY")
	require.True(t, errors.Is(err, ErrUnsupportedCurrency))
}

func TestService_FormatKeepsCentsOnLargeAmounts(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.Format(dec("123456789012345678.91"), "USD")
	require.NoError(t, err)
	require.Equal(t, "$123,456,789,012,345,678.91", out)

	out, err = svc.Format(dec("9007199254740993.07"), "GBP")
	require.NoError(t, err)
	require.Equal(t, "£9,007,199,254,740,993.07", out)

	out, err = svc.Format(dec("-0.05"), "USD")
	require.NoError(t, err)
	require.Equal(t, "-$0.05", out)

	_, err = svc.Format(dec("10000000000000000000"), "USD")
	require.True(t, errors.Is(err, ErrAmountTooLarge))
}

func TestService_AmountInWords_English(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		amount string
		code   string
		want   string
	}{
		{"1234.56", "USD", "One Thousand Two Hundred Thirty Four and 56/100 US Dollars Only"},
		{"1", "USD", "One US Dollar Only"},
		{"0", "USD", "Zero US Dollars Only"},
		{"0.5", "USD", "Zero and 50/100 US Dollars Only"},
		{"1.005", "USD", "One and 1/100 US Dollar Only"},
		{"115", "GBP", "One Hundred Fifteen British Pounds Only"},
		{"2000000000", "EUR", "Two Billion Euros Only"},
		{"1000001", "INR", "One Million One Indian Rupees Only"},
		{"12.994", "USD", "Twelve and 99/100 US Dollars Only"},
	}
	for _, tc := range cases {
		t.Run(tc.amount+"_"+tc.code, func(t *testing.T) {
			out, err := svc.AmountInWords(dec(tc.amount), tc.code)
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestService_AmountInWords_Nepali(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		amount string
		want   string
	}{
		{"150000", "एक लाख पचास हजार मात्र"},
		{"0", "शून्य मात्र"},
		{"1.5", "एक र पचास पैसा मात्र"},
		{"20000000", "दुई करोड मात्र"},
		{"315", "तीन सय पन्ध्र मात्र"},
	}
	for _, tc := range cases {
		out, err := svc.AmountInWords(dec(tc.amount), "NPR")
		require.NoError(t, err)
		require.Equal(t, tc.want, out, tc.amount)
	}
}

func TestService_AmountInWords_Invalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AmountInWords(dec("-0.01"), "USD")
	require.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = svc.AmountInWords(dec("1000000000000000"), "USD")
	require.True(t, errors.Is(err, ErrAmountTooLarge))

	_, err = svc.AmountInWords(dec("1"), "ABC")
	require.True(t, errors.Is(err, ErrUnsupportedCurrency))
}
