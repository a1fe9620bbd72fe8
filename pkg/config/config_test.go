package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalLoyaltyProgram(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	err := v.ReadConfig(strings.NewReader(`
APP_NAME: loyalty
LOYALTY:
  REFERRAL_BONUS: 250
  TIERS:
    - CODE: BASIC
      NAME: Basic
      MIN_POINTS: 0
      MULTIPLIER: 1
    - CODE: VIP
      NAME: VIP
      MIN_POINTS: 2000
      MULTIPLIER: 2.5
      BENEFITS: ["Lounge access"]
CURRENCY:
  RATES:
    NPR: "133.10"
`))
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, "loyalty", cfg.AppName)
	require.Equal(t, int64(250), cfg.Loyalty.ReferralBonus)
	require.Equal(t, 30*24*time.Hour, cfg.Loyalty.RewardValidity)
	require.Equal(t, "VB-", cfg.Loyalty.CardPrefix)
	require.Len(t, cfg.Loyalty.Tiers, 2)
	require.Equal(t, "2.5", cfg.Loyalty.Tiers[1].Multiplier)
	require.Equal(t, []string{"Lounge access"}, cfg.Loyalty.Tiers[1].Benefits)
	require.Equal(t, "USD", cfg.Currency.Default)
	require.Equal(t, "133.10", cfg.Currency.Rates["npr"])
}
