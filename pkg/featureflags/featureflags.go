package featureflags

import (
	"context"

	"vaultbooks/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// Feature names
const (
	ReferralProgram = "referral_program"
)

type FeatureFlag interface {
	// Enabled reports whether feature is on for identifier. fallback is used
	// when no flag provider is configured or the provider is unreachable.
	Enabled(ctx context.Context, identifier, feature string, fallback bool) bool
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithAnalytics(),
	}
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, identifier, feature string, fallback bool) bool {
	if s.client == nil {
		return fallback
	}

	flags, err := s.client.GetIdentityFlags(identifier, nil)
	if err != nil {
		zap.L().Warn("failed to fetch feature flags", zap.String("identifier", identifier), zap.Error(err))
		return fallback
	}

	enabled, err := flags.IsFeatureEnabled(feature)
	if err != nil {
		return fallback
	}
	return enabled
}

// Static is a FeatureFlag with fixed answers, handy for tests and local runs.
type Static map[string]bool

func (s Static) Enabled(_ context.Context, _, feature string, fallback bool) bool {
	if v, ok := s[feature]; ok {
		return v
	}
	return fallback
}
