package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Environment)
	assert.True(t, cfg.Membership.ServiceDiscount.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, cfg.Membership.AnnualFee.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, 30*24*time.Hour, cfg.Membership.RenewalWindow)
	assert.Contains(t, cfg.Membership.EligibleServices, "massage")
	assert.Len(t, cfg.Analytics.SavingsMilestones, 4)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MEMBERSHIP_SERVICE_DISCOUNT", "0.2")
	t.Setenv("MEMBERSHIP_STANDARD_DELIVERY_COST", "15.50")
	t.Setenv("MEMBERSHIP_ELIGIBLE_SERVICES", "massage, salon")
	t.Setenv("ANALYTICS_SAVINGS_MILESTONES", "50,150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Membership.ServiceDiscount.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, "15.5", cfg.Membership.StandardDeliveryCost.String())
	assert.Equal(t, []string{"massage", "salon"}, cfg.Membership.EligibleServices)
	require.Len(t, cfg.Analytics.SavingsMilestones, 2)
	assert.Equal(t, "150", cfg.Analytics.SavingsMilestones[1].String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.JWT.Secret = "short" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "discount above one",
			mutate:  func(c *Config) { c.Membership.ServiceDiscount = decimal.RequireFromString("1.5") },
			wantErr: "MEMBERSHIP_SERVICE_DISCOUNT",
		},
		{
			name:    "http sink without url",
			mutate: func(c *Config) {
				c.Analytics.Sink = "http"
				c.Analytics.SinkURL = ""
			},
			wantErr: "ANALYTICS_SINK_URL",
		},
		{
			name:    "unknown sink",
			mutate:  func(c *Config) { c.Analytics.Sink = "kafka" },
			wantErr: "unsupported ANALYTICS_SINK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
