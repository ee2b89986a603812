package config

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AgingBucket describes one column of the receivable aging report. Days are
// counted past the due date; MaxDays nil means the bucket is open ended.
type AgingBucket struct {
	Label   string `mapstructure:"label" json:"label"`
	MinDays int    `mapstructure:"min_days" json:"min_days"`
	MaxDays *int   `mapstructure:"max_days" json:"max_days"`
}

// Contains reports whether the given days-overdue value falls in the bucket.
func (b AgingBucket) Contains(daysOverdue int) bool {
	if daysOverdue < b.MinDays {
		return false
	}
	if b.MaxDays != nil && daysOverdue > *b.MaxDays {
		return false
	}
	return true
}

// ReportingConfig holds reporting knobs that operators may tune without a
// redeploy. It is loaded from reporting.yaml and hot reloaded on change.
type ReportingConfig struct {
	AgingBuckets []AgingBucket `mapstructure:"aging_buckets" json:"aging_buckets"`
}

// DefaultReportingConfig returns the canonical aging layout.
func DefaultReportingConfig() ReportingConfig {
	return ReportingConfig{
		AgingBuckets: []AgingBucket{
			{Label: "current", MinDays: 0, MaxDays: intPtr(0)},
			{Label: "1-30", MinDays: 1, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90+", MinDays: 91, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

// ReportingConfigHolder keeps the current ReportingConfig behind an
// atomic.Value so report queries never observe a half-applied reload.
type ReportingConfigHolder struct {
	value atomic.Value
	log   *zap.Logger
}

// NewReportingConfigHolder loads reporting.yaml (falling back to defaults
// when absent) and watches it for changes. Invalid reloads are rejected and
// the previous configuration stays in effect.
func NewReportingConfigHolder(log *zap.Logger) (*ReportingConfigHolder, error) {
	holder := &ReportingConfigHolder{log: log.Named("config.reporting")}

	v := viper.New()
	v.SetConfigName("reporting")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ledgerly")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read reporting config: %w", err)
		}
		holder.value.Store(DefaultReportingConfig())
		holder.log.Info("reporting config file not found, using defaults")
		return holder, nil
	}

	cfg, err := decodeReportingConfig(v)
	if err != nil {
		return nil, err
	}
	holder.value.Store(cfg)
	holder.log.Info("reporting config loaded", zap.String("file", v.ConfigFileUsed()))

	v.OnConfigChange(func(e fsnotify.Event) {
		reloaded, err := decodeReportingConfig(v)
		if err != nil {
			holder.log.Warn("reporting config reload rejected",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		holder.value.Store(reloaded)
		holder.log.Info("reporting config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func decodeReportingConfig(v *viper.Viper) (ReportingConfig, error) {
	var cfg ReportingConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ReportingConfig{}, fmt.Errorf("unmarshal reporting config: %w", err)
	}
	if len(cfg.AgingBuckets) == 0 {
		cfg.AgingBuckets = DefaultReportingConfig().AgingBuckets
	}
	if err := validateAgingBuckets(cfg.AgingBuckets); err != nil {
		return ReportingConfig{}, err
	}
	return cfg, nil
}

func validateAgingBuckets(buckets []AgingBucket) error {
	if buckets[0].MinDays != 0 {
		return fmt.Errorf("aging buckets: first bucket must start at 0, got %d", buckets[0].MinDays)
	}
	for i, b := range buckets {
		if b.Label == "" {
			return fmt.Errorf("aging buckets: bucket %d has empty label", i)
		}
		if b.MaxDays != nil && *b.MaxDays < b.MinDays {
			return fmt.Errorf("aging buckets: bucket %q has max_days below min_days", b.Label)
		}
		if i < len(buckets)-1 {
			if b.MaxDays == nil {
				return fmt.Errorf("aging buckets: bucket %q is open ended but not last", b.Label)
			}
			if next := buckets[i+1]; next.MinDays != *b.MaxDays+1 {
				return fmt.Errorf("aging buckets: gap between %q and %q", b.Label, next.Label)
			}
		}
	}
	if last := buckets[len(buckets)-1]; last.MaxDays != nil {
		return fmt.Errorf("aging buckets: last bucket %q must be open ended", last.Label)
	}
	return nil
}

// Get returns the currently active reporting configuration.
func (h *ReportingConfigHolder) Get() ReportingConfig {
	if cfg, ok := h.value.Load().(ReportingConfig); ok {
		return cfg
	}
	return DefaultReportingConfig()
}
