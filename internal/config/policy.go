package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AttributionPolicy holds the tunable attribution knobs: the confidence
// gate, the per-signal cutoffs used to derive contributing agents, and the
// default performance-fee percentage applied when a client has none.
type AttributionPolicy struct {
	ConfidenceThreshold float64       `mapstructure:"confidenceThreshold"`
	DefaultFeePct       string        `mapstructure:"defaultFeePct"`
	SignalCutoffs       SignalCutoffs `mapstructure:"signalCutoffs"`
}

type SignalCutoffs struct {
	AdTouchpoint      float64 `mapstructure:"adTouchpoint"`
	Acquisition       float64 `mapstructure:"acquisition"`
	ProductPromotion  float64 `mapstructure:"productPromotion"`
	NurtureEngagement float64 `mapstructure:"nurtureEngagement"`
}

func DefaultAttributionPolicy() AttributionPolicy {
	return AttributionPolicy{
		ConfidenceThreshold: 0.70,
		DefaultFeePct:       "0.20",
		SignalCutoffs: SignalCutoffs{
			AdTouchpoint:      0.3,
			Acquisition:       0.4,
			ProductPromotion:  0.3,
			NurtureEngagement: 0.3,
		},
	}
}

// PolicyHolder serves the current policy to concurrent readers and swaps it
// atomically when the config file changes on disk.
type PolicyHolder struct {
	current atomic.Value // holds AttributionPolicy
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/netlift/config")
	v.AddConfigPath("/etc/netlift")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NETLIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultAttributionPolicy()
		v.SetDefault("attribution.confidenceThreshold", defaults.ConfidenceThreshold)
		v.SetDefault("attribution.defaultFeePct", defaults.DefaultFeePct)
		v.SetDefault("attribution.signalCutoffs", defaults.SignalCutoffs)
	}

	var policy AttributionPolicy
	if err := v.UnmarshalKey("attribution", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AttributionPolicy
		if err := v.UnmarshalKey("attribution", &updated); err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() AttributionPolicy {
	return h.current.Load().(AttributionPolicy)
}

// NewStaticPolicyHolder wraps a fixed policy; used by tests.
func NewStaticPolicyHolder(policy AttributionPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validatePolicy(policy AttributionPolicy) error {
	if policy.ConfidenceThreshold < 0 || policy.ConfidenceThreshold > 1 {
		return errors.New("attribution.confidenceThreshold must be within [0,1]")
	}
	if strings.TrimSpace(policy.DefaultFeePct) == "" {
		return errors.New("attribution.defaultFeePct cannot be empty")
	}
	for _, cutoff := range []float64{
		policy.SignalCutoffs.AdTouchpoint,
		policy.SignalCutoffs.Acquisition,
		policy.SignalCutoffs.ProductPromotion,
		policy.SignalCutoffs.NurtureEngagement,
	} {
		if cutoff < 0 || cutoff > 1 {
			return errors.New("attribution.signalCutoffs must be within [0,1]")
		}
	}
	return nil
}
