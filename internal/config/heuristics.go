package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/annafiu/twabillsplitter/internal/normalize"
)

// HeuristicsHolder serves the current scale-correction thresholds and
// reloads them when the YAML file changes. An invalid file never replaces
// a valid configuration.
//
// File layout:
//
//	heuristics:
//	  scale_factor: 1000
//	  scale_tolerance: 0.01
//	  small_amount_ceiling: 1000
//	  fractional_tax_ceiling: 1
//	  percent_tax_ceiling: 100
//	  percent_tax_min_base: 10000
type HeuristicsHolder struct {
	current atomic.Value // holds normalize.Thresholds
	reloads atomic.Int64
}

type heuristicsFile struct {
	Heuristics normalize.Thresholds `mapstructure:"heuristics"`
}

// NewHeuristicsHolder loads thresholds from path and watches it. Missing keys
// take their defaults. An empty path or a missing file yields the defaults.
func NewHeuristicsHolder(path string) (*HeuristicsHolder, error) {
	holder := &HeuristicsHolder{}
	holder.current.Store(normalize.DefaultThresholds())
	if path == "" {
		return holder, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	setHeuristicDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Heuristics config not found, using defaults", "path", path)
			return holder, nil
		}
		return nil, fmt.Errorf("failed to read heuristics config: %w", err)
	}

	t, err := decodeThresholds(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(t)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeThresholds(v)
		if err != nil {
			slog.Warn("Heuristics reload ignored", "path", e.Name, "error", err)
			return
		}
		holder.current.Store(updated)
		holder.reloads.Add(1)
		slog.Info("Heuristics reloaded", "path", e.Name, "thresholds", updated)
	})
	v.WatchConfig()

	return holder, nil
}

// Thresholds returns the current thresholds.
func (h *HeuristicsHolder) Thresholds() normalize.Thresholds {
	return h.current.Load().(normalize.Thresholds)
}

// Reloads returns how many times a changed file was applied.
func (h *HeuristicsHolder) Reloads() int64 {
	return h.reloads.Load()
}

func setHeuristicDefaults(v *viper.Viper) {
	d := normalize.DefaultThresholds()
	v.SetDefault("heuristics.scale_factor", d.ScaleFactor)
	v.SetDefault("heuristics.scale_tolerance", d.ScaleTolerance)
	v.SetDefault("heuristics.small_amount_ceiling", d.SmallAmountCeiling)
	v.SetDefault("heuristics.fractional_tax_ceiling", d.FractionalTaxCeiling)
	v.SetDefault("heuristics.percent_tax_ceiling", d.PercentTaxCeiling)
	v.SetDefault("heuristics.percent_tax_min_base", d.PercentTaxMinBase)
}

func decodeThresholds(v *viper.Viper) (normalize.Thresholds, error) {
	var file heuristicsFile
	if err := v.Unmarshal(&file); err != nil {
		return normalize.Thresholds{}, fmt.Errorf("failed to decode heuristics config: %w", err)
	}
	if err := file.Heuristics.Validate(); err != nil {
		return normalize.Thresholds{}, fmt.Errorf("invalid heuristics config: %w", err)
	}
	return file.Heuristics, nil
}
