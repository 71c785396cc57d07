package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultPath returns the default location of the engine configuration file:
// ~/.config/rescale/space.conf
//
// INI format:
//
//	[items]
//	width = 100
//	height = 120
//	margin = 20
//
//	[render]
//	margin = 300
//	batch_size = 50
//	recycle_threshold = 100
//	pool_batch = 4
//	min_scale = 0.05
//	max_scale = 8
//
//	[lod]
//	thresholds = 1.0,0.5,0.2
//	distance = 1000
//
//	[index]
//	bin_size = 500
//
//	[debug]
//	enabled = false
//	stats = true
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rescale", "space.conf"), nil
}

// Load reads the configuration file at path over the defaults.
// A missing file yields the defaults and no error; an unreadable or invalid file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load %s: %w", path, err)
	}

	items := iniFile.Section("items")
	cfg.ItemWidth = items.Key("width").MustFloat64(cfg.ItemWidth)
	cfg.ItemHeight = items.Key("height").MustFloat64(cfg.ItemHeight)
	cfg.ItemMargin = items.Key("margin").MustFloat64(cfg.ItemMargin)

	render := iniFile.Section("render")
	cfg.RenderMargin = render.Key("margin").MustFloat64(cfg.RenderMargin)
	cfg.BatchSize = render.Key("batch_size").MustInt(cfg.BatchSize)
	cfg.RecycleThreshold = render.Key("recycle_threshold").MustInt(cfg.RecycleThreshold)
	cfg.PoolBatch = render.Key("pool_batch").MustInt(cfg.PoolBatch)
	cfg.MinScale = render.Key("min_scale").MustFloat64(cfg.MinScale)
	cfg.MaxScale = render.Key("max_scale").MustFloat64(cfg.MaxScale)

	lod := iniFile.Section("lod")
	if raw := strings.TrimSpace(lod.Key("thresholds").String()); raw != "" {
		thresholds, err := parseFloats(raw)
		if err != nil {
			return cfg, &ConfigurationError{Field: "lod_thresholds", Reason: err.Error()}
		}
		cfg.LODThresholds = thresholds
	}
	cfg.LODDistance = lod.Key("distance").MustFloat64(cfg.LODDistance)

	cfg.BinSize = iniFile.Section("index").Key("bin_size").MustFloat64(cfg.BinSize)

	dbg := iniFile.Section("debug")
	cfg.Debug = dbg.Key("enabled").MustBool(cfg.Debug)
	cfg.CollectStats = dbg.Key("stats").MustBool(cfg.CollectStats)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	items, err := iniFile.NewSection("items")
	if err != nil {
		return fmt.Errorf("failed to create items section: %w", err)
	}
	items.Key("width").SetValue(formatFloat(cfg.ItemWidth))
	items.Key("height").SetValue(formatFloat(cfg.ItemHeight))
	items.Key("margin").SetValue(formatFloat(cfg.ItemMargin))

	render, err := iniFile.NewSection("render")
	if err != nil {
		return fmt.Errorf("failed to create render section: %w", err)
	}
	render.Key("margin").SetValue(formatFloat(cfg.RenderMargin))
	render.Key("batch_size").SetValue(strconv.Itoa(cfg.BatchSize))
	render.Key("recycle_threshold").SetValue(strconv.Itoa(cfg.RecycleThreshold))
	render.Key("pool_batch").SetValue(strconv.Itoa(cfg.PoolBatch))
	render.Key("min_scale").SetValue(formatFloat(cfg.MinScale))
	render.Key("max_scale").SetValue(formatFloat(cfg.MaxScale))

	lod, err := iniFile.NewSection("lod")
	if err != nil {
		return fmt.Errorf("failed to create lod section: %w", err)
	}
	parts := make([]string, len(cfg.LODThresholds))
	for i, th := range cfg.LODThresholds {
		parts[i] = formatFloat(th)
	}
	lod.Key("thresholds").SetValue(strings.Join(parts, ","))
	lod.Key("distance").SetValue(formatFloat(cfg.LODDistance))

	index, err := iniFile.NewSection("index")
	if err != nil {
		return fmt.Errorf("failed to create index section: %w", err)
	}
	index.Key("bin_size").SetValue(formatFloat(cfg.BinSize))

	dbg, err := iniFile.NewSection("debug")
	if err != nil {
		return fmt.Errorf("failed to create debug section: %w", err)
	}
	dbg.Key("enabled").SetValue(strconv.FormatBool(cfg.Debug))
	dbg.Key("stats").SetValue(strconv.FormatBool(cfg.CollectStats))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func parseFloats(raw string) ([]float64, error) {
	fields := strings.Split(raw, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
