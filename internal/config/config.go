package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DisplayMode identifies how the target application renders the item
// panel. A few recognition corrections only apply to the non-standard
// modes, where labels can be clipped.
type DisplayMode string

const (
	DisplayStandard DisplayMode = "standard"
	DisplayCompact  DisplayMode = "compact"
	DisplayOverlay  DisplayMode = "overlay"
)

// Config carries the plain scan parameters consumed by the core. It is
// loaded once and read-only for the duration of a run.
type Config struct {
	// Filters
	MinStar  int
	MinLevel int

	// Page geometry
	Rows int
	Cols int

	// MaxRow caps the number of rows visited; negative means no cap.
	MaxRow int

	// ItemCount forces the item total instead of recognizing it from
	// the count region; zero or negative means recognize.
	ItemCount int

	// WindowHeight is the target window height in pixels; the layout is
	// scaled from its 1080 reference to match.
	WindowHeight int

	// Timing
	ScrollDelay     time.Duration
	MaxSwitchWait   time.Duration // desktop: ceiling on item-switch polling
	CloudSwitchWait time.Duration // cloud mode: fixed settle sleep
	SettleDelay     time.Duration // initial click-to-ready settle
	BaseItemDelay   time.Duration // worker pacing baseline

	// Modes
	FastMode    bool
	CloudMode   bool
	DisplayMode DisplayMode
	Verbose     bool

	// Duplicate streak handling. Threshold zero means "use Cols".
	IgnoreDupStreak    bool
	DupStreakThreshold int

	// Diagnostics
	StatusAddr  string // empty disables the status server
	HistoryPath string // empty disables run history
}

// LoadFromEnv builds a Config from environment variables with defaults
// suitable for a 1920x1080 desktop layout.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MinStar:            parseIntOrDefault("SCAN_MIN_STAR", 4),
		MinLevel:           parseIntOrDefault("SCAN_MIN_LEVEL", 0),
		Rows:               parseIntOrDefault("SCAN_ROWS", 5),
		Cols:               parseIntOrDefault("SCAN_COLS", 8),
		MaxRow:             parseIntOrDefault("SCAN_MAX_ROW", -1),
		ItemCount:          parseIntOrDefault("SCAN_ITEM_COUNT", 0),
		WindowHeight:       parseIntOrDefault("SCAN_WINDOW_HEIGHT", 1080),
		ScrollDelay:        parseDurationOrDefault("SCAN_SCROLL_DELAY", 50*time.Millisecond),
		MaxSwitchWait:      parseDurationOrDefault("SCAN_MAX_SWITCH_WAIT", 600*time.Millisecond),
		CloudSwitchWait:    parseDurationOrDefault("SCAN_CLOUD_SWITCH_WAIT", 200*time.Millisecond),
		SettleDelay:        parseDurationOrDefault("SCAN_SETTLE_DELAY", time.Second),
		BaseItemDelay:      parseDurationOrDefault("SCAN_BASE_ITEM_DELAY", 10*time.Millisecond),
		FastMode:           parseBoolOrDefault("SCAN_FAST_MODE", false),
		CloudMode:          parseBoolOrDefault("SCAN_CLOUD_MODE", false),
		DisplayMode:        DisplayMode(getEnvOrDefault("SCAN_DISPLAY_MODE", string(DisplayStandard))),
		Verbose:            parseBoolOrDefault("SCAN_VERBOSE", false),
		IgnoreDupStreak:    parseBoolOrDefault("SCAN_IGNORE_DUP_STREAK", false),
		DupStreakThreshold: parseIntOrDefault("SCAN_DUP_STREAK_THRESHOLD", 0),
		StatusAddr:         getEnvOrDefault("SCAN_STATUS_ADDR", ""),
		HistoryPath:        getEnvOrDefault("SCAN_HISTORY_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the scan loop cannot work with.
func (c *Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("page geometry must be positive (got rows=%d, cols=%d)", c.Rows, c.Cols)
	}
	if c.ScrollDelay < 0 || c.MaxSwitchWait <= 0 || c.CloudSwitchWait < 0 {
		return fmt.Errorf("timing values must be positive (scroll=%s, switch=%s, cloud=%s)",
			c.ScrollDelay, c.MaxSwitchWait, c.CloudSwitchWait)
	}
	if c.BaseItemDelay < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("delays must not be negative (item=%s, settle=%s)", c.BaseItemDelay, c.SettleDelay)
	}
	switch c.DisplayMode {
	case DisplayStandard, DisplayCompact, DisplayOverlay:
	default:
		return fmt.Errorf("invalid display mode: %q", c.DisplayMode)
	}
	if c.WindowHeight < 1 {
		return fmt.Errorf("window height must be positive (got %d)", c.WindowHeight)
	}
	if c.DupStreakThreshold < 0 {
		return fmt.Errorf("duplicate streak threshold must not be negative (got %d)", c.DupStreakThreshold)
	}
	return nil
}

// EffectiveScrollDelay returns the scroll delay, reduced by 30% in fast
// mode.
func (c *Config) EffectiveScrollDelay() time.Duration {
	if c.FastMode {
		return time.Duration(float64(c.ScrollDelay) * 0.7)
	}
	return c.ScrollDelay
}

// EffectiveSwitchWait returns the item-switch polling ceiling, reduced
// by 20% in fast mode.
func (c *Config) EffectiveSwitchWait() time.Duration {
	if c.FastMode {
		return time.Duration(float64(c.MaxSwitchWait) * 0.8)
	}
	return c.MaxSwitchWait
}

// EffectiveCloudWait returns the cloud-mode settle sleep, reduced by 20%
// in fast mode.
func (c *Config) EffectiveCloudWait() time.Duration {
	if c.FastMode {
		return time.Duration(float64(c.CloudSwitchWait) * 0.8)
	}
	return c.CloudSwitchWait
}

// DupThreshold resolves the consecutive-duplicate abort threshold; it
// defaults to one full row of the grid.
func (c *Config) DupThreshold() int {
	if c.DupStreakThreshold > 0 {
		return c.DupStreakThreshold
	}
	return c.Cols
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
