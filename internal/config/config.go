// Package config loads the configuration of the badge simulator.
//
// Configuration comes from a single YAML file, named either by the
// BADGE_CONFIG environment variable (via [LoadFromEnv]) or by a --config
// flag (via [Load]). Fields missing from the file keep their [Default]
// values.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/b97tsk/coop/badge"
	"github.com/b97tsk/coop/debounce"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable read by [LoadFromEnv].
const EnvVar = "BADGE_CONFIG"

// LED modes.
const (
	ModeButtons = "buttons"
	ModeRainbow = "rainbow"
)

// Config is the configuration of the badge simulator.
type Config struct {
	// Tasks is the size of the task table.
	Tasks int `yaml:"tasks"`

	// Arena is the number of devices that can be promoted.
	Arena int `yaml:"arena"`

	Channel ChannelConfig `yaml:"channel"`
	Buttons ButtonsConfig `yaml:"buttons"`
	LEDs    LEDsConfig    `yaml:"leds"`
	Display DisplayConfig `yaml:"display"`

	// Heartbeat is the period of the coordinator's liveness message.
	// Zero disables it.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// ChannelConfig sizes the button event channel.
type ChannelConfig struct {
	Capacity    int `yaml:"capacity"`
	Subscribers int `yaml:"subscribers"`
	Publishers  int `yaml:"publishers"`
}

// ButtonsConfig configures button debouncing and the keyboard mapping.
type ButtonsConfig struct {
	// Window is how long a level must hold before it is accepted.
	Window time.Duration `yaml:"window"`

	// Windows overrides Window for some buttons, by button name.
	Windows map[string]time.Duration `yaml:"windows,omitempty"`

	// PollInterval is used for buttons that cannot report edges.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Active is the level of a pressed button: "high" or "low".
	Active string `yaml:"active"`

	// Keys maps button names to keyboard keys.
	Keys map[string]string `yaml:"keys"`

	// Release is how long a key stays pressed after its last repeat.
	Release time.Duration `yaml:"release"`
}

// LEDsConfig configures the LED strip.
type LEDsConfig struct {
	Count int `yaml:"count"`

	// Mode is "buttons" or "rainbow".
	Mode string `yaml:"mode"`

	// Hold is how long a color stays before the next event is taken.
	Hold time.Duration `yaml:"hold"`

	RainbowPeriod time.Duration `yaml:"rainbow_period"`
}

// DisplayConfig configures the display.
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Frame is the PNG file every flushed frame is written to.
	// Empty disables the display.
	Frame string `yaml:"frame"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tasks: 4,
		Arena: 2,
		Channel: ChannelConfig{
			Capacity:    8,
			Subscribers: 3,
			Publishers:  1,
		},
		Buttons: ButtonsConfig{
			Window:       20 * time.Millisecond,
			PollInterval: debounce.DefaultPollInterval,
			Active:       "high",
			Keys: map[string]string{
				"up":     "w",
				"down":   "s",
				"left":   "a",
				"right":  "d",
				"stick":  "x",
				"a":      "j",
				"b":      "k",
				"start":  "n",
				"select": "m",
			},
			Release: 100 * time.Millisecond,
		},
		LEDs: LEDsConfig{
			Count:         9,
			Mode:          ModeButtons,
			Hold:          time.Second,
			RainbowPeriod: time.Second,
		},
		Display: DisplayConfig{
			Width:  320,
			Height: 170,
		},
		Heartbeat: 5 * time.Second,
	}
}

// LoadFromEnv loads configuration from the file named by BADGE_CONFIG.
// If BADGE_CONFIG is not set, it returns [Default].
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Load loads configuration from path on top of [Default], and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Tasks <= 0 {
		errs = append(errs, fmt.Errorf("tasks must be positive"))
	}
	if c.Arena <= 0 {
		errs = append(errs, fmt.Errorf("arena must be positive"))
	}

	if c.Channel.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("channel.capacity must be positive"))
	}
	if c.Channel.Subscribers <= 0 {
		errs = append(errs, fmt.Errorf("channel.subscribers must be positive"))
	}
	if c.Channel.Publishers <= 0 {
		errs = append(errs, fmt.Errorf("channel.publishers must be positive"))
	}

	if c.Buttons.Window < 0 {
		errs = append(errs, fmt.Errorf("buttons.window must not be negative"))
	}
	for name, d := range c.Buttons.Windows {
		if _, err := badge.ParseEvent(name); err != nil {
			errs = append(errs, fmt.Errorf("buttons.windows: %w", err))
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("buttons.windows.%s must not be negative", name))
		}
	}
	if c.Buttons.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("buttons.poll_interval must be positive"))
	}
	if _, err := parseLevel(c.Buttons.Active); err != nil {
		errs = append(errs, fmt.Errorf("buttons.active: %w", err))
	}
	keys := make(map[string]string)
	for name, key := range c.Buttons.Keys {
		if _, err := badge.ParseEvent(name); err != nil {
			errs = append(errs, fmt.Errorf("buttons.keys: %w", err))
		}
		if len(key) != 1 {
			errs = append(errs, fmt.Errorf("buttons.keys.%s must be a single character", name))
		}
		if other, ok := keys[key]; ok {
			errs = append(errs, fmt.Errorf("buttons.keys: %q bound to both %s and %s", key, other, name))
		}
		keys[key] = name
	}

	if c.LEDs.Count <= 0 {
		errs = append(errs, fmt.Errorf("leds.count must be positive"))
	}
	modes := []string{ModeButtons, ModeRainbow}
	if !slices.Contains(modes, c.LEDs.Mode) {
		errs = append(errs, fmt.Errorf("leds.mode must be one of: %v", modes))
	}
	if c.LEDs.Mode == ModeRainbow && c.LEDs.RainbowPeriod <= 0 {
		errs = append(errs, fmt.Errorf("leds.rainbow_period must be positive"))
	}

	if c.Display.Frame != "" && (c.Display.Width <= 0 || c.Display.Height <= 0) {
		errs = append(errs, fmt.Errorf("display size must be positive"))
	}

	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative"))
	}

	return errors.Join(errs...)
}

// Input returns the debounce configuration of the button for e.
// c must be valid.
func (c *Config) Input(e badge.Event) debounce.InputConfig {
	window := c.Buttons.Window
	for name, d := range c.Buttons.Windows {
		if ev, err := badge.ParseEvent(name); err == nil && ev == e {
			window = d
		}
	}
	active, _ := parseLevel(c.Buttons.Active)
	initial := debounce.Low
	if active == debounce.Low {
		initial = debounce.High
	}
	return debounce.InputConfig{
		Initial:      initial,
		Active:       active,
		Window:       window,
		PollInterval: c.Buttons.PollInterval,
	}
}

// KeyMap returns the button of every mapped key.
// c must be valid.
func (c *Config) KeyMap() map[byte]badge.Event {
	m := make(map[byte]badge.Event, len(c.Buttons.Keys))
	for name, key := range c.Buttons.Keys {
		if ev, err := badge.ParseEvent(name); err == nil && len(key) == 1 {
			m[key[0]] = ev
		}
	}
	return m
}

func parseLevel(s string) (debounce.Level, error) {
	switch strings.ToLower(s) {
	case "high":
		return debounce.High, nil
	case "low":
		return debounce.Low, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
