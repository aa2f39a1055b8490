// Package config loads reqflow configuration from YAML or JSON files.
// Every knob has a default matching the rendered application, so a zero
// config file is valid.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to accept "500ms"-style strings in both
// YAML and JSON.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Generation configures the text-generation client.
type Generation struct {
	// Binary is the completion CLI binary path.
	Binary string `yaml:"binary" json:"binary"`

	// Model passed to the binary, empty for its default.
	Model string `yaml:"model" json:"model"`

	// Timeout bounds one generation call.
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// Session configures the interactive graph edit session.
type Session struct {
	// DebounceQuietPeriod is how long a node must sit still before its
	// position is persisted.
	DebounceQuietPeriod Duration `yaml:"debounce_quiet_period" json:"debounce_quiet_period"`

	// BackEdgeThreshold is how many pixels above its source an edge's
	// target must sit to be routed as a back edge.
	BackEdgeThreshold float64 `yaml:"back_edge_threshold" json:"back_edge_threshold"`
}

// Layout configures the layered layout constants.
type Layout struct {
	NodeWidth      float64 `yaml:"node_width" json:"node_width"`
	StepHeight     float64 `yaml:"step_height" json:"step_height"`
	DecisionHeight float64 `yaml:"decision_height" json:"decision_height"`
	RankSep        float64 `yaml:"rank_sep" json:"rank_sep"`
	NodeSep        float64 `yaml:"node_sep" json:"node_sep"`
}

// Store configures persistence.
type Store struct {
	// SQLitePath is the database file path, or ":memory:".
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// Config is the full reqflow configuration.
type Config struct {
	Generation Generation `yaml:"generation" json:"generation"`
	Session    Session    `yaml:"session" json:"session"`
	Layout     Layout     `yaml:"layout" json:"layout"`
	Store      Store      `yaml:"store" json:"store"`
}

// Default returns the configuration matching the rendered application:
// 500 ms drag debounce, 30 px back-edge threshold, 220 px node cards and a
// 120 px decision diamond.
func Default() Config {
	return Config{
		Generation: Generation{
			Binary:  "claude",
			Timeout: Duration(2 * time.Minute),
		},
		Session: Session{
			DebounceQuietPeriod: Duration(500 * time.Millisecond),
			BackEdgeThreshold:   30,
		},
		Layout: Layout{
			NodeWidth:      220,
			StepHeight:     72,
			DecisionHeight: 120,
			RankSep:        80,
			NodeSep:        60,
		},
		Store: Store{
			SQLitePath: "./reqflow.db",
		},
	}
}

// Validate reports the first invalid value found.
func (c Config) Validate() error {
	if c.Generation.Binary == "" {
		return fmt.Errorf("generation.binary must not be empty")
	}
	if c.Generation.Timeout < 0 {
		return fmt.Errorf("generation.timeout must not be negative")
	}
	if c.Session.DebounceQuietPeriod <= 0 {
		return fmt.Errorf("session.debounce_quiet_period must be positive")
	}
	if c.Session.BackEdgeThreshold < 0 {
		return fmt.Errorf("session.back_edge_threshold must not be negative")
	}
	if c.Layout.NodeWidth <= 0 || c.Layout.StepHeight <= 0 || c.Layout.DecisionHeight <= 0 {
		return fmt.Errorf("layout dimensions must be positive")
	}
	if c.Layout.DecisionHeight <= c.Layout.StepHeight {
		return fmt.Errorf("layout.decision_height must exceed layout.step_height")
	}
	if c.Layout.RankSep <= 0 || c.Layout.NodeSep <= 0 {
		return fmt.Errorf("layout separations must be positive")
	}
	if c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path must not be empty")
	}
	return nil
}
