package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTimerMinutes is the countdown length used when no config sets one.
const DefaultTimerMinutes = 30

// Config holds all configurable worklog settings.
type Config struct {
	TimerMinutes   int      `json:"timer_minutes"`   // countdown length per workspace
	IgnorePatterns []string `json:"ignore_patterns"` // extra watcher ignore globs
	CommitPrefix   string   `json:"commit_prefix"`   // prefix for generated commit messages
	Verbose        bool     `json:"verbose"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		TimerMinutes:   DefaultTimerMinutes,
		CommitPrefix:   "worklog",
		IgnorePatterns: []string{},
	}
}

// Validate checks constraints that a merged config must satisfy.
func (c Config) Validate() error {
	if c.TimerMinutes <= 0 {
		return fmt.Errorf("timer_minutes must be positive, got %d", c.TimerMinutes)
	}
	return nil
}

// LoadGlobal reads ~/.config/worklog/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "worklog", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .worklogconfig in the given workspace root.
// Returns nil (no error) if the file is absent.
func LoadProject(root string) (*Config, error) {
	return loadFile(filepath.Join(root, ".worklogconfig"), false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	// Apply global values over defaults.
	if global != nil {
		if global.TimerMinutes > 0 {
			result.TimerMinutes = global.TimerMinutes
		}
		if global.CommitPrefix != "" {
			result.CommitPrefix = global.CommitPrefix
		}
		if len(global.IgnorePatterns) > 0 {
			result.IgnorePatterns = global.IgnorePatterns
		}
		if global.Verbose {
			result.Verbose = true
		}
	}

	// Apply project values over global.
	if project != nil {
		if project.TimerMinutes > 0 {
			result.TimerMinutes = project.TimerMinutes
		}
		if project.CommitPrefix != "" {
			result.CommitPrefix = project.CommitPrefix
		}
		if len(project.IgnorePatterns) > 0 {
			result.IgnorePatterns = project.IgnorePatterns
		}
		if project.Verbose {
			result.Verbose = true
		}
	}

	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
