// Package config loads sigtool settings. Defaults are overridden by a JSON
// file, then by SIGTOOL_* environment variables; command-line flags are
// applied last by the caller.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xyproto/env/v2"

	"sigtool/internal/generate"
	"sigtool/internal/image"
	"sigtool/internal/signature"
)

const (
	StrategyLinear      = "linear"
	StrategyIncremental = "incremental"

	DefaultMaxMatches = 50
)

// Config represents configuration for sigtool
type Config struct {
	Debug          bool     `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Strategy       string   `json:"strategy" jsonschema:"title=Strategy,description=Signature generation strategy,enum=linear,enum=incremental,default=linear"`
	MaxMatches     int      `json:"maxMatches" jsonschema:"title=Max Matches,description=Maximum matches reported by find,minimum=1,default=50"`
	IterationLimit int      `json:"iterationLimit" jsonschema:"title=Iteration Limit,description=Growth steps allowed to the incremental generator,minimum=1,default=25"`
	Hardening      int      `json:"hardening" jsonschema:"title=Hardening,description=Extra instructions appended after a linear signature became unique,minimum=0,default=3"`
	SegmentLimit   int      `json:"segmentLimit" jsonschema:"title=Segment Limit,description=Maximum mapped segments read into the image,minimum=1,default=1000"`
	Notations      []string `json:"notations" jsonschema:"title=Notations,description=Signature renderings to print,enum=generic,enum=escaped,enum=yara,enum=mask,enum=regex"`
	LogFile        string   `json:"logFile,omitempty" jsonschema:"title=Log File,description=Write logs to this file instead of stderr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Strategy:       StrategyLinear,
		MaxMatches:     DefaultMaxMatches,
		IterationLimit: generate.DefaultIterationLimit,
		Hardening:      generate.DefaultHardening,
		SegmentLimit:   image.DefaultSegmentLimit,
		Notations:      []string{string(signature.NotationGeneric), string(signature.NotationEscaped)},
	}
}

// Load reads path (or $SIGTOOL_CONFIG when path is empty) over the
// defaults and applies environment overrides. A missing file is only an
// error when it was named explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = env.Str("SIGTOOL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// ApplyEnv overrides fields from SIGTOOL_* variables that are set.
func (c *Config) ApplyEnv() {
	if env.Has("SIGTOOL_DEBUG") {
		c.Debug = env.Bool("SIGTOOL_DEBUG")
	}
	if env.Has("SIGTOOL_STRATEGY") {
		c.Strategy = env.Str("SIGTOOL_STRATEGY")
	}
	c.MaxMatches = env.Int("SIGTOOL_MAX_MATCHES", c.MaxMatches)
	c.IterationLimit = env.Int("SIGTOOL_ITERATION_LIMIT", c.IterationLimit)
	c.Hardening = env.Int("SIGTOOL_HARDENING", c.Hardening)
	c.SegmentLimit = env.Int("SIGTOOL_SEGMENT_LIMIT", c.SegmentLimit)
	if env.Has("SIGTOOL_NOTATIONS") {
		c.Notations = splitList(env.Str("SIGTOOL_NOTATIONS"))
	}
	if env.Has("SIGTOOL_LOG_FILE") {
		c.LogFile = env.Str("SIGTOOL_LOG_FILE")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects unknown names and limits that would stop the generators
// from doing any work.
func (c Config) Validate() error {
	var errs []error
	switch c.Strategy {
	case StrategyLinear, StrategyIncremental:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if c.MaxMatches < 1 {
		errs = append(errs, fmt.Errorf("maxMatches must be positive, got %d", c.MaxMatches))
	}
	if c.IterationLimit < 1 {
		errs = append(errs, fmt.Errorf("iterationLimit must be positive, got %d", c.IterationLimit))
	}
	if c.Hardening < 0 {
		errs = append(errs, fmt.Errorf("hardening must not be negative, got %d", c.Hardening))
	}
	if c.SegmentLimit < 1 {
		errs = append(errs, fmt.Errorf("segmentLimit must be positive, got %d", c.SegmentLimit))
	}
	if len(c.Notations) == 0 {
		errs = append(errs, errors.New("at least one notation is required"))
	}
	for _, n := range c.Notations {
		if _, err := signature.ParseNotation(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GenerateOptions converts the limits for the generators.
func (c Config) GenerateOptions() generate.Options {
	return generate.Options{IterationLimit: c.IterationLimit, Hardening: c.Hardening}
}

// ParsedNotations returns the configured notations. Call Validate first.
func (c Config) ParsedNotations() []signature.Notation {
	out := make([]signature.Notation, 0, len(c.Notations))
	for _, n := range c.Notations {
		if parsed, err := signature.ParseNotation(n); err == nil {
			out = append(out, parsed)
		}
	}
	return out
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
