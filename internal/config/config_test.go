package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"sigtool/internal/signature"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigtool.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Strategy != StrategyLinear || cfg.MaxMatches != 50 || cfg.IterationLimit != 25 ||
		cfg.Hardening != 3 || cfg.SegmentLimit != 1000 {
		t.Errorf("Default = %+v", cfg)
	}
	want := []signature.Notation{signature.NotationGeneric, signature.NotationEscaped}
	if got := cfg.ParsedNotations(); !slices.Equal(got, want) {
		t.Errorf("ParsedNotations = %v", got)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr string
	}{
		{
			name: "file overrides defaults",
			file: `{"strategy": "incremental", "maxMatches": 5, "hardening": 0}`,
			check: func(t *testing.T, cfg Config) {
				if cfg.Strategy != StrategyIncremental || cfg.MaxMatches != 5 || cfg.Hardening != 0 {
					t.Errorf("cfg = %+v", cfg)
				}
				if cfg.IterationLimit != 25 {
					t.Errorf("unset field lost its default: %+v", cfg)
				}
			},
		},
		{
			name: "env overrides file",
			file: `{"maxMatches": 5}`,
			env: map[string]string{
				"SIGTOOL_MAX_MATCHES": "7",
				"SIGTOOL_NOTATIONS":   "yara, mask",
				"SIGTOOL_DEBUG":       "true",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.MaxMatches != 7 || !cfg.Debug {
					t.Errorf("cfg = %+v", cfg)
				}
				if !slices.Equal(cfg.Notations, []string{"yara", "mask"}) {
					t.Errorf("Notations = %q", cfg.Notations)
				}
			},
		},
		{
			name:    "unknown field",
			file:    `{"stratgy": "linear"}`,
			wantErr: "unknown field",
		},
		{
			name:    "bad strategy",
			file:    `{"strategy": "random"}`,
			wantErr: `unknown strategy "random"`,
		},
		{
			name:    "bad env notation",
			env:     map[string]string{"SIGTOOL_NOTATIONS": "ida"},
			wantErr: `unknown notation "ida"`,
		},
		{
			name:    "non positive limit",
			file:    `{"segmentLimit": 0}`,
			wantErr: "segmentLimit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	t.Setenv("SIGTOOL_CONFIG", writeConfig(t, `{"iterationLimit": 9}`))
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IterationLimit != 9 {
		t.Errorf("IterationLimit = %d, want 9", cfg.IterationLimit)
	}
	if opts := cfg.GenerateOptions(); opts.IterationLimit != 9 || opts.Hardening != 3 {
		t.Errorf("GenerateOptions = %+v", opts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")

	if _, err := Load(missing); err == nil {
		t.Error("explicit missing file accepted")
	}

	t.Setenv("SIGTOOL_CONFIG", missing)
	if _, err := Load(""); err != nil {
		t.Errorf("missing $SIGTOOL_CONFIG file: %v", err)
	}
}

func TestSchema(t *testing.T) {
	bts, err := Schema()
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"maxMatches"`, `"strategy"`, `"incremental"`} {
		if !strings.Contains(string(bts), field) {
			t.Errorf("schema missing %s", field)
		}
	}
}
