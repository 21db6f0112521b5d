package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
)

func parse(t *testing.T, args ...string) *CLI {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("sigscan"), kong.Exit(func(int) { t.Fatal("kong exited") }))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatal(err)
	}
	return &cli
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dump := writeFile(t, "dump.bin", []byte{
		0x00, 0x48, 0x8B, 0x05, 0x01, 0x48, 0x8B, 0x0D, 0x02, 0x48, 0x8B, 0x05, 0x03, 0x00, 0x00, 0x00,
	})
	empty := writeFile(t, "zeros.bin", make([]byte, 16))

	tests := []struct {
		name       string
		args       []string
		wantOut    string
		wantStatus int
	}{
		{
			name:    "scanner",
			args:    []string{"48 8B ? ?", dump},
			wantOut: "0x1\n0x5\n0x9\n",
		},
		{
			name:    "regexp engine agrees",
			args:    []string{"--engine", "regexp", "48 8B ? ?", dump},
			wantOut: "0x1\n0x5\n0x9\n",
		},
		{
			name:    "base and max",
			args:    []string{"--base", "4096", "--max", "2", `\x48\x8B\x05`, dump},
			wantOut: "0x1001\n0x1009\n",
		},
		{
			name:    "notation",
			args:    []string{"--notation", "yara", "48 8B ? 05", dump},
			wantOut: "{ 48 8B ?? 05 }\n",
			// No 48 8B run is followed by 05 one byte later.
			wantStatus: 1,
		},
		{
			name:       "quiet over files",
			args:       []string{"-q", "48 8B", dump, empty},
			wantOut:    dump + ": 3\n" + empty + ": 0\n",
			wantStatus: 0,
		},
		{
			name:       "no match",
			args:       []string{"DE AD", empty},
			wantStatus: 1,
		},
		{
			name:       "bad signature",
			args:       []string{"DE ZZ", empty},
			wantStatus: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			status := run(parse(t, tt.args...), &stdout, &stderr)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (stderr %q)", status, tt.wantStatus, stderr.String())
			}
			if got := stdout.String(); got != tt.wantOut {
				t.Errorf("stdout = %q, want %q", got, tt.wantOut)
			}
		})
	}
}
