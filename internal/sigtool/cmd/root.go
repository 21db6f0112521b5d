package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"sigtool/internal/config"
	"sigtool/internal/logging"
	"sigtool/internal/sigtool/log"
	"sigtool/internal/sigtool/styles"
)

// app carries the settings shared by every subcommand. Flag values land
// here and are folded into cfg before a command runs.
type app struct {
	cfg    config.Config
	logger *logging.LoggerCloser

	configPath string
	debug      bool
	noTUI      bool
	jsonOut    bool
	strategy   string
	notations  []string
	cpuprofile string
	profile    *os.File

	// plain is set when output goes to a pipe or --no-tui was given.
	plain bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sigtool",
		Short: "Unique byte signatures for functions in compiled binaries",
		Long: `Sigtool generates byte signatures that match exactly one place in a binary and
finds every place a signature matches. Operands that move between builds, like
branch targets and addresses, are replaced by wildcards.`,
		Example: `
# Signature for the instruction at an address
sigtool generate ./libgame.so --address 0x1a2b40

# Signature for a function entry, in every notation
sigtool generate ./server --function main.main --notation generic,yara,mask

# Find a signature
sigtool find ./libgame.so "48 8B 05 ? ? ? ? C3"
  `,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (default $SIGTOOL_CONFIG)")
	pf.BoolVarP(&a.debug, "debug", "d", false, "Debug")
	pf.BoolVarP(&a.noTUI, "no-tui", "n", false, "Plain output without styling")
	pf.BoolVarP(&a.jsonOut, "json", "j", false, "Output results as JSON")
	pf.StringVarP(&a.strategy, "strategy", "s", "", "Generation strategy: linear or incremental")
	pf.StringSliceVar(&a.notations, "notation", nil, "Notations to print: generic, escaped, yara, mask, regex")
	pf.StringVar(&a.cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	root.AddCommand(
		newGenerateCmd(a),
		newFindCmd(a),
		newFunctionsCmd(a),
		newBrowseCmd(a),
		newSchemaCmd(),
	)
	return root
}

// setup resolves the configuration (defaults, file, environment, flags)
// and installs logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = a.debug
	}
	if flags.Changed("strategy") {
		cfg.Strategy = a.strategy
	}
	if flags.Changed("notation") {
		cfg.Notations = a.notations
	}
	if flags.Changed("max") {
		cfg.MaxMatches, _ = flags.GetInt("max")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.plain = a.noTUI || a.jsonOut || !term.IsTerminal(os.Stdout.Fd())
	if a.plain {
		os.Setenv("SIGTOOL_NO_COLOR", "1")
	}

	lg, err := log.SetupDefault(cfg.LogFile, cfg.Debug)
	if err != nil {
		return err
	}
	a.logger = lg

	if a.cpuprofile != "" {
		f, err := os.Create(a.cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.profile = f
	}
	slog.Debug("Configuration resolved", "strategy", cfg.Strategy, "maxMatches", cfg.MaxMatches,
		"notations", cfg.Notations, "plain", a.plain)
	return nil
}

func (a *app) teardown() error {
	if a.profile != nil {
		pprof.StopCPUProfile()
		a.profile.Close()
		a.profile = nil
	}
	if a.logger != nil {
		return a.logger.Close()
	}
	return nil
}

// observer reports generator warnings through the app logger and draws
// alerts on stderr.
func (a *app) observer(alerts io.Writer) *logging.Observer {
	return &logging.Observer{Logger: a.logger.Logger, Alerts: alerts}
}

func (a *app) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport renders markdown for a terminal, or prints fallback when
// output is plain.
func (a *app) writeReport(w io.Writer, markdown, fallback string) error {
	if a.plain {
		_, err := io.WriteString(w, fallback)
		return err
	}
	width := 80
	if tw, _, err := term.GetSize(os.Stdout.Fd()); err == nil && tw > 0 {
		width = tw
	}
	_, err := io.WriteString(w, styles.Render(markdown, width-2))
	return err
}

// Execute runs the sigtool command line.
func Execute() {
	root := newRootCmd()

	// fang styles help and errors; plain runs bypass it so piped output
	// stays machine readable.
	plain := !term.IsTerminal(os.Stdout.Fd())
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			plain = true
			break
		}
	}

	if plain {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := root.ExecuteContext(ctx); err != nil {
			stop()
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
