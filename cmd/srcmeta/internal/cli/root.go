// Package cli implements the srcmeta command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/albertocavalcante/srcmeta/internal/log"
	"github.com/albertocavalcante/srcmeta/pkg/config"
	"github.com/albertocavalcante/srcmeta/pkg/section"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Options holds the global flags. It is resolved once per invocation and
// passed to every command.
type Options struct {
	Verbosity    int
	LogFormat    string
	Debug        bool
	IgnoreErrors bool
	ConfigFile   string
}

// Env is what the commands need from the outside world.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// WorkDir is where the project config search starts. Empty means the
	// working directory.
	WorkDir string

	// SectionIO builds the object-file backend. Nil selects objcopy.
	SectionIO func(cfg *config.Config, logger *slog.Logger) section.IO
}

// app is the state shared by the commands of one invocation.
type app struct {
	env    Env
	opts   Options
	cfg    *config.Config
	logger *slog.Logger
	io     section.IO
}

// NewRootCmd builds the command tree.
func NewRootCmd(env Env) *cobra.Command {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	a := &app{env: env}

	root := &cobra.Command{
		Use:   "srcmeta",
		Short: "Inspect and rewrite embedded source metadata",
		Long: `Srcmeta works on the build-provenance metadata a compiler plugin
records in a section of each object file: which source files went into the
binary, with their checksums and, optionally, license identifiers.

Binaries may be given as paths or as glob patterns such as 'out/**/*.so'.
Files ending in the backup suffix are skipped.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		// Default behavior: show help
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	// Global flags (persistent across all commands)
	pf := root.PersistentFlags()
	pf.IntVarP(&a.opts.Verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	pf.StringVar(&a.opts.LogFormat, "log-format", "text",
		"Log format (text, json)")
	pf.BoolVarP(&a.opts.Debug, "debug", "D", false,
		"Enable debug output (same as -v 3)")
	pf.BoolVarP(&a.opts.IgnoreErrors, "ignore-errors", "I", false,
		"Exit successfully even if some binaries failed")
	pf.StringVar(&a.opts.ConfigFile, "config", "",
		"Config file applied on top of the global and project config")

	root.AddCommand(newVersionCmd())
	for _, build := range commands {
		root.AddCommand(build(a))
	}
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No configuration needed
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "srcmeta %s (%s)\n", Version, GitCommit)
		},
	}
}

// setup loads the configuration, applies the global flags on top of it and
// installs the logger. It runs after flags are parsed but before the
// command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{Dir: a.env.WorkDir, File: a.opts.ConfigFile})
	if err != nil {
		return err
	}

	// CLI flags override config
	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		cfg.Log.Verbosity = &a.opts.Verbosity
	}
	if a.opts.Debug && cfg.Verbosity() < log.VerbosityDebug {
		v := log.VerbosityDebug
		cfg.Log.Verbosity = &v
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.opts.LogFormat
	}
	if err := applyCommandFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.InitWithOutput(cfg.Verbosity(), cfg.Log.Format, a.env.Stderr)
	a.cfg = cfg
	a.logger = log.With("run", uuid.NewString()[:8])
	a.logger.Debug("configuration loaded",
		"section", cfg.Section.Name,
		"backup", cfg.BackupEnabled(),
		"strategy", cfg.Match.Strategy)

	if a.env.SectionIO != nil {
		a.io = a.env.SectionIO(cfg, a.logger)
	} else {
		a.io = section.NewBinutils(
			section.WithObjcopy(cfg.Tools.Objcopy),
			section.WithCp(cfg.Tools.Cp),
			section.WithLogger(a.logger.With("component", "section")),
		)
	}
	return nil
}

// component returns the invocation logger tagged with a component name.
func (a *app) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd(Env{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns a root command wired to the process environment, for
// testing.
func RootCmd() *cobra.Command {
	return NewRootCmd(Env{})
}
