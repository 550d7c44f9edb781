// Command trellis manages a planning tree of projects, epics, features and
// tasks stored as markdown files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/audit"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/config"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/debug"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/storage"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/telemetry"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/ui"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	settings *config.Settings
	log      *slog.Logger
	store    storage.Storage
	root     string

	out    io.Writer
	errOut io.Writer

	verbose bool
	quiet   bool

	prevAudit *audit.Recorder
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"root":                   "root",
	"json":                   "json",
	"ensure-planning-subdir": "ensure-planning-subdir",
	"log-level":              "log.level",
	"log-format":             "log.format",
	"lock-timeout":           "lock-timeout",
	"audit-file":             "audit.file",
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trellis",
		Short: "trellis - hierarchical planning store",
		Long: `Projects, epics, features and tasks kept as markdown files with YAML
front-matter. Tasks may also stand alone at the planning root.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.String("root", "", "Planning root, or a project root holding planning/ (default: current directory)")
	pf.Bool("json", false, "Output in JSON format")
	pf.Bool("ensure-planning-subdir", false, "Write new objects under <root>/planning")
	pf.String("log-level", "warn", "Log level (debug|info|warn|error)")
	pf.String("log-format", "text", "Log format (text|json)")
	pf.Duration("lock-timeout", storage.DefaultLockTimeout, "How long to wait for the planning root lock")
	pf.String("audit-file", "", "Append security audit entries to this JSONL file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output (errors only)")

	cmd.AddGroup(
		&cobra.Group{ID: "objects", Title: "Working With Objects:"},
		&cobra.Group{ID: "views", Title: "Views & Reports:"},
		&cobra.Group{ID: "setup", Title: "Setup & Configuration:"},
	)
	cmd.AddCommand(
		newCreateCmd(a),
		newCompleteCmd(a),
		newStatusCmd(a),
		newPrereqsCmd(a),
		newResolveCmd(a),
		newIdentifyCmd(a),
		newChildrenCmd(a),
		newShowCmd(a),
		newValidateCmd(a),
		newLintCmd(a),
		newGraphCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	debug.SetVerbose(a.verbose)
	debug.SetQuiet(a.quiet)
	debug.SetOutput(a.out, a.errOut)
	ui.ConfigureProfile()

	if err := config.Initialize(); err != nil {
		return err
	}
	v := config.Viper()
	for flag, key := range flagKeys {
		if f := cmd.Root().PersistentFlags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}
	a.settings = settings
	if a.verbose {
		a.settings.LogLevel = "debug"
	}
	a.log = newLogger(a.errOut, a.settings.LogLevel, a.settings.LogFormat)
	a.prevAudit = audit.SetDefault(audit.New(a.settings.AuditFile, a.log))

	if err := telemetry.Init(cmd.Context(), "trellis", Version); err != nil {
		a.log.Warn("telemetry disabled", "error", err)
	}

	a.root = a.settings.Root
	if a.root == "" {
		if a.root, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}
	cacheSize := 0
	if a.settings.CacheEnabled {
		cacheSize = a.settings.CacheSize
	}
	fs, err := storage.New(a.root, storage.Options{
		EnsurePlanningSubdir: a.settings.EnsurePlanningSubdir,
		CacheSize:            cacheSize,
		LockTimeout:          a.settings.LockTimeout,
		Logger:               a.log,
	})
	if err != nil {
		return err
	}
	a.root = fs.Root()
	a.store = telemetry.WrapStorage(fs)
	debug.Logf("planning root %s (config %s)\n", a.root, config.ConfigFileUsed())
	return nil
}

func (a *app) teardown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	telemetry.Shutdown(shutdownCtx)
	if a.prevAudit != nil {
		audit.SetDefault(a.prevAudit)
		a.prevAudit = nil
	}
}

func (a *app) jsonOutput() bool {
	return a.settings != nil && a.settings.JSON
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.teardown(ctx)
	if err == nil {
		return 0
	}
	if a.jsonOutput() {
		outputJSONError(stderr, err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
