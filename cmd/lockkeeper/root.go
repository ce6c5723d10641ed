// Package lockkeeper contains the Cobra command tree for the LockKeeper CLI.
package lockkeeper

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/skaphos/lockkeeper/internal/config"
	"github.com/skaphos/lockkeeper/internal/gitx"
	"github.com/skaphos/lockkeeper/internal/provider"
)

var (
	// Global flags
	flagVerbose int
	flagQuiet   bool
	flagConfig  string
	flagNoColor bool
	// colorOutputEnabled is set per command execution based on TTY detection.
	colorOutputEnabled bool
	// exitCode tracks the highest severity observed during a command run.
	exitCode int
	// isTerminalFD is overridable in tests.
	isTerminalFD = term.IsTerminal
	// exitFunc is overridable in tests.
	exitFunc = os.Exit
)

var rootCmd = &cobra.Command{
	Use:   "lockkeeper",
	Short: "Git LFS lock-aware source control helper for binary asset trees",
	Long:  "LockKeeper tracks per-file working state for large binary assets in a Git LFS repository: who holds locks, what changed locally, and what moved at the remote. It drives check-out (lock), check-in (commit+push+unlock), revert, and sync without touching files other users have locked.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// `NO_COLOR` is a standard opt-out and should behave like --no-color.
		if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
			flagNoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase output verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "override config file path")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() {
	exitFunc(ExecuteWithExitCode())
}

// ExecuteWithExitCode runs the root command and returns a shell-friendly exit code.
func ExecuteWithExitCode() int {
	exitCode = 0
	colorOutputEnabled = false
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}
	return exitCode
}

func raiseExitCode(code int) {
	// Keep the highest severity: 0 success, 1 warning, 2 error, 3 fatal.
	if code > exitCode {
		exitCode = code
	}
}

func infof(cmd *cobra.Command, format string, args ...any) {
	if flagQuiet {
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func debugf(cmd *cobra.Command, format string, args ...any) {
	if flagQuiet || flagVerbose <= 0 {
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func setColorOutputMode(cmd *cobra.Command) {
	colorOutputEnabled = shouldUseColorOutput(cmd)
}

func shouldUseColorOutput(cmd *cobra.Command) bool {
	if flagNoColor {
		return false
	}
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}

// newProvider loads the config, locates the repository root from the
// working directory, and connects a provider.
func newProvider(cmd *cobra.Command) (*provider.Provider, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfgPath, err := config.ResolveConfigPath(flagConfig, cwd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		debugf(cmd, "using config %s", cfgPath)
	}

	runner := &gitx.GitRunner{GitBin: cfg.GitBin, ExtraPath: cfg.ExtraPath}
	root, err := gitx.RootDir(cmd.Context(), runner, cwd)
	if err != nil {
		return nil, fmt.Errorf("not inside a git working tree: %w", err)
	}
	debugf(cmd, "repository root %s", root)

	p := provider.New(cfg, runner, root)
	if err := p.Init(cmd.Context()); err != nil {
		return nil, err
	}
	return p, nil
}

// runOperation submits one synchronous operation and relays its messages.
// Returns the completed command so callers can render deltas.
func runOperation(cmd *cobra.Command, p *provider.Provider, op provider.Operation, files []string, message string) (*provider.Command, error) {
	result, err := p.ExecuteWithMessage(cmd.Context(), op, files, message, provider.ModeSync, nil)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.InfoMessages() {
		infof(cmd, "%s", msg)
	}
	for _, msg := range result.ErrorMessages() {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
	if !result.Succeeded() {
		raiseExitCode(2)
	}
	return result, nil
}
