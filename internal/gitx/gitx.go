// Package gitx provides helpers for executing git and git-lfs commands and
// parsing their output. It shells out to the installed git binary.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// BatchFileLimit caps the number of paths appended to a single git
// invocation so command lines stay under platform argv limits.
const BatchFileLimit = 50

// Runner executes git commands in a given repo directory.
// This interface allows mocking in tests.
type Runner interface {
	// Run executes a git command in the given directory and returns
	// combined stdout/stderr output. Progress written to stderr by a
	// succeeding command is part of the returned output, not an error.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// StreamRunner can stream a command's raw stdout to a writer. Used for
// binary blob dumps where combined text capture would corrupt content.
type StreamRunner interface {
	RunStream(ctx context.Context, dir string, out io.Writer, args ...string) error
}

// GitRunner is the default Runner implementation that shells out to git.
type GitRunner struct {
	// GitBin is the path to the git binary. Defaults to "git".
	GitBin string
	// ExtraPath entries are prepended to PATH for spawned processes.
	// GUI-launched hosts often run without the shell profile PATH that
	// git-lfs was installed into.
	ExtraPath []string
}

// Run executes a git command.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := g.command(ctx, dir, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// RunStream executes a git command, streaming stdout to out.
func (g *GitRunner) RunStream(ctx context.Context, dir string, out io.Writer, args ...string) error {
	cmd := g.command(ctx, dir, args...)
	var stderr strings.Builder
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w", msg, err)
		}
		return err
	}
	return nil
}

func (g *GitRunner) command(ctx context.Context, dir string, args ...string) *exec.Cmd {
	bin := g.GitBin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(g.ExtraPath) > 0 {
		path := strings.Join(append(append([]string(nil), g.ExtraPath...), os.Getenv("PATH")), string(os.PathListSeparator))
		cmd.Env = append(os.Environ(), "PATH="+path)
	}
	return cmd
}

// CheckAvailable verifies the configured git binary can be spawned at all.
func CheckAvailable(ctx context.Context, r Runner, dir string) error {
	out, err := r.Run(ctx, dir, "version")
	if err != nil {
		return fmt.Errorf("git binary unavailable: %w", err)
	}
	if !strings.Contains(out, "git version") {
		return fmt.Errorf("unexpected git version output %q", out)
	}
	return nil
}

// CommandLine renders an argv as a copy-pasteable shell line for logging.
func CommandLine(bin string, args []string) string {
	if bin == "" {
		bin = "git"
	}
	return shellescape.QuoteCommand(append([]string{bin}, args...))
}

// RunWithFiles executes a git command over a file list, splitting the list
// into batches of at most BatchFileLimit paths. All batches are attempted
// even after a failure; the combined output is returned along with the
// joined errors, so overall success is the AND of every batch.
func RunWithFiles(ctx context.Context, r Runner, dir string, args []string, files []string) (string, error) {
	if len(files) == 0 {
		return r.Run(ctx, dir, args...)
	}
	var outputs []string
	var errs []error
	for start := 0; start < len(files); start += BatchFileLimit {
		end := start + BatchFileLimit
		if end > len(files) {
			end = len(files)
		}
		batch := append(append([]string(nil), args...), "--")
		batch = append(batch, files[start:end]...)
		out, err := r.Run(ctx, dir, batch...)
		if out != "" {
			outputs = append(outputs, out)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return strings.Join(outputs, "\n"), errors.Join(errs...)
}

// RunCommit creates a single logical commit spanning any number of files.
// The first batch is a plain commit; each subsequent batch amends it, so a
// large file list never produces more than one commit.
func RunCommit(ctx context.Context, r Runner, dir string, args []string, files []string) (string, error) {
	if len(files) <= BatchFileLimit {
		return RunWithFiles(ctx, r, dir, append([]string{"commit"}, args...), files)
	}
	out, err := RunWithFiles(ctx, r, dir, append([]string{"commit"}, args...), files[:BatchFileLimit])
	if err != nil {
		return out, err
	}
	amendArgs := append([]string{"commit", "--amend"}, args...)
	rest, err := RunWithFiles(ctx, r, dir, amendArgs, files[BatchFileLimit:])
	if rest != "" {
		out = out + "\n" + rest
	}
	return out, err
}

// IsRepo checks whether the given path is inside a git working tree.
func IsRepo(ctx context.Context, r Runner, dir string) (bool, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(out) == "true", nil
}

// RootDir returns the absolute top-level directory of the working tree.
func RootDir(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// BranchName returns the current branch, or the short commit hash when
// HEAD is detached.
func BranchName(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out), nil
	}
	hash, err := r.Run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// RemoteBranch returns the upstream tracking ref for the current branch
// (for example, "origin/main"). Empty when no upstream is configured.
func RemoteBranch(ctx context.Context, r Runner, dir string) string {
	out, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// RemoteURL returns the fetch URL of the named remote.
func RemoteURL(ctx context.Context, r Runner, dir, remote string) (string, error) {
	if remote == "" {
		remote = "origin"
	}
	out, err := r.Run(ctx, dir, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("git remote get-url %s: %w", remote, err)
	}
	return strings.TrimSpace(out), nil
}

// UserName returns the configured git user.name for the repo.
func UserName(ctx context.Context, r Runner, dir string) string {
	out, err := r.Run(ctx, dir, "config", "user.name")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// UserEmail returns the configured git user.email for the repo.
func UserEmail(ctx context.Context, r Runner, dir string) string {
	out, err := r.Run(ctx, dir, "config", "user.email")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// CommitSummary describes the current HEAD commit.
type CommitSummary struct {
	Commit  string
	Summary string
}

// HeadCommit returns the id and subject line of HEAD.
func HeadCommit(ctx context.Context, r Runner, dir string) (CommitSummary, error) {
	out, err := r.Run(ctx, dir, "log", "-1", "--format=%H %s")
	if err != nil {
		return CommitSummary{}, fmt.Errorf("git log -1: %w", err)
	}
	commit, summary, _ := strings.Cut(strings.TrimSpace(out), " ")
	return CommitSummary{Commit: commit, Summary: summary}, nil
}

// CheckLFSInstalled verifies git-lfs responds and returns its version line.
func CheckLFSInstalled(ctx context.Context, r Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "lfs", "version")
	if err != nil {
		return "", fmt.Errorf("git-lfs unavailable: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Fetch updates remote refs without touching the working tree.
func Fetch(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "fetch", "--prune")
	return err
}

// PullRebase integrates upstream changes, stashing local edits around the
// rebase so a dirty tree does not abort the pull.
func PullRebase(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "pull", "--rebase", "--autostash")
}

// Push sends the current branch to its remote.
func Push(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "push")
}

// CommittedAheadOfRemote lists files whose commits are not yet on the
// tracked remote branch. Used to decide which locks a successful push has
// actually made safe to release.
func CommittedAheadOfRemote(ctx context.Context, r Runner, dir, remoteBranch string) ([]string, error) {
	if remoteBranch == "" {
		return nil, nil
	}
	out, err := r.Run(ctx, dir, "diff", "--name-only", remoteBranch+"...HEAD")
	if err != nil {
		return nil, fmt.Errorf("git diff %s...HEAD: %w", remoteBranch, err)
	}
	return splitNonEmptyLines(out), nil
}

// LockableAttribute reports whether the path carries the lockable git
// attribute (set by `git lfs track --lockable`).
func LockableAttribute(ctx context.Context, r Runner, dir, path string) bool {
	out, err := r.Run(ctx, dir, "check-attr", "lockable", "--", path)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.TrimSpace(out), ": lockable: set")
}

// DumpBlob writes the content of path at revision to dst, applying LFS
// smudge filters so the real content is exported, not the pointer file.
func DumpBlob(ctx context.Context, r Runner, dir, revision, path string, dst io.Writer) error {
	args := []string{"cat-file", "--filters", revision + ":" + path}
	if sr, ok := r.(StreamRunner); ok {
		return sr.RunStream(ctx, dir, dst, args...)
	}
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(dst, out)
	return err
}

func splitNonEmptyLines(out string) []string {
	if strings.TrimSpace(out) == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
