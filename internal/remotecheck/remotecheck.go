// Package remotecheck classifies per-file staleness against the tracked
// upstream and any registered status branches.
package remotecheck

import (
	"context"
	"strings"
	"sync"

	"github.com/skaphos/lockkeeper/internal/gitx"
	"github.com/skaphos/lockkeeper/internal/model"
)

// Checker diffs the local HEAD against remote branches. Only lockable
// files are classified: an asset that cannot be text-merged is the only
// kind that "goes stale" in a way the user must act on before editing.
type Checker struct {
	runner   gitx.Runner
	dir      string
	lockable func(string) bool

	mu       sync.Mutex
	branches []string
}

// New creates a checker. lockable decides which repo-relative paths are
// subject to divergence classification.
func New(runner gitx.Runner, dir string, lockable func(string) bool) *Checker {
	if lockable == nil {
		lockable = func(string) bool { return true }
	}
	return &Checker{runner: runner, dir: dir, lockable: lockable}
}

// RegisterBranches replaces the set of status branches checked in
// addition to the current upstream.
func (c *Checker) RegisterBranches(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.branches = append([]string(nil), names...)
}

// Branches returns the registered status branches.
func (c *Checker) Branches() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.branches...)
}

// Check classifies each lockable file in files against the upstream and
// status branches. A file changed on the current branch's own upstream is
// NotAtHead; a file changed only on a sibling status branch is NotLatest,
// stamped with that branch's name. NotAtHead always wins: the
// local/upstream relationship takes priority over sibling divergence, so
// later branch passes never downgrade it. Files with no remote changes
// come back UpToDate so stale flags clear.
func (c *Checker) Check(ctx context.Context, files []string) (map[string]model.Delta, error) {
	deltas := make(map[string]model.Delta)
	requested := make(map[string]struct{}, len(files))
	for _, f := range files {
		if c.lockable(f) {
			requested[f] = struct{}{}
		}
	}
	if len(requested) == 0 {
		return deltas, nil
	}

	upstream := gitx.RemoteBranch(ctx, c.runner, c.dir)
	if upstream != "" {
		changed, err := c.changedOnBranch(ctx, upstream)
		if err != nil {
			return nil, err
		}
		for _, path := range changed {
			if _, ok := requested[path]; !ok {
				continue
			}
			d := model.NewDelta()
			d.Remote = model.RemoteNotAtHead
			d.HeadBranch = upstream
			deltas[path] = d
		}
	}

	for _, branch := range c.Branches() {
		ref := statusBranchRef(branch)
		if ref == upstream {
			continue
		}
		changed, err := c.changedOnBranch(ctx, ref)
		if err != nil {
			// A status branch that does not exist on this remote is not an
			// error for the files; skip it.
			continue
		}
		for _, path := range changed {
			if _, ok := requested[path]; !ok {
				continue
			}
			if existing, ok := deltas[path]; ok && existing.Remote == model.RemoteNotAtHead {
				continue
			}
			d := model.NewDelta()
			d.Remote = model.RemoteNotLatest
			d.HeadBranch = branch
			deltas[path] = d
		}
	}

	for path := range requested {
		if _, ok := deltas[path]; ok {
			continue
		}
		d := model.NewDelta()
		d.Remote = model.RemoteUpToDate
		deltas[path] = d
	}
	return deltas, nil
}

// changedOnBranch lists the files touched by commits reachable from ref
// but not from HEAD.
func (c *Checker) changedOnBranch(ctx context.Context, ref string) ([]string, error) {
	out, err := c.runner.Run(ctx, c.dir, "log", "--pretty=", "--name-only", ".."+ref)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		files = append(files, line)
	}
	return files, nil
}

func statusBranchRef(branch string) string {
	if strings.Contains(branch, "/") {
		return branch
	}
	return "origin/" + branch
}
