package provider

import (
	"context"
	"strings"

	"github.com/skaphos/lockkeeper/internal/gitx"
	"github.com/skaphos/lockkeeper/internal/lockcache"
	"github.com/skaphos/lockkeeper/internal/model"
)

func connectWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	if err := gitx.CheckAvailable(ctx, p.runner, p.dir); err != nil {
		cmd.Errorf("%v", err)
		return false
	}
	if ok, _ := gitx.IsRepo(ctx, p.runner, p.dir); !ok {
		cmd.Errorf("%s is not inside a git working tree", p.dir)
		return false
	}

	lfsVersion := ""
	if p.cfg.LockingEnabled() {
		version, err := gitx.CheckLFSInstalled(ctx, p.runner, p.dir)
		if err != nil {
			cmd.Errorf("%v", err)
			return false
		}
		lfsVersion = version
		cmd.Infof("%s", version)
	}

	branch, err := gitx.BranchName(ctx, p.runner, p.dir)
	if err != nil {
		cmd.Errorf("%v", err)
		return false
	}
	remoteBranch := gitx.RemoteBranch(ctx, p.runner, p.dir)

	user := p.cfg.LFSUserName
	if user == "" {
		user = gitx.UserName(ctx, p.runner, p.dir)
	}
	p.setIdentity(branch, remoteBranch, user, lfsVersion)
	p.setLockCache(lockcache.New(p.runner, p.dir, user, p.cfg.LockCacheTTL()))

	cmd.Infof("connected to %s on branch %s", p.dir, branch)
	return true
}

func updateStatusWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	deltas, ok := p.collectStatus(ctx, cmd, cmd.Files)
	if !ok {
		return false
	}
	cmd.AddDeltas(deltas)
	return true
}

// collectStatus gathers every axis for the given files (or the whole tree
// when files is empty): porcelain status, lock ownership, conflict base
// hashes, and remote divergence.
func (p *Provider) collectStatus(ctx context.Context, cmd *Command, files []string) (map[string]model.Delta, bool) {
	out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"status", "--porcelain"}, files)
	if err != nil {
		cmd.Errorf("git status failed (%s): %v", gitx.ClassifyGitError(out), err)
		return nil, false
	}
	deltas := gitx.ParseStatus(out)

	// Requested files absent from porcelain output are clean. A whole-tree
	// scan covers every known path, so cached entries missing from the
	// output went clean externally and must reset too.
	for _, f := range files {
		if _, ok := deltas[f]; !ok {
			d := model.NewDelta()
			d.File = model.FileUnknown
			d.Tree = model.TreeUnmodified
			deltas[f] = d
		}
	}
	if len(files) == 0 {
		for _, st := range p.store.All() {
			if _, ok := deltas[st.Path]; !ok {
				d := model.NewDelta()
				d.File = model.FileUnknown
				d.Tree = model.TreeUnmodified
				deltas[st.Path] = d
			}
		}
	}

	if p.cfg.LockingEnabled() {
		p.mergeLockStates(ctx, cmd, deltas)
	}
	p.mergeConflictBases(ctx, deltas)
	p.mergeRemoteStates(ctx, cmd, deltas)
	return deltas, true
}

func (p *Provider) mergeLockStates(ctx context.Context, cmd *Command, deltas map[string]model.Delta) {
	locks := p.LockCache()
	if locks == nil {
		return
	}
	known, err := locks.GetAll(ctx, false)
	if err != nil {
		// Lock info is best effort during status; the file/tree axes from
		// this scan are still valid.
		cmd.Infof("lock listing unavailable: %v", err)
		return
	}
	paths := make(map[string]struct{}, len(deltas)+len(known))
	for path := range deltas {
		paths[path] = struct{}{}
	}
	for path := range known {
		paths[path] = struct{}{}
	}
	self := p.LocksUser()
	for path := range paths {
		d, ok := deltas[path]
		if !ok {
			d = model.NewDelta()
		}
		owner, locked := known[path]
		switch {
		case locked && owner == self:
			d.Lock = model.LockHeld
			d.LockOwner = owner
		case locked:
			d.Lock = model.LockHeldOther
			d.LockOwner = owner
		case p.cfg.Lockable(path):
			d.Lock = model.LockNone
		default:
			d.Lock = model.LockUnlockable
		}
		deltas[path] = d
	}
}

func (p *Provider) mergeConflictBases(ctx context.Context, deltas map[string]model.Delta) {
	for path, d := range deltas {
		if d.File != model.FileUnmerged {
			continue
		}
		out, err := p.runner.Run(ctx, p.dir, "ls-files", "--unmerged", "--", path)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if hash, ok := gitx.ParseUnmergedAncestor(lines); ok {
			d.PendingMergeBaseHash = &hash
			deltas[path] = d
		}
	}
}

func (p *Provider) mergeRemoteStates(ctx context.Context, cmd *Command, deltas map[string]model.Delta) {
	if p.RemoteBranchName() == "" && len(p.remote.Branches()) == 0 {
		return
	}
	candidates := make([]string, 0, len(deltas))
	for path := range deltas {
		candidates = append(candidates, path)
	}
	for _, st := range p.store.All() {
		if _, ok := deltas[st.Path]; !ok {
			candidates = append(candidates, st.Path)
		}
	}
	remote, err := p.remote.Check(ctx, candidates)
	if err != nil {
		cmd.Infof("remote divergence check unavailable: %v", err)
		return
	}
	for path, rd := range remote {
		d, ok := deltas[path]
		if !ok {
			d = model.NewDelta()
		}
		d.Remote = rd.Remote
		d.HeadBranch = rd.HeadBranch
		deltas[path] = d
	}
}

func checkOutWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	if !p.cfg.LockingEnabled() {
		cmd.Errorf("file locking is disabled in the configuration")
		return false
	}
	locks := p.LockCache()
	self := p.LocksUser()
	ok := true
	for _, file := range cmd.Files {
		out, err := p.runner.Run(ctx, p.dir, "lfs", "lock", file)
		if err != nil {
			cmd.Errorf("lock %s failed (%s): %s", file, gitx.ClassifyGitError(out), firstLine(out))
			ok = false
			continue
		}
		if locks != nil {
			locks.Add(file, self)
		}
		d := model.NewDelta()
		d.Lock = model.LockHeld
		d.LockOwner = self
		cmd.AddDelta(file, d)
		cmd.Infof("locked %s", file)
	}
	return ok
}

func unlockWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	locks := p.LockCache()
	ok := true
	for _, file := range cmd.Files {
		out, err := p.runner.Run(ctx, p.dir, "lfs", "unlock", file)
		if err != nil {
			cmd.Errorf("unlock %s failed: %s", file, firstLine(out))
			ok = false
			continue
		}
		if locks != nil {
			locks.Remove(file)
		}
		d := model.NewDelta()
		d.Lock = model.LockNone
		cmd.AddDelta(file, d)
		cmd.Infof("unlocked %s", file)
	}
	return ok
}

func checkInWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	if out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"add"}, cmd.Files); err != nil {
		cmd.Errorf("git add failed: %s", firstLine(out))
		return false
	}

	message := cmd.Message
	if message == "" {
		message = "Updated files"
	}
	out, err := gitx.RunCommit(ctx, p.runner, p.dir, []string{"-m", message}, cmd.Files)
	if err != nil {
		cmd.Errorf("git commit failed (%s): %s", gitx.ClassifyGitError(out), firstLine(out))
		return false
	}
	cmd.Infof("%s", firstLine(out))

	remoteBranch := p.RemoteBranchName()
	// Capture the files whose commits this push will transmit before
	// pushing; after a successful push the range is empty.
	pushedFiles, _ := gitx.CommittedAheadOfRemote(ctx, p.runner, p.dir, remoteBranch)

	if !p.pushWithRetry(ctx, cmd) {
		return false
	}

	p.unlockPushedFiles(ctx, cmd, pushedFiles)

	recorded := cmd.Deltas()
	for _, file := range cmd.Files {
		d, ok := recorded[file]
		if !ok {
			d = model.NewDelta()
		}
		d.File = model.FileUnknown
		d.Tree = model.TreeUnmodified
		d.Remote = model.RemoteUpToDate
		cmd.AddDelta(file, d)
	}
	return true
}

// pushWithRetry pushes the current branch; a non-fast-forward rejection
// triggers exactly one fetch + rebase-pull + re-push. A second failure is
// surfaced for manual resolution rather than attempting anything
// destructive while assets may be open in the editor.
func (p *Provider) pushWithRetry(ctx context.Context, cmd *Command) bool {
	out, err := gitx.Push(ctx, p.runner, p.dir)
	if err == nil {
		cmd.Infof("pushed to %s", p.RemoteBranchName())
		return true
	}
	if !gitx.IsOutOfDate(out) {
		cmd.Errorf("git push failed (%s): %s", gitx.ClassifyGitError(out), firstLine(out))
		return false
	}

	cmd.Infof("push rejected as non-fast-forward; fetching and rebasing")
	if err := gitx.Fetch(ctx, p.runner, p.dir); err != nil {
		cmd.Errorf("git fetch failed: %v", err)
		return false
	}
	if out, err := gitx.PullRebase(ctx, p.runner, p.dir); err != nil {
		cmd.Errorf("git pull --rebase failed (%s): %s", gitx.ClassifyGitError(out), firstLine(out))
		return false
	}
	out, err = gitx.Push(ctx, p.runner, p.dir)
	if err != nil {
		cmd.Errorf("push failed again after rebase; resolve manually: %s", firstLine(out))
		return false
	}
	cmd.Infof("pushed to %s after rebase", p.RemoteBranchName())
	return true
}

// unlockPushedFiles releases locks only for files confirmed transmitted
// by the push, never speculatively.
func (p *Provider) unlockPushedFiles(ctx context.Context, cmd *Command, pushedFiles []string) {
	if !p.cfg.LockingEnabled() {
		return
	}
	locks := p.LockCache()
	if locks == nil {
		return
	}
	pushed := make(map[string]struct{}, len(pushedFiles))
	for _, f := range pushedFiles {
		pushed[f] = struct{}{}
	}
	self := p.LocksUser()
	for _, file := range cmd.Files {
		if _, ok := pushed[file]; !ok {
			continue
		}
		if owner, held := locks.Owner(file); !held || owner != self {
			continue
		}
		if out, err := p.runner.Run(ctx, p.dir, "lfs", "unlock", file); err != nil {
			cmd.Infof("could not release lock on %s: %s", file, firstLine(out))
			continue
		}
		locks.Remove(file)
		d := model.NewDelta()
		d.Lock = model.LockNone
		cmd.AddDelta(file, d)
	}
}

func markForAddWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"add"}, cmd.Files)
	if err != nil {
		cmd.Errorf("git add failed: %s", firstLine(out))
		return false
	}
	for _, file := range cmd.Files {
		d := model.NewDelta()
		d.File = model.FileAdded
		d.Tree = model.TreeStaged
		cmd.AddDelta(file, d)
	}
	return true
}

func deleteWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"rm"}, cmd.Files)
	if err != nil {
		cmd.Errorf("git rm failed: %s", firstLine(out))
		return false
	}
	for _, file := range cmd.Files {
		d := model.NewDelta()
		d.File = model.FileDeleted
		d.Tree = model.TreeStaged
		cmd.AddDelta(file, d)
	}
	return true
}

func revertWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	// Unstage first so freshly-added files fall back to untracked instead
	// of failing the restore with a pathspec error.
	if out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"reset", "-q", "HEAD"}, cmd.Files); err != nil {
		cmd.Infof("git reset: %s", firstLine(out))
	}
	if out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"checkout", "--"}, cmd.Files); err != nil {
		// Untracked survivors of the reset legitimately fail checkout.
		cmd.Infof("git checkout: %s", firstLine(out))
	}

	deltas, ok := p.collectStatus(ctx, cmd, cmd.Files)
	if !ok {
		return false
	}

	// Release locks on files the revert restored to a clean state.
	if p.cfg.LockingEnabled() {
		locks := p.LockCache()
		self := p.LocksUser()
		for _, file := range cmd.Files {
			d, seen := deltas[file]
			clean := !seen || (d.Tree == model.TreeUnmodified && d.File == model.FileUnknown)
			if !clean || locks == nil {
				continue
			}
			if owner, held := locks.Owner(file); !held || owner != self {
				continue
			}
			if _, err := p.runner.Run(ctx, p.dir, "lfs", "unlock", file); err != nil {
				continue
			}
			locks.Remove(file)
			if !seen {
				d = model.NewDelta()
			}
			d.Lock = model.LockNone
			deltas[file] = d
		}
	}

	cmd.AddDeltas(deltas)
	return true
}

func syncWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	out, err := p.runner.Run(ctx, p.dir, "status", "--porcelain")
	if err != nil {
		cmd.Errorf("git status failed: %s", firstLine(out))
		return false
	}
	if strings.TrimSpace(out) != "" {
		cmd.Errorf("working tree has uncommitted changes; check in or revert before syncing")
		return false
	}

	if err := gitx.Fetch(ctx, p.runner, p.dir); err != nil {
		cmd.Errorf("git fetch failed: %v", err)
		return false
	}
	pullOut, err := gitx.PullRebase(ctx, p.runner, p.dir)
	if err != nil {
		cmd.Errorf("git pull --rebase failed (%s): %s", gitx.ClassifyGitError(pullOut), firstLine(pullOut))
		return false
	}
	cmd.Infof("%s", firstLine(pullOut))

	deltas, ok := p.collectStatus(ctx, cmd, cmd.Files)
	if !ok {
		return false
	}
	cmd.AddDeltas(deltas)
	return true
}

func historyWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	ok := true
	for _, file := range cmd.Files {
		out, err := p.runner.Run(ctx, p.dir, "log", "--follow", "--max-count", "100", "--pretty=medium", "--name-status", "--", file)
		if err != nil {
			cmd.Errorf("git log for %s failed: %s", file, firstLine(out))
			ok = false
			continue
		}
		revisions := gitx.ParseLog(out)
		for i := range revisions {
			if revisions[i].Filename == "" {
				revisions[i].Filename = file
			}
			p.fillBlobInfo(ctx, &revisions[i])
		}
		d := model.NewDelta()
		d.History = revisions
		cmd.AddDelta(file, d)
	}
	return ok
}

func (p *Provider) fillBlobInfo(ctx context.Context, rev *model.Revision) {
	out, err := p.runner.Run(ctx, p.dir, "ls-tree", "--long", rev.Commit, "--", rev.Filename)
	if err != nil {
		return
	}
	if hash, size, ok := gitx.ParseLsTree(firstLine(out)); ok {
		rev.FileHash = hash
		rev.FileSize = size
	}
}

func resolveWorker(ctx context.Context, p *Provider, cmd *Command) bool {
	out, err := gitx.RunWithFiles(ctx, p.runner, p.dir, []string{"add"}, cmd.Files)
	if err != nil {
		cmd.Errorf("git add failed: %s", firstLine(out))
		return false
	}
	cleared := ""
	for _, file := range cmd.Files {
		d := model.NewDelta()
		d.File = model.FileModified
		d.Tree = model.TreeStaged
		d.PendingMergeBaseHash = &cleared
		cmd.AddDelta(file, d)
	}
	return true
}

func firstLine(out string) string {
	out = strings.TrimSpace(out)
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		return out[:idx]
	}
	return out
}
