// Package provider is the command orchestration layer: it queues
// operations, executes them on a bounded worker pool, and serializes
// every state mutation through a single-consumer tick.
package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skaphos/lockkeeper/internal/cache"
	"github.com/skaphos/lockkeeper/internal/config"
	"github.com/skaphos/lockkeeper/internal/gitx"
	"github.com/skaphos/lockkeeper/internal/lockcache"
	"github.com/skaphos/lockkeeper/internal/model"
	"github.com/skaphos/lockkeeper/internal/remotecheck"
)

// syncPollInterval is the sleep between ticks while a synchronous
// submission waits. A busy-wait with short sleeps is deliberately simple:
// operations are already coarse-grained CLI invocations.
const syncPollInterval = 10 * time.Millisecond

// WorkerFunc executes one operation. It runs on a pool goroutine and must
// confine its effects to the command's result accumulator (plus the lock
// cache, which has its own synchronization).
type WorkerFunc func(ctx context.Context, p *Provider, cmd *Command) bool

// Provider is the source-control provider facade. Construct with New,
// then Init before issuing operations.
type Provider struct {
	cfg    *config.Config
	runner gitx.Runner
	dir    string

	store  *cache.Store
	locks  *lockcache.Cache
	remote *remotecheck.Checker

	infoMu       sync.RWMutex
	branch       string
	remoteBranch string
	user         string
	lfsVersion   string

	queueMu sync.Mutex
	queue   []*Command

	sem       chan struct{}
	workersMu sync.RWMutex
	workers   map[Operation]WorkerFunc

	refreshing atomic.Bool
	bgStop     chan struct{}
	bgDone     chan struct{}
}

// New creates a provider for the repository at dir. A nil runner selects
// the real git binary per the config.
func New(cfg *config.Config, runner gitx.Runner, dir string) *Provider {
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}
	if runner == nil {
		runner = &gitx.GitRunner{GitBin: cfg.GitBin, ExtraPath: cfg.ExtraPath}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultConfig().Concurrency
	}
	p := &Provider{
		cfg:    cfg,
		runner: runner,
		dir:    dir,
		store:  cache.NewStore(),
		sem:    make(chan struct{}, concurrency),
	}
	p.remote = remotecheck.New(runner, dir, cfg.Lockable)
	p.remote.RegisterBranches(cfg.StatusBranches)
	p.workers = map[Operation]WorkerFunc{
		OpConnect:      connectWorker,
		OpUpdateStatus: updateStatusWorker,
		OpCheckOut:     checkOutWorker,
		OpCheckIn:      checkInWorker,
		OpMarkForAdd:   markForAddWorker,
		OpDelete:       deleteWorker,
		OpRevert:       revertWorker,
		OpSync:         syncWorker,
		OpHistory:      historyWorker,
		OpUnlock:       unlockWorker,
		OpResolve:      resolveWorker,
	}
	return p
}

// RegisterWorker installs or replaces the handler for an operation kind.
// Safe to call at any time, including after commands are in flight.
func (p *Provider) RegisterWorker(op Operation, w WorkerFunc) {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	p.workers[op] = w
}

// Init connects to the repository: verifies the git and git-lfs binaries,
// resolves branch and user identity, and primes the lock cache handle.
func (p *Provider) Init(ctx context.Context) error {
	cmd, err := p.Execute(ctx, OpConnect, nil, ModeSync, nil)
	if err != nil {
		return err
	}
	if !cmd.Succeeded() {
		msgs := cmd.ErrorMessages()
		if len(msgs) > 0 {
			return fmt.Errorf("connect failed: %s", msgs[0])
		}
		return fmt.Errorf("connect failed")
	}
	return nil
}

// Close stops the background refresher if running.
func (p *Provider) Close() {
	if p.bgStop != nil {
		close(p.bgStop)
		<-p.bgDone
		p.bgStop = nil
	}
}

// Store exposes the state store for read access and listeners.
func (p *Provider) Store() *cache.Store { return p.store }

// Dir returns the repository root this provider operates on.
func (p *Provider) Dir() string { return p.dir }

// Runner exposes the subprocess runner for auxiliary queries.
func (p *Provider) Runner() gitx.Runner { return p.runner }

// Config returns the active configuration.
func (p *Provider) Config() *config.Config { return p.cfg }

// LockCache exposes the lock cache handle. Nil before Init.
func (p *Provider) LockCache() *lockcache.Cache {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.locks
}

// GetState returns cached states for the given paths, materializing
// defaults for unseen paths.
func (p *Provider) GetState(paths []string) []model.State {
	return p.store.States(paths)
}

// BranchName returns the current branch resolved at Init.
func (p *Provider) BranchName() string {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.branch
}

// RemoteBranchName returns the tracked upstream ref resolved at Init.
func (p *Provider) RemoteBranchName() string {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.remoteBranch
}

// LocksUser returns the username attributed to locks taken here.
func (p *Provider) LocksUser() string {
	p.infoMu.RLock()
	defer p.infoMu.RUnlock()
	return p.user
}

// RegisterStatusBranches replaces the divergence status branch set.
func (p *Provider) RegisterStatusBranches(names []string) {
	p.remote.RegisterBranches(names)
}

// Execute submits an operation. Async submissions return immediately and
// surface their result on a later Tick; sync submissions poll Tick on the
// calling goroutine until this command's result has been applied.
func (p *Provider) Execute(ctx context.Context, op Operation, files []string, mode Mode, onDone func(*Command)) (*Command, error) {
	return p.ExecuteWithMessage(ctx, op, files, "", mode, onDone)
}

// ExecuteWithMessage is Execute with a description attached; check-in
// uses it as the commit message.
func (p *Provider) ExecuteWithMessage(ctx context.Context, op Operation, files []string, message string, mode Mode, onDone func(*Command)) (*Command, error) {
	p.workersMu.RLock()
	worker, ok := p.workers[op]
	p.workersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported operation %q", op)
	}
	cmd := newCommand(op, files, mode, onDone)
	cmd.Message = message

	p.queueMu.Lock()
	p.queue = append(p.queue, cmd)
	p.queueMu.Unlock()

	go p.runWorker(ctx, worker, cmd)

	if mode == ModeSync {
		for !cmd.Done() {
			if !p.Tick() {
				time.Sleep(syncPollInterval)
			}
		}
	}
	return cmd, nil
}

// CancelOperation requests cancellation of an in-flight command.
func (p *Provider) CancelOperation(cmd *Command) {
	if cmd != nil {
		cmd.Cancel()
	}
}

// Tick drains at most one completed command: its deltas are applied to
// the state store, its callback runs, and it leaves the queue. Limiting
// to one command per tick keeps callbacks (which may enqueue new work)
// from observing a half-drained queue.
func (p *Provider) Tick() bool {
	p.queueMu.Lock()
	var cmd *Command
	for i, c := range p.queue {
		if c.Processed() {
			cmd = c
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	p.queueMu.Unlock()
	if cmd == nil {
		return false
	}

	if !cmd.Cancelled() && cmd.Succeeded() {
		p.store.ApplyAll(cmd.Deltas())
	}
	if cmd.OnDone != nil {
		cmd.OnDone(cmd)
	}
	cmd.markDone()
	return true
}

// QueueLength reports the number of commands not yet drained.
func (p *Provider) QueueLength() int {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	return len(p.queue)
}

// RequestForcedRefresh issues a status update for paths, skipping paths
// whose state was just written by a completed operation (the one-shot
// suppression markers). Returns nil when every path was suppressed.
func (p *Provider) RequestForcedRefresh(ctx context.Context, paths []string) (*Command, error) {
	var remaining []string
	for _, path := range paths {
		if !p.store.ConsumeForceSkip(path) {
			remaining = append(remaining, path)
		}
	}
	if len(paths) > 0 && len(remaining) == 0 {
		return nil, nil
	}
	return p.Execute(ctx, OpUpdateStatus, remaining, ModeAsync, nil)
}

// StartBackgroundRefresh launches the periodic status refresh. A tick
// while a prior refresh is still in flight is a no-op, so a slow
// repository cannot grow the queue without bound.
func (p *Provider) StartBackgroundRefresh(ctx context.Context) {
	if p.bgStop != nil {
		return
	}
	p.bgStop = make(chan struct{})
	p.bgDone = make(chan struct{})
	interval := p.cfg.RefreshInterval()
	go func() {
		defer close(p.bgDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.bgStop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !p.refreshing.CompareAndSwap(false, true) {
					continue
				}
				_, err := p.Execute(ctx, OpUpdateStatus, nil, ModeAsync, func(*Command) {
					p.refreshing.Store(false)
				})
				if err != nil {
					p.refreshing.Store(false)
				}
			}
		}
	}()
}

func (p *Provider) runWorker(ctx context.Context, worker WorkerFunc, cmd *Command) {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	cmd.executing.Store(true)
	ok := worker(ctx, p, cmd)
	cmd.setOK(ok)
	cmd.executing.Store(false)
	cmd.processed.Store(true)
}

func (p *Provider) setIdentity(branch, remoteBranch, user, lfsVersion string) {
	p.infoMu.Lock()
	p.branch = branch
	p.remoteBranch = remoteBranch
	p.user = user
	p.lfsVersion = lfsVersion
	p.infoMu.Unlock()
}

func (p *Provider) setLockCache(c *lockcache.Cache) {
	p.infoMu.Lock()
	p.locks = c
	p.infoMu.Unlock()
}
