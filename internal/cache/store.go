// Package cache owns the authoritative per-file state map. Every other
// component only ever produces field-sparse deltas; this store is the one
// place those deltas are merged, so the four status axes stay consistent
// under concurrent command execution.
package cache

import (
	"sync"
	"time"

	"github.com/skaphos/lockkeeper/internal/model"
)

// Listener receives the paths whose state changed in one merge batch.
// Listeners run synchronously on the goroutine applying the batch.
type Listener func(paths []string)

// Store is the state reconciliation engine. All access is mutex-guarded;
// reads return copies so callers never hold references into the map.
type Store struct {
	mu        sync.Mutex
	states    map[string]*model.State
	forceSkip map[string]struct{}
	listeners []Listener

	// now is overridable in tests.
	now func() time.Time
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{
		states:    make(map[string]*model.State),
		forceSkip: make(map[string]struct{}),
		now:       time.Now,
	}
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Get returns the state for a path, materializing a default record when
// the path has not been seen. Reads never fail.
func (s *Store) Get(path string) model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.lookupOrCreate(path)
}

// States returns a snapshot for each requested path, in request order.
func (s *Store) States(paths []string) []model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.State, 0, len(paths))
	for _, path := range paths {
		out = append(out, *s.lookupOrCreate(path))
	}
	return out
}

// All returns a snapshot of every tracked state.
func (s *Store) All() []model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	return out
}

// Apply merges one delta and reports whether any field changed.
func (s *Store) Apply(path string, d model.Delta) bool {
	s.mu.Lock()
	changed := s.applyLocked(path, d)
	listeners := s.listeners
	s.mu.Unlock()
	if changed {
		for _, l := range listeners {
			l([]string{path})
		}
	}
	return changed
}

// ApplyAll merges a batch of deltas and returns the count of changed
// paths. Listeners are notified once per batch.
func (s *Store) ApplyAll(deltas map[string]model.Delta) int {
	s.mu.Lock()
	var changed []string
	for path, d := range deltas {
		if s.applyLocked(path, d) {
			changed = append(changed, path)
		}
	}
	listeners := s.listeners
	s.mu.Unlock()
	if len(changed) > 0 {
		for _, l := range listeners {
			l(changed)
		}
	}
	return len(changed)
}

// ConsumeForceSkip reports whether the path's one-shot "ignore next forced
// refresh" marker was set, clearing it. The host re-queries immediately
// after every mutating operation; the marker suppresses that one redundant
// scan.
func (s *Store) ConsumeForceSkip(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.forceSkip[path]
	if ok {
		delete(s.forceSkip, path)
	}
	return ok
}

func (s *Store) lookupOrCreate(path string) *model.State {
	st, ok := s.states[path]
	if !ok {
		created := model.NewState(path)
		st = &created
		s.states[path] = st
	}
	return st
}

// applyLocked merges one delta under the store mutex. Unset fields leave
// the stored value untouched, so a narrow operation (say, locking three
// files) cannot clobber axes populated by a broader status scan.
func (s *Store) applyLocked(path string, d model.Delta) bool {
	st := s.lookupOrCreate(path)
	changed := false

	if d.File != model.FileUnset && d.File != st.File {
		// A stale out-of-order status result must not move a file back to
		// Added once it has progressed past the add transition.
		if d.File != model.FileAdded || st.AllowsAddTransition() {
			st.File = d.File
			changed = true
		}
	}
	if d.Tree != model.TreeUnset && d.Tree != st.Tree {
		st.Tree = d.Tree
		changed = true
	}
	if d.Lock != model.LockUnset {
		if d.Lock != st.Lock {
			st.Lock = d.Lock
			changed = true
		}
		owner := ""
		if d.Lock == model.LockHeld || d.Lock == model.LockHeldOther {
			owner = d.LockOwner
		}
		if owner != st.LockOwner {
			st.LockOwner = owner
			changed = true
		}
	}
	if d.Remote != model.RemoteUnset {
		if d.Remote != st.Remote {
			st.Remote = d.Remote
			changed = true
		}
		branch := ""
		if d.Remote != model.RemoteUpToDate {
			branch = d.HeadBranch
		}
		if branch != st.HeadBranch {
			st.HeadBranch = branch
			changed = true
		}
	}
	if d.PendingMergeBaseHash != nil && *d.PendingMergeBaseHash != st.PendingMergeBaseHash {
		st.PendingMergeBaseHash = *d.PendingMergeBaseHash
		changed = true
	}
	if d.History != nil {
		st.History = append([]model.Revision(nil), d.History...)
		changed = true
	}

	st.LastRefreshed = s.now()
	if changed {
		s.forceSkip[path] = struct{}{}
	}
	return changed
}
