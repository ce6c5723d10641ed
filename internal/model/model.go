// Package model defines the core data types used throughout LockKeeper.
package model

import "time"

// FileState describes what happened to a file's content relative to the index.
type FileState string

const (
	FileUnknown  FileState = "unknown"
	FileAdded    FileState = "added"
	FileCopied   FileState = "copied"
	FileDeleted  FileState = "deleted"
	FileModified FileState = "modified"
	FileRenamed  FileState = "renamed"
	FileMissing  FileState = "missing"
	FileUnmerged FileState = "unmerged"
	// FileUnset means "no opinion, do not overwrite on merge".
	FileUnset FileState = "unset"
)

// TreeState describes where a file's change lives in the working tree.
type TreeState string

const (
	TreeUnmodified TreeState = "unmodified"
	TreeWorking    TreeState = "working"
	TreeStaged     TreeState = "staged"
	TreeUntracked  TreeState = "untracked"
	TreeIgnored    TreeState = "ignored"
	TreeNotInRepo  TreeState = "not_in_repo"
	TreeUnset      TreeState = "unset"
)

// LockState describes LFS lock ownership for a file.
type LockState string

const (
	LockUnknown    LockState = "unknown"
	LockUnlockable LockState = "unlockable"
	LockNone       LockState = "not_locked"
	LockHeld       LockState = "locked"
	LockHeldOther  LockState = "locked_other"
	LockUnset      LockState = "unset"
)

// RemoteState describes staleness against the upstream and status branches.
type RemoteState string

const (
	RemoteUpToDate  RemoteState = "up_to_date"
	RemoteNotAtHead RemoteState = "not_at_head"
	RemoteNotLatest RemoteState = "not_latest"
	RemoteUnset     RemoteState = "unset"
)

// Revision is one entry in a file's commit history.
type Revision struct {
	// Commit is the full commit id.
	Commit string `json:"commit" yaml:"commit"`
	// ShortCommit is the abbreviated commit id.
	ShortCommit string `json:"short_commit" yaml:"short_commit"`
	// Number is the sequential revision number; the oldest revision is 1.
	Number int `json:"number" yaml:"number"`
	// Author is the commit author line (name and email).
	Author string `json:"author" yaml:"author"`
	// Date is the commit timestamp. Zero when the date line could not be parsed.
	Date time.Time `json:"date" yaml:"date"`
	// Description is the full commit message body.
	Description string `json:"description" yaml:"description"`
	// Action is the per-file change verb: add, edit, delete, branch, or merge.
	Action string `json:"action" yaml:"action"`
	// Filename is the repo-relative path this revision applies to.
	Filename string `json:"filename" yaml:"filename"`
	// FileHash is the blob content hash at this revision.
	FileHash string `json:"file_hash,omitempty" yaml:"file_hash,omitempty"`
	// FileSize is the blob size in bytes at this revision.
	FileSize int64 `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	// BranchSource is the filename this revision was renamed or copied from.
	BranchSource string `json:"branch_source,omitempty" yaml:"branch_source,omitempty"`
}

// State is the authoritative per-file record. The four axes are orthogonal;
// a single presentation status is derived by Effective, never stored.
type State struct {
	Path string    `json:"path" yaml:"path"`
	File FileState `json:"file_state" yaml:"file_state"`
	Tree TreeState `json:"tree_state" yaml:"tree_state"`
	Lock LockState `json:"lock_state" yaml:"lock_state"`
	// LockOwner is valid only when Lock is LockHeld or LockHeldOther.
	LockOwner string      `json:"lock_owner,omitempty" yaml:"lock_owner,omitempty"`
	Remote    RemoteState `json:"remote_state" yaml:"remote_state"`
	// HeadBranch names the branch holding newer content when Remote is not up to date.
	HeadBranch string `json:"head_branch,omitempty" yaml:"head_branch,omitempty"`
	// PendingMergeBaseHash is the common-ancestor blob hash while in conflict.
	PendingMergeBaseHash string `json:"pending_merge_base_hash,omitempty" yaml:"pending_merge_base_hash,omitempty"`
	// History is lazily populated, newest first.
	History []Revision `json:"history,omitempty" yaml:"history,omitempty"`
	// LastRefreshed is a staleness hint for display, not a correctness input.
	LastRefreshed time.Time `json:"last_refreshed" yaml:"last_refreshed"`
}

// NewState returns the default record for an unseen path.
func NewState(path string) State {
	return State{
		Path:   path,
		File:   FileUnknown,
		Tree:   TreeUnmodified,
		Lock:   LockUnknown,
		Remote: RemoteUpToDate,
	}
}

// Delta is a field-sparse update to a State. Axes left at their Unset
// sentinel carry no information and never overwrite stored values.
type Delta struct {
	File FileState
	Tree TreeState
	Lock LockState
	// LockOwner applies only when Lock is set to LockHeld or LockHeldOther.
	LockOwner string
	Remote    RemoteState
	// HeadBranch applies only when Remote is set.
	HeadBranch string
	// PendingMergeBaseHash replaces the stored hash when non-nil.
	PendingMergeBaseHash *string
	// History replaces the stored history when non-nil.
	History []Revision
}

// NewDelta returns a Delta with every axis at its Unset sentinel.
func NewDelta() Delta {
	return Delta{
		File:   FileUnset,
		Tree:   TreeUnset,
		Lock:   LockUnset,
		Remote: RemoteUnset,
	}
}

// DisplayState is the single derived status shown for a file.
type DisplayState string

const (
	DisplayNotAtHead       DisplayState = "not_at_head"
	DisplayCheckedOutOther DisplayState = "checked_out_other"
	DisplayNotLatest       DisplayState = "not_latest"
	DisplayConflicted      DisplayState = "conflicted"
	DisplayOpenForAdd      DisplayState = "open_for_add"
	DisplayMarkedForDelete DisplayState = "marked_for_delete"
	DisplayModified        DisplayState = "modified"
	DisplayMissing         DisplayState = "missing"
	DisplayNotControlled   DisplayState = "not_controlled"
	DisplayCheckedOut      DisplayState = "checked_out"
	DisplayCanCheckOut     DisplayState = "can_check_out"
	DisplayUpToDate        DisplayState = "up_to_date"
	DisplayNone            DisplayState = "none"
)

// Effective derives the presentation status from the four axes. The order
// is a total precedence: remote-behind beats lock ownership beats sibling
// branch divergence beats local file changes.
func (s State) Effective() DisplayState {
	switch {
	case s.Remote == RemoteNotAtHead:
		return DisplayNotAtHead
	case s.Lock == LockHeldOther:
		return DisplayCheckedOutOther
	case s.Remote == RemoteNotLatest:
		return DisplayNotLatest
	}
	switch s.File {
	case FileUnmerged:
		return DisplayConflicted
	case FileAdded, FileCopied:
		return DisplayOpenForAdd
	case FileDeleted:
		return DisplayMarkedForDelete
	case FileModified, FileRenamed:
		return DisplayModified
	case FileMissing:
		return DisplayMissing
	}
	switch s.Tree {
	case TreeUntracked, TreeNotInRepo, TreeIgnored:
		return DisplayNotControlled
	}
	if s.Lock == LockHeld {
		return DisplayCheckedOut
	}
	if s.Lock == LockNone {
		return DisplayCanCheckOut
	}
	if s.Tree == TreeUnmodified {
		return DisplayUpToDate
	}
	return DisplayNone
}

// IsModified reports whether the file carries local content changes.
func (s State) IsModified() bool {
	switch s.File {
	case FileAdded, FileCopied, FileDeleted, FileModified, FileRenamed, FileUnmerged:
		return true
	}
	return false
}

// IsConflicted reports whether the file has unmerged index entries.
func (s State) IsConflicted() bool { return s.File == FileUnmerged }

// IsCurrent reports whether the file content matches the remote head.
func (s State) IsCurrent() bool {
	return s.Remote == RemoteUpToDate || s.Remote == RemoteUnset
}

// IsCheckedOutOther reports whether another user holds the lock.
func (s State) IsCheckedOutOther() bool { return s.Lock == LockHeldOther }

// IsSourceControlled reports whether the file is tracked at all.
func (s State) IsSourceControlled() bool {
	return s.Tree != TreeUntracked && s.Tree != TreeIgnored && s.Tree != TreeNotInRepo
}

// CanCheckout reports whether a lock can be taken on the file.
func (s State) CanCheckout() bool {
	return s.Lock == LockNone && s.Remote != RemoteNotAtHead && !s.IsConflicted()
}

// CanCheckIn reports whether the file can be committed.
func (s State) CanCheckIn() bool {
	if s.IsConflicted() || s.Lock == LockHeldOther {
		return false
	}
	return s.IsModified() || s.Lock == LockHeld
}

// CanAdd reports whether the file can be newly placed under control.
func (s State) CanAdd() bool { return s.Tree == TreeUntracked }

// CanDelete reports whether the file can be marked for delete.
func (s State) CanDelete() bool {
	return s.IsSourceControlled() && !s.IsConflicted() && s.Lock != LockHeldOther
}

// CanRevert reports whether there is anything to revert.
func (s State) CanRevert() bool { return s.IsModified() || s.Lock == LockHeld }

// AllowsAddTransition reports whether a delta may move this file to
// FileAdded. A stale status result must not resurrect a file that has
// already moved past the untracked stage.
func (s State) AllowsAddTransition() bool {
	if s.File == FileAdded || s.File == FileCopied {
		return true
	}
	if s.File != FileUnknown {
		return false
	}
	return s.Tree == TreeUntracked || s.Tree == TreeNotInRepo || s.Tree == TreeStaged || s.Tree == TreeUnmodified
}
