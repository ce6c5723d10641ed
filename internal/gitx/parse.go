package gitx

import (
	"strconv"
	"strings"
	"time"

	"github.com/skaphos/lockkeeper/internal/model"
)

// Fixed column offsets in `ls-files --unmerged` and `ls-tree --long`
// output. These are part of the contract with the git CLI output format;
// a change upstream must be caught here, not silently misparsed.
const (
	unmergedHashOffset = 7
	lsTreeHashOffset   = 12
	lsTreeSizeOffset   = 53
	hashLen            = 40
)

// ParseStatus decodes `git status --porcelain` output into per-file
// deltas. Only the file and tree axes are populated; lock and remote
// information comes from other commands and must stay untouched.
func ParseStatus(output string) map[string]model.Delta {
	deltas := make(map[string]model.Delta)
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		x := line[0]
		y := line[1]
		path := line[3:]
		// Rename lines carry "old -> new"; the file is keyed by its new name.
		if idx := strings.LastIndex(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)
		if path == "" {
			continue
		}
		deltas[path] = statusPairDelta(x, y)
	}
	return deltas
}

func statusPairDelta(x, y byte) model.Delta {
	d := model.NewDelta()
	switch {
	case x == 'U' || y == 'U', x == 'A' && y == 'A', x == 'D' && y == 'D':
		// Any unmerged combination is a conflict in the working tree.
		d.File = model.FileUnmerged
		d.Tree = model.TreeWorking
		return d
	case x == '?' || y == '?':
		d.File = model.FileUnknown
		d.Tree = model.TreeUntracked
		return d
	case x == '!' || y == '!':
		d.File = model.FileUnknown
		d.Tree = model.TreeIgnored
		return d
	}
	if x != ' ' {
		d.Tree = model.TreeStaged
		d.File = fileStateFromStatusChar(x, true)
	} else if y != ' ' {
		d.Tree = model.TreeWorking
		d.File = fileStateFromStatusChar(y, false)
	} else {
		d.Tree = model.TreeUnmodified
		d.File = model.FileUnknown
	}
	return d
}

func fileStateFromStatusChar(c byte, staged bool) model.FileState {
	switch c {
	case 'M', 'T':
		return model.FileModified
	case 'A':
		return model.FileAdded
	case 'D':
		// A staged D is a deliberate delete; an unstaged D means the file
		// vanished from the working tree.
		if staged {
			return model.FileDeleted
		}
		return model.FileMissing
	case 'R':
		return model.FileRenamed
	case 'C':
		return model.FileCopied
	default:
		return model.FileUnknown
	}
}

// ParseLocks decodes `git lfs locks` output into path -> owner. Lines are
// tab-separated. The 3-field form is "path, owner, id". The 2-field form
// is "path, ownerOrID": when the second field is empty or an "ID:" value,
// the lock belongs to the current user and owner falls back to
// currentUser (the --local listing omits the owner column).
func ParseLocks(output, currentUser string) map[string]string {
	locks := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		path := fields[0]
		if path == "" {
			continue
		}
		switch {
		case len(fields) >= 3:
			locks[path] = fields[1]
		case len(fields) == 2:
			if fields[1] == "" || strings.HasPrefix(fields[1], "ID:") {
				locks[path] = currentUser
			} else {
				locks[path] = fields[1]
			}
		}
	}
	return locks
}

// ParseUnmergedAncestor extracts the common-ancestor blob hash from
// `git ls-files --unmerged` output for a single conflicted file. The
// listing has exactly three lines (stages 1..3); the ancestor is stage 1,
// whose hash sits at a fixed column offset.
func ParseUnmergedAncestor(lines []string) (string, bool) {
	if len(lines) != 3 {
		return "", false
	}
	first := lines[0]
	if len(first) < unmergedHashOffset+hashLen {
		return "", false
	}
	return first[unmergedHashOffset : unmergedHashOffset+hashLen], true
}

// ParseLsTree extracts the blob hash and byte size from one line of
// `git ls-tree --long` output.
func ParseLsTree(line string) (hash string, size int64, ok bool) {
	if len(line) < lsTreeSizeOffset {
		return "", 0, false
	}
	hash = line[lsTreeHashOffset : lsTreeHashOffset+hashLen]
	tab := strings.IndexByte(line[lsTreeSizeOffset:], '\t')
	if tab < 0 {
		return "", 0, false
	}
	sizeField := strings.TrimSpace(line[lsTreeSizeOffset : lsTreeSizeOffset+tab])
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return hash, size, true
}

const logDateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// ParseLog decodes `git log --pretty=medium --name-status` output for a
// single file into revisions, newest first. Revision numbers are assigned
// so the oldest commit is 1. A revision produced by a rename carries the
// "branch" action and links BranchSource to the next older entry's name.
func ParseLog(output string) []model.Revision {
	var revisions []model.Revision
	var current *model.Revision
	var description []string

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.Join(description, "\n")
		revisions = append(revisions, *current)
		current = nil
		description = nil
	}

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "commit "):
			flush()
			commit := strings.TrimSpace(strings.TrimPrefix(line, "commit "))
			// Decorations like "(HEAD -> main)" follow the hash.
			if idx := strings.IndexByte(commit, ' '); idx >= 0 {
				commit = commit[:idx]
			}
			rev := model.Revision{Commit: commit}
			if len(commit) >= 8 {
				rev.ShortCommit = commit[:8]
			}
			current = &rev
		case current == nil:
			continue
		case strings.HasPrefix(line, "Author: "):
			current.Author = strings.TrimSpace(strings.TrimPrefix(line, "Author: "))
		case strings.HasPrefix(line, "Date:   "):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Date:   "))
			if ts, err := time.Parse(logDateLayout, raw); err == nil {
				current.Date = ts
			}
		case strings.HasPrefix(line, "Merge: "):
			current.Action = "merge"
		case strings.HasPrefix(line, "    "):
			description = append(description, strings.TrimPrefix(line, "    "))
		default:
			if action, filename, ok := parseNameStatusLine(line); ok {
				if current.Action != "merge" {
					current.Action = action
				}
				current.Filename = filename
			}
		}
	}
	flush()

	for i := range revisions {
		revisions[i].Number = len(revisions) - i
		if revisions[i].Action == "branch" && i+1 < len(revisions) {
			revisions[i].BranchSource = revisions[i+1].Filename
		}
	}
	return revisions
}

// parseNameStatusLine decodes a --name-status file action line such as
// "M\tContent/A.uasset" or "R100\told.uasset\tnew.uasset".
func parseNameStatusLine(line string) (action, filename string, ok bool) {
	if line == "" || line[0] == ' ' {
		return "", "", false
	}
	tab := strings.IndexByte(line, '\t')
	if tab <= 0 {
		return "", "", false
	}
	code := line[:tab]
	filename = line[strings.LastIndexByte(line, '\t')+1:]
	switch code[0] {
	case 'A':
		return "add", filename, true
	case 'M', 'T':
		return "edit", filename, true
	case 'D':
		return "delete", filename, true
	case 'R', 'C':
		// Renames and copies carry a similarity index prefix like R100.
		return "branch", filename, true
	default:
		return "", "", false
	}
}

// ParseVersion extracts a dotted version from a tool banner such as
// "git version 2.45.2" or "git-lfs/3.5.1 (GitHub; ...)".
func ParseVersion(output string) (major, minor int, ok bool) {
	fields := strings.FieldsFunc(output, func(r rune) bool {
		return r == ' ' || r == '/'
	})
	for _, field := range fields {
		parts := strings.Split(field, ".")
		if len(parts) < 2 {
			continue
		}
		maj, errMaj := strconv.Atoi(parts[0])
		min, errMin := strconv.Atoi(strings.TrimFunc(parts[1], func(r rune) bool {
			return r < '0' || r > '9'
		}))
		if errMaj == nil && errMin == nil {
			return maj, min, true
		}
	}
	return 0, 0, false
}
