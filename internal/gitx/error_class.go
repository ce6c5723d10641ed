// SPDX-License-Identifier: MIT
package gitx

import "strings"

// ErrorClass is a coarse category for a failed git command, derived from
// its stderr text.
type ErrorClass string

const (
	ErrToolUnavailable ErrorClass = "tool_unavailable"
	ErrNotARepo        ErrorClass = "not_a_repo"
	ErrAuth            ErrorClass = "auth"
	ErrNetwork         ErrorClass = "network"
	ErrOutOfDate       ErrorClass = "out_of_date"
	ErrLockConflict    ErrorClass = "lock_conflict"
	ErrUncommitted     ErrorClass = "uncommitted_changes"
	ErrUnknown         ErrorClass = "unknown"
)

// ClassifyGitError inspects command output and returns a classification.
func ClassifyGitError(output string) ErrorClass {
	lower := strings.ToLower(output)

	switch {
	case strings.Contains(lower, "executable file not found"),
		strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "is not a git command"):
		return ErrToolUnavailable

	case strings.Contains(lower, "not a git repository"):
		return ErrNotARepo

	case strings.Contains(lower, "[rejected]") && strings.Contains(lower, "non-fast-forward"),
		strings.Contains(lower, "fetch first"),
		strings.Contains(lower, "tip of your current branch is behind"):
		return ErrOutOfDate

	case strings.Contains(lower, "lock exists"),
		strings.Contains(lower, "already locked"):
		return ErrLockConflict

	case strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "could not read from remote"),
		strings.Contains(lower, "invalid credentials"):
		return ErrAuth

	case strings.Contains(lower, "could not resolve host"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "network is unreachable"),
		strings.Contains(lower, "connection timed out"),
		strings.Contains(lower, "unable to access"),
		strings.Contains(lower, "unable to connect"):
		return ErrNetwork

	case strings.Contains(lower, "your local changes"),
		strings.Contains(lower, "cannot pull with rebase: you have unstaged changes"),
		strings.Contains(lower, "uncommitted changes"):
		return ErrUncommitted

	default:
		return ErrUnknown
	}
}

// IsOutOfDate reports whether a push failure was a divergence rejection
// that a fetch+rebase retry may resolve.
func IsOutOfDate(output string) bool {
	return ClassifyGitError(output) == ErrOutOfDate
}
