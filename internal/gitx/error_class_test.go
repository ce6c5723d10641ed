// SPDX-License-Identifier: MIT
package gitx_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lockkeeper/internal/gitx"
)

var _ = Describe("ClassifyGitError", func() {
	DescribeTable("output classification",
		func(output string, expected gitx.ErrorClass) {
			Expect(gitx.ClassifyGitError(output)).To(Equal(expected))
		},
		Entry("missing binary", "exec: \"git\": executable file not found in $PATH", gitx.ErrToolUnavailable),
		Entry("unknown subcommand", "git: 'lfs' is not a git command. See 'git --help'.", gitx.ErrToolUnavailable),
		Entry("outside a repo", "fatal: not a git repository (or any of the parent directories): .git", gitx.ErrNotARepo),
		Entry("non-fast-forward push", "! [rejected] main -> main (non-fast-forward)", gitx.ErrOutOfDate),
		Entry("fetch first", "hint: Updates were rejected... fetch first", gitx.ErrOutOfDate),
		Entry("behind upstream", "Updates were rejected because the tip of your current branch is behind", gitx.ErrOutOfDate),
		Entry("lfs lock exists", "Lock exists: Content/A.uasset is locked by alice", gitx.ErrLockConflict),
		Entry("already locked", "Content/A.uasset is already locked", gitx.ErrLockConflict),
		Entry("bad credentials", "fatal: Authentication failed for 'https://example.com/repo.git'", gitx.ErrAuth),
		Entry("ssh denied", "git@example.com: Permission denied (publickey).", gitx.ErrAuth),
		Entry("host lookup failure", "fatal: unable to access 'https://example.com/': Could not resolve host", gitx.ErrNetwork),
		Entry("connection refused", "ssh: connect to host example.com port 22: Connection refused", gitx.ErrNetwork),
		Entry("dirty tree rebase", "error: cannot pull with rebase: You have unstaged changes.", gitx.ErrUncommitted),
		Entry("local changes overwrite", "error: Your local changes to the following files would be overwritten", gitx.ErrUncommitted),
		Entry("anything else", "some unrecognized failure", gitx.ErrUnknown),
	)

	It("treats out-of-date rejections as retryable", func() {
		Expect(gitx.IsOutOfDate("! [rejected] main -> main (non-fast-forward)")).To(BeTrue())
		Expect(gitx.IsOutOfDate("fatal: not a git repository")).To(BeFalse())
	})
})
