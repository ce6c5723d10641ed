// SPDX-License-Identifier: MIT
package remotecheck_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lockkeeper/internal/model"
	"github.com/skaphos/lockkeeper/internal/remotecheck"
)

type mockRunner struct {
	responses map[string]string
	errs      map[string]error
}

func (m *mockRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	if err, ok := m.errs[key]; ok {
		return "", err
	}
	if out, ok := m.responses[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unexpected call: %v", args)
}

func isUasset(path string) bool { return strings.HasSuffix(path, ".uasset") }

var _ = Describe("Checker.Check", func() {
	var runner *mockRunner

	BeforeEach(func() {
		runner = &mockRunner{
			responses: map[string]string{
				"rev-parse --abbrev-ref --symbolic-full-name @{u}": "origin/main",
			},
			errs: map[string]error{},
		}
	})

	It("flags files changed on the upstream as not at head", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = "Content/A.uasset\nContent/B.uasset"
		checker := remotecheck.New(runner, "/repo", isUasset)

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset", "Content/C.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteNotAtHead))
		Expect(deltas["Content/A.uasset"].HeadBranch).To(Equal("origin/main"))
		Expect(deltas["Content/C.uasset"].Remote).To(Equal(model.RemoteUpToDate))
	})

	It("flags files changed only on a status branch as not latest", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = ""
		runner.responses["log --pretty= --name-only ..origin/art"] = "Content/A.uasset"
		checker := remotecheck.New(runner, "/repo", isUasset)
		checker.RegisterBranches([]string{"art"})

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteNotLatest))
		Expect(deltas["Content/A.uasset"].HeadBranch).To(Equal("art"))
	})

	It("never downgrades not-at-head to not-latest", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = "Content/A.uasset"
		runner.responses["log --pretty= --name-only ..origin/art"] = "Content/A.uasset"
		checker := remotecheck.New(runner, "/repo", isUasset)
		checker.RegisterBranches([]string{"art"})

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteNotAtHead))
		Expect(deltas["Content/A.uasset"].HeadBranch).To(Equal("origin/main"))
	})

	It("skips the status branch that is the upstream itself", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = ""
		checker := remotecheck.New(runner, "/repo", isUasset)
		checker.RegisterBranches([]string{"origin/main"})

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteUpToDate))
	})

	It("tolerates a status branch that does not exist", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = ""
		runner.errs["log --pretty= --name-only ..origin/gone"] = errors.New("unknown revision")
		checker := remotecheck.New(runner, "/repo", isUasset)
		checker.RegisterBranches([]string{"gone"})

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteUpToDate))
	})

	It("classifies only lockable files", func() {
		runner.responses["log --pretty= --name-only ..origin/main"] = "README.md"
		checker := remotecheck.New(runner, "/repo", isUasset)

		deltas, err := checker.Check(context.Background(), []string{"README.md"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas).To(BeEmpty())
	})

	It("returns nothing when no upstream is configured and no branches registered", func() {
		runner.responses["rev-parse --abbrev-ref --symbolic-full-name @{u}"] = ""
		delete(runner.responses, "rev-parse --abbrev-ref --symbolic-full-name @{u}")
		runner.errs["rev-parse --abbrev-ref --symbolic-full-name @{u}"] = errors.New("no upstream")
		checker := remotecheck.New(runner, "/repo", isUasset)

		deltas, err := checker.Check(context.Background(), []string{"Content/A.uasset"})
		Expect(err).NotTo(HaveOccurred())
		Expect(deltas["Content/A.uasset"].Remote).To(Equal(model.RemoteUpToDate))
	})
})
