package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lockkeeper/internal/model"
)

var _ = Describe("State.Effective", func() {
	base := func() model.State {
		return model.NewState("Content/A.uasset")
	}

	It("defaults a fresh record to up to date", func() {
		st := base()
		Expect(st.Effective()).To(Equal(model.DisplayUpToDate))
	})

	It("ranks remote-behind above everything", func() {
		st := base()
		st.Remote = model.RemoteNotAtHead
		st.Lock = model.LockHeldOther
		st.File = model.FileUnmerged
		Expect(st.Effective()).To(Equal(model.DisplayNotAtHead))
	})

	It("ranks a foreign lock above sibling branch divergence", func() {
		st := base()
		st.Lock = model.LockHeldOther
		st.Remote = model.RemoteNotLatest
		Expect(st.Effective()).To(Equal(model.DisplayCheckedOutOther))
	})

	It("ranks sibling branch divergence above local modification", func() {
		st := base()
		st.Remote = model.RemoteNotLatest
		st.File = model.FileModified
		Expect(st.Effective()).To(Equal(model.DisplayNotLatest))
	})

	It("ranks conflict above other file states", func() {
		st := base()
		st.File = model.FileUnmerged
		st.Lock = model.LockHeld
		Expect(st.Effective()).To(Equal(model.DisplayConflicted))
	})

	DescribeTable("file axis mapping",
		func(file model.FileState, expected model.DisplayState) {
			st := base()
			st.File = file
			Expect(st.Effective()).To(Equal(expected))
		},
		Entry("added", model.FileAdded, model.DisplayOpenForAdd),
		Entry("copied", model.FileCopied, model.DisplayOpenForAdd),
		Entry("deleted", model.FileDeleted, model.DisplayMarkedForDelete),
		Entry("modified", model.FileModified, model.DisplayModified),
		Entry("renamed", model.FileRenamed, model.DisplayModified),
		Entry("missing", model.FileMissing, model.DisplayMissing),
	)

	It("shows untracked files as not controlled even when lockable", func() {
		st := base()
		st.Tree = model.TreeUntracked
		st.Lock = model.LockNone
		Expect(st.Effective()).To(Equal(model.DisplayNotControlled))
	})

	It("shows a held lock on a clean file as checked out", func() {
		st := base()
		st.Lock = model.LockHeld
		Expect(st.Effective()).To(Equal(model.DisplayCheckedOut))
	})

	It("shows an unlocked lockable file as available", func() {
		st := base()
		st.Lock = model.LockNone
		Expect(st.Effective()).To(Equal(model.DisplayCanCheckOut))
	})
})

var _ = Describe("State predicates", func() {
	It("treats unset remote as current", func() {
		st := model.NewState("a")
		st.Remote = model.RemoteUnset
		Expect(st.IsCurrent()).To(BeTrue())
		st.Remote = model.RemoteNotLatest
		Expect(st.IsCurrent()).To(BeFalse())
	})

	It("forbids checkout when behind the remote head", func() {
		st := model.NewState("a")
		st.Lock = model.LockNone
		Expect(st.CanCheckout()).To(BeTrue())
		st.Remote = model.RemoteNotAtHead
		Expect(st.CanCheckout()).To(BeFalse())
	})

	It("forbids check-in of conflicted or foreign-locked files", func() {
		st := model.NewState("a")
		st.File = model.FileModified
		Expect(st.CanCheckIn()).To(BeTrue())
		st.File = model.FileUnmerged
		Expect(st.CanCheckIn()).To(BeFalse())
		st.File = model.FileModified
		st.Lock = model.LockHeldOther
		Expect(st.CanCheckIn()).To(BeFalse())
	})

	It("allows check-in of an unmodified file whose lock is held", func() {
		st := model.NewState("a")
		st.Lock = model.LockHeld
		Expect(st.CanCheckIn()).To(BeTrue())
	})

	It("limits add to untracked files", func() {
		st := model.NewState("a")
		Expect(st.CanAdd()).To(BeFalse())
		st.Tree = model.TreeUntracked
		Expect(st.CanAdd()).To(BeTrue())
	})

	It("allows revert for modified or locked files", func() {
		st := model.NewState("a")
		Expect(st.CanRevert()).To(BeFalse())
		st.File = model.FileDeleted
		Expect(st.CanRevert()).To(BeTrue())
	})
})

var _ = Describe("State.AllowsAddTransition", func() {
	It("accepts the added state for a fresh default record", func() {
		st := model.NewState("a")
		Expect(st.AllowsAddTransition()).To(BeTrue())
	})

	It("accepts re-adding a file already open for add", func() {
		st := model.NewState("a")
		st.File = model.FileAdded
		st.Tree = model.TreeStaged
		Expect(st.AllowsAddTransition()).To(BeTrue())
	})

	It("rejects resurrecting a file that moved past untracked", func() {
		st := model.NewState("a")
		st.File = model.FileModified
		st.Tree = model.TreeWorking
		Expect(st.AllowsAddTransition()).To(BeFalse())
	})

	It("rejects the transition for working-tree records", func() {
		st := model.NewState("a")
		st.Tree = model.TreeWorking
		Expect(st.AllowsAddTransition()).To(BeFalse())
	})
})

var _ = Describe("NewDelta", func() {
	It("starts every axis at its unset sentinel", func() {
		d := model.NewDelta()
		Expect(d.File).To(Equal(model.FileUnset))
		Expect(d.Tree).To(Equal(model.TreeUnset))
		Expect(d.Lock).To(Equal(model.LockUnset))
		Expect(d.Remote).To(Equal(model.RemoteUnset))
		Expect(d.PendingMergeBaseHash).To(BeNil())
		Expect(d.History).To(BeNil())
	})
})
