package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lockkeeper/internal/cache"
	"github.com/skaphos/lockkeeper/internal/model"
)

var _ = Describe("Store", func() {
	var store *cache.Store
	const path = "Content/A.uasset"

	BeforeEach(func() {
		store = cache.NewStore()
	})

	It("materializes defaults for unseen paths", func() {
		st := store.Get(path)
		Expect(st.Path).To(Equal(path))
		Expect(st.File).To(Equal(model.FileUnknown))
		Expect(st.Tree).To(Equal(model.TreeUnmodified))
		Expect(st.Lock).To(Equal(model.LockUnknown))
		Expect(st.Remote).To(Equal(model.RemoteUpToDate))
	})

	It("merges only the axes a delta carries", func() {
		d := model.NewDelta()
		d.Lock = model.LockHeld
		d.LockOwner = "alice"
		Expect(store.Apply(path, d)).To(BeTrue())

		st := store.Get(path)
		Expect(st.Lock).To(Equal(model.LockHeld))
		Expect(st.LockOwner).To(Equal("alice"))
		Expect(st.File).To(Equal(model.FileUnknown), "unset axes stay untouched")

		status := model.NewDelta()
		status.File = model.FileModified
		status.Tree = model.TreeWorking
		Expect(store.Apply(path, status)).To(BeTrue())

		st = store.Get(path)
		Expect(st.File).To(Equal(model.FileModified))
		Expect(st.Lock).To(Equal(model.LockHeld), "a status scan cannot clobber lock state")
		Expect(st.LockOwner).To(Equal("alice"))
	})

	It("is idempotent for identical deltas", func() {
		d := model.NewDelta()
		d.File = model.FileModified
		d.Tree = model.TreeWorking
		Expect(store.Apply(path, d)).To(BeTrue())
		Expect(store.Apply(path, d)).To(BeFalse())
	})

	It("clears the lock owner when the lock is released", func() {
		held := model.NewDelta()
		held.Lock = model.LockHeldOther
		held.LockOwner = "bob"
		store.Apply(path, held)

		released := model.NewDelta()
		released.Lock = model.LockNone
		Expect(store.Apply(path, released)).To(BeTrue())

		st := store.Get(path)
		Expect(st.Lock).To(Equal(model.LockNone))
		Expect(st.LockOwner).To(BeEmpty())
	})

	It("clears the head branch when the remote catches up", func() {
		behind := model.NewDelta()
		behind.Remote = model.RemoteNotAtHead
		behind.HeadBranch = "origin/main"
		store.Apply(path, behind)

		current := model.NewDelta()
		current.Remote = model.RemoteUpToDate
		current.HeadBranch = "origin/main"
		Expect(store.Apply(path, current)).To(BeTrue())

		st := store.Get(path)
		Expect(st.Remote).To(Equal(model.RemoteUpToDate))
		Expect(st.HeadBranch).To(BeEmpty())
	})

	It("blocks a stale Added regression once a file moved on", func() {
		committed := model.NewDelta()
		committed.File = model.FileModified
		committed.Tree = model.TreeWorking
		store.Apply(path, committed)

		stale := model.NewDelta()
		stale.File = model.FileAdded
		store.Apply(path, stale)

		Expect(store.Get(path).File).To(Equal(model.FileModified))
	})

	It("accepts Added for a freshly materialized record", func() {
		added := model.NewDelta()
		added.File = model.FileAdded
		added.Tree = model.TreeStaged
		Expect(store.Apply(path, added)).To(BeTrue())
		Expect(store.Get(path).File).To(Equal(model.FileAdded))
	})

	It("replaces the conflict base hash only through the pointer", func() {
		hash := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		withHash := model.NewDelta()
		withHash.PendingMergeBaseHash = &hash
		store.Apply(path, withHash)
		Expect(store.Get(path).PendingMergeBaseHash).To(Equal(hash))

		unrelated := model.NewDelta()
		unrelated.File = model.FileModified
		store.Apply(path, unrelated)
		Expect(store.Get(path).PendingMergeBaseHash).To(Equal(hash), "nil pointer leaves the hash alone")

		cleared := ""
		clearDelta := model.NewDelta()
		clearDelta.PendingMergeBaseHash = &cleared
		store.Apply(path, clearDelta)
		Expect(store.Get(path).PendingMergeBaseHash).To(BeEmpty())
	})

	It("replaces history wholesale when present", func() {
		d := model.NewDelta()
		d.History = []model.Revision{{Commit: "abc", Number: 1}}
		store.Apply(path, d)
		Expect(store.Get(path).History).To(HaveLen(1))

		newer := model.NewDelta()
		newer.History = []model.Revision{{Commit: "def", Number: 2}, {Commit: "abc", Number: 1}}
		store.Apply(path, newer)
		Expect(store.Get(path).History).To(HaveLen(2))
	})

	It("notifies listeners once per batch with changed paths only", func() {
		var batches [][]string
		store.Subscribe(func(paths []string) {
			batches = append(batches, paths)
		})

		clean := model.NewDelta()
		changed := model.NewDelta()
		changed.File = model.FileModified
		changed.Tree = model.TreeWorking
		count := store.ApplyAll(map[string]model.Delta{
			"Content/Same.uasset":    clean,
			"Content/Changed.uasset": changed,
		})

		Expect(count).To(Equal(1))
		Expect(batches).To(HaveLen(1))
		Expect(batches[0]).To(ConsistOf("Content/Changed.uasset"))
	})

	It("sets a one-shot refresh suppression marker on change", func() {
		d := model.NewDelta()
		d.Lock = model.LockHeld
		d.LockOwner = "alice"
		store.Apply(path, d)

		Expect(store.ConsumeForceSkip(path)).To(BeTrue())
		Expect(store.ConsumeForceSkip(path)).To(BeFalse(), "the marker is consumed")
		Expect(store.ConsumeForceSkip("Content/Other.uasset")).To(BeFalse())
	})

	It("returns snapshots in request order", func() {
		states := store.States([]string{"b", "a"})
		Expect(states).To(HaveLen(2))
		Expect(states[0].Path).To(Equal("b"))
		Expect(states[1].Path).To(Equal("a"))
	})
})
