// SPDX-License-Identifier: MIT
package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lockkeeper/internal/watcher"
)

// batchCollector accumulates notifier batches for assertion.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *batchCollector) notify(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]string(nil), paths...))
}

func (c *batchCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *batchCollector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func writeFile(dir, name string) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
	Expect(os.WriteFile(path, []byte("payload"), 0o644)).To(Succeed())
}

var _ = Describe("Watcher", func() {
	var (
		root      string
		collector *batchCollector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		collector = &batchCollector{}
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	It("requires a notifier", func() {
		_, err := watcher.New(root, nil, 0, nil, nil)
		Expect(err).To(HaveOccurred())
	})

	It("reports a changed file relative to the root", func() {
		w, err := watcher.New(root, nil, 50*time.Millisecond, nil, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(w.Start(ctx)).To(Succeed())

		writeFile(root, "A.uasset")

		Eventually(collector.count, "3s").Should(BeNumerically(">=", 1))
		Expect(collector.all()).To(ContainElement("A.uasset"))
	})

	It("coalesces a burst of writes into one batch", func() {
		w, err := watcher.New(root, nil, 200*time.Millisecond, nil, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(w.Start(ctx)).To(Succeed())

		writeFile(root, "A.uasset")
		writeFile(root, "B.uasset")
		writeFile(root, "C.uasset")

		Eventually(collector.count, "3s").Should(BeNumerically(">=", 1))
		Expect(collector.all()).To(ContainElements("A.uasset", "B.uasset", "C.uasset"))
		Expect(collector.count()).To(Equal(1), "one debounce window, one batch")
	})

	It("drops paths the filter rejects", func() {
		onlyAssets := func(path string) bool {
			return strings.HasSuffix(path, ".uasset")
		}
		w, err := watcher.New(root, nil, 50*time.Millisecond, onlyAssets, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(w.Start(ctx)).To(Succeed())

		writeFile(root, "notes.txt")
		writeFile(root, "A.uasset")

		Eventually(collector.count, "3s").Should(BeNumerically(">=", 1))
		Expect(collector.all()).To(ContainElement("A.uasset"))
		Expect(collector.all()).NotTo(ContainElement("notes.txt"))
	})

	It("watches only the configured roots", func() {
		Expect(os.MkdirAll(filepath.Join(root, "Content"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(root, "Saved"), 0o755)).To(Succeed())

		w, err := watcher.New(root, []string{"Content"}, 50*time.Millisecond, nil, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(w.Start(ctx)).To(Succeed())

		writeFile(root, "Saved/scratch.uasset")
		writeFile(root, "Content/A.uasset")

		Eventually(collector.all, "3s").Should(ContainElement("Content/A.uasset"))
		Expect(collector.all()).NotTo(ContainElement("Saved/scratch.uasset"))
	})

	It("picks up files inside directories created after start", func() {
		w, err := watcher.New(root, nil, 50*time.Millisecond, nil, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(w.Start(ctx)).To(Succeed())

		Expect(os.MkdirAll(filepath.Join(root, "Content", "Maps"), 0o755)).To(Succeed())
		// The new directory's watch registration races the write; retry the
		// write until a batch lands.
		Eventually(func() []string {
			writeFile(root, "Content/Maps/Arena.umap")
			return collector.all()
		}, "5s", "200ms").Should(ContainElement("Content/Maps/Arena.umap"))
	})

	It("stops reporting after Close", func() {
		w, err := watcher.New(root, nil, 50*time.Millisecond, nil, collector.notify)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Start(ctx)).To(Succeed())
		Expect(w.Close()).To(Succeed())

		writeFile(root, "A.uasset")
		Consistently(collector.count, "300ms").Should(BeZero())
	})
})
