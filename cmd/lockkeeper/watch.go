// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/watcher"
)

// drainInterval paces the tick loop while watching. Each tick drains at
// most one completed refresh, so the interval also bounds apply latency.
const drainInterval = 100 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the working tree and keep file states fresh",
	Long:  "Watch runs until interrupted: filesystem changes under the configured roots trigger targeted status refreshes, and a periodic full refresh keeps lock and remote state current.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		cfg := p.Config()
		w, err := watcher.New(p.Dir(), cfg.WatchRoots, cfg.WatchDebounce(), cfg.Lockable, func(paths []string) {
			debugf(cmd, "refresh requested for %d changed files", len(paths))
			if _, err := p.RequestForcedRefresh(ctx, paths); err != nil {
				infof(cmd, "refresh failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Start(ctx); err != nil {
			return err
		}

		p.Store().Subscribe(func(paths []string) {
			for _, path := range paths {
				st := p.GetState([]string{path})[0]
				infof(cmd, "%s: %s", path, displayStateLabel(st.Effective()))
			}
		})
		p.StartBackgroundRefresh(ctx)

		infof(cmd, "watching %s (ctrl-c to stop)", p.Dir())
		ticker := time.NewTicker(drainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				for p.Tick() {
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
