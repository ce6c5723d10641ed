// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/provider"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch and rebase onto the tracked upstream",
	Long:  "Sync requires a clean working tree: check in or revert local changes first. It fetches with pruning and rebases the current branch onto its upstream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpSync, nil, "")
		return err
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
