// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/provider"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin -m <message> <files...>",
	Short: "Commit files, push, and release their locks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		if message == "" {
			return fmt.Errorf("a commit message is required (-m)")
		}
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpCheckIn, args, message)
		return err
	},
}

func init() {
	checkinCmd.Flags().StringP("message", "m", "", "commit message")
	rootCmd.AddCommand(checkinCmd)
}
