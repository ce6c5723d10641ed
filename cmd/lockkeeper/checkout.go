package lockkeeper

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/provider"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <files...>",
	Short: "Lock files for editing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpCheckOut, args, "")
		return err
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <files...>",
	Short: "Release locks without committing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpUnlock, args, "")
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(unlockCmd)
}
