package lockkeeper

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/cliio"
	"github.com/skaphos/lockkeeper/internal/provider"
)

var addCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Stage new files for the next check-in",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpMarkForAdd, args, "")
		return err
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <files...>",
	Short: "Stage file deletions for the next check-in",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpDelete, args, "")
		return err
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <files...>",
	Short: "Discard local changes and release locks on restored files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !getBoolFlag(cmd, "yes") && isTerminalFD(int(os.Stdin.Fd())) {
			prompt := fmt.Sprintf("Discard local changes to %d file(s)? [y/N] ", len(args))
			ok, err := cliio.PromptYesNo(cmd.OutOrStdout(), cmd.InOrStdin(), prompt)
			if err != nil {
				return err
			}
			if !ok {
				infof(cmd, "revert aborted")
				return nil
			}
		}
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpRevert, args, "")
		return err
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <files...>",
	Short: "Mark conflicted files as resolved",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()
		_, err = runOperation(cmd, p, provider.OpResolve, args, "")
		return err
	},
}

func init() {
	revertCmd.Flags().BoolP("yes", "y", false, "revert without prompting")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(resolveCmd)
}
