package lockkeeper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/cliio"
	"github.com/skaphos/lockkeeper/internal/gitx"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the repository connection summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		head, err := gitx.HeadCommit(cmd.Context(), p.Runner(), p.Dir())
		if err != nil {
			return err
		}
		remoteURL, _ := gitx.RemoteURL(cmd.Context(), p.Runner(), p.Dir(), "origin")

		remoteBranch := p.RemoteBranchName()
		if remoteBranch == "" {
			remoteBranch = "-"
		}
		pairs := [][2]string{
			{"Root", p.Dir()},
			{"Branch", p.BranchName()},
			{"Upstream", remoteBranch},
			{"Remote", remoteURL},
			{"Head", fmt.Sprintf("%s %s", head.Commit, head.Summary)},
			{"Lock user", p.LocksUser()},
		}
		return cliio.WriteKeyValues(cmd.OutOrStdout(), pairs)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
