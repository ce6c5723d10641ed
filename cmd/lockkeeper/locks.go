package lockkeeper

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/cliio"
	"github.com/skaphos/lockkeeper/internal/termstyle"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List LFS locks held in the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		force := getBoolFlag(cmd, "force")
		locks, err := p.LockCache().GetAll(cmd.Context(), force)
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(locks))
		for path := range locks {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		setColorOutputMode(cmd)
		noHeaders := getBoolFlag(cmd, "no-headers")
		self := p.LocksUser()
		rows := make([][]string, 0, len(paths))
		for _, path := range paths {
			owner := locks[path]
			color := termstyle.Warn
			if owner == self {
				color = termstyle.Healthy
			}
			rows = append(rows, []string{path, termstyle.Colorize(colorOutputEnabled, owner, color)})
		}
		if err := cliio.WriteTable(cmd.OutOrStdout(), true, noHeaders, []string{"PATH", "OWNER"}, rows); err != nil {
			return err
		}
		infof(cmd, "%d locks", len(paths))
		return nil
	},
}

func init() {
	locksCmd.Flags().Bool("force", false, "bypass the lock cache and query the remote")
	addNoHeadersFlag(locksCmd)
	rootCmd.AddCommand(locksCmd)
}
