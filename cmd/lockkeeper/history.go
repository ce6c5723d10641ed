// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/model"
	"github.com/skaphos/lockkeeper/internal/provider"
	"github.com/skaphos/lockkeeper/internal/tableutil"
)

var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Show the revision history of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		result, err := runOperation(cmd, p, provider.OpHistory, args, "")
		if err != nil {
			return err
		}
		if !result.Succeeded() {
			return nil
		}

		states := p.GetState(args)
		noHeaders := getBoolFlag(cmd, "no-headers")
		return writeHistoryTable(cmd, states[0].History, noHeaders)
	},
}

func init() {
	addNoHeadersFlag(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

func writeHistoryTable(cmd *cobra.Command, revisions []model.Revision, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "REV\tCOMMIT\tACTION\tAUTHOR\tDATE\tSIZE\tDESCRIPTION"); err != nil {
		return err
	}
	descMax := adaptiveCellLimit(cmd, 60, 36, 24)
	for _, rev := range revisions {
		date := "-"
		if !rev.Date.IsZero() {
			date = rev.Date.Format("2006-01-02 15:04")
		}
		size := "-"
		if rev.FileSize > 0 {
			size = fmt.Sprintf("%d", rev.FileSize)
		}
		action := rev.Action
		if rev.Action == "branch" && rev.BranchSource != "" {
			action = "branch from " + rev.BranchSource
		}
		desc := formatCell(strings.SplitN(rev.Description, "\n", 2)[0], descMax)
		if _, err := fmt.Fprintf(
			w,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rev.Number,
			rev.ShortCommit,
			action,
			rev.Author,
			date,
			size,
			desc,
		); err != nil {
			return err
		}
	}
	return w.Flush()
}
