// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/model"
	"github.com/skaphos/lockkeeper/internal/provider"
	"github.com/skaphos/lockkeeper/internal/tableutil"
	"github.com/skaphos/lockkeeper/internal/termstyle"
)

var statusCmd = &cobra.Command{
	Use:   "status [files...]",
	Short: "Report per-file working state, lock ownership, and remote divergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting status")
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		result, err := runOperation(cmd, p, provider.OpUpdateStatus, args, "")
		if err != nil {
			return err
		}
		if !result.Succeeded() {
			return nil
		}

		states := statusStates(p, args)
		noHeaders := getBoolFlag(cmd, "no-headers")
		all := getBoolFlag(cmd, "all")
		setColorOutputMode(cmd)
		if err := writeStatusTable(cmd, states, noHeaders, all); err != nil {
			return err
		}
		infof(cmd, "status completed: %d files", len(states))
		return nil
	},
}

func init() {
	addNoHeadersFlag(statusCmd)
	statusCmd.Flags().BoolP("all", "a", false, "include files that are up to date")
	rootCmd.AddCommand(statusCmd)
}

func statusStates(p *provider.Provider, files []string) []model.State {
	var states []model.State
	if len(files) > 0 {
		states = p.GetState(files)
	} else {
		states = p.Store().All()
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Path < states[j].Path })
	return states
}

func writeStatusTable(cmd *cobra.Command, states []model.State, noHeaders, all bool) error {
	w := tableutil.New(cmd.OutOrStdout(), true)
	if err := tableutil.PrintHeaders(w, noHeaders, "PATH\tSTATE\tLOCK_OWNER\tBRANCH"); err != nil {
		return err
	}
	pathMax := adaptiveCellLimit(cmd, 0, 48, 32)
	for _, st := range states {
		display := st.Effective()
		if !all && (display == model.DisplayUpToDate || display == model.DisplayNone) {
			continue
		}
		owner := st.LockOwner
		if owner == "" {
			owner = "-"
		}
		branch := st.HeadBranch
		if branch == "" {
			branch = "-"
		}
		state := termstyle.Colorize(colorOutputEnabled, displayStateLabel(display), termstyle.ForState(display))
		row := []string{formatCell(st.Path, pathMax), state, owner, branch}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

func displayStateLabel(st model.DisplayState) string {
	// Table labels are spaced for humans; the enum stays machine-friendly.
	return strings.ReplaceAll(string(st), "_", " ")
}
