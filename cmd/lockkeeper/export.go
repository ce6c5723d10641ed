// SPDX-License-Identifier: MIT
package lockkeeper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/gitx"
)

var exportCmd = &cobra.Command{
	Use:   "export <commit> <file>",
	Short: "Write a file's content at a past revision to disk",
	Long:  "Export resolves the blob for <file> at <commit> and writes its real content, applying LFS filters so large assets come out as payload rather than pointer files.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		revision, file := args[0], args[1]
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("%s@%s", filepath.Base(file), revision)
		}

		dst, err := os.Create(output)
		if err != nil {
			return err
		}
		if err := gitx.DumpBlob(cmd.Context(), p.Runner(), p.Dir(), revision, file, dst); err != nil {
			_ = dst.Close()
			_ = os.Remove(output)
			return fmt.Errorf("export %s at %s: %w", file, revision, err)
		}
		if err := dst.Close(); err != nil {
			return err
		}
		infof(cmd, "wrote %s", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "destination path (default <basename>@<commit>)")
	rootCmd.AddCommand(exportCmd)
}
