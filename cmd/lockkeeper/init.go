package lockkeeper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skaphos/lockkeeper/internal/config"
	"github.com/skaphos/lockkeeper/internal/gitx"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file at the repository root",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		runner := &gitx.GitRunner{}
		root, err := gitx.RootDir(cmd.Context(), runner, cwd)
		if err != nil {
			return fmt.Errorf("not inside a git working tree: %w", err)
		}
		path := filepath.Join(root, config.LocalConfigFilename)
		if _, err := os.Stat(path); err == nil && !getBoolFlag(cmd, "force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, path); err != nil {
			return err
		}
		infof(cmd, "wrote %s", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
