package cli

import (
	"github.com/spf13/cobra"

	"canopy/internal/core"
)

var treeFlags struct {
	format string
}

var treeCmd = &cobra.Command{
	Use:   "tree <paths...>",
	Short: "Print host paths as a namespace tree",
	Long: `Mirror the given files and directories into an in-memory namespace and
print every node. A single directory becomes the root; several paths are
gathered under a root named after the import time.`,
	Args: RequirePaths,
	RunE: runTree,
}

func init() {
	addFormatFlag(treeCmd, &treeFlags.format)
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	if err := validateFormat(treeFlags.format); err != nil {
		return err
	}
	ft, err := loadTree(args)
	if err != nil {
		return err
	}

	snap := core.TakeSnapshot(ft.Root)
	if treeFlags.format == formatText {
		return writeTreeText(cmd.OutOrStdout(), snap)
	}
	return writeStructured(cmd.OutOrStdout(), treeFlags.format, snap)
}
