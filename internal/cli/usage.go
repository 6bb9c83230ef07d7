package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"canopy/internal/core"
)

var usageFlags struct {
	format string
	depth  int
}

// dirUsage summarizes one directory of the imported tree.
type dirUsage struct {
	Path       string `json:"path" yaml:"path"`
	Children   int    `json:"children" yaml:"children"`
	TotalNodes int    `json:"total_nodes" yaml:"total_nodes"` // every node below, at any depth
	DiskUsage  uint64 `json:"disk_usage" yaml:"disk_usage"`
}

type usageReport struct {
	Dirs   []dirUsage        `json:"dirs" yaml:"dirs"`
	Import core.ImportReport `json:"import" yaml:"import"`
}

var usageCmd = &cobra.Command{
	Use:   "usage <paths...>",
	Short: "Show child counts and disk usage per directory",
	Args:  RequirePaths,
	RunE:  runUsage,
}

func init() {
	addFormatFlag(usageCmd, &usageFlags.format)
	usageCmd.Flags().IntVarP(&usageFlags.depth, "depth", "d", 1, "Deepest directory level to report (0 = root only, -1 = all)")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	if err := validateFormat(usageFlags.format); err != nil {
		return err
	}
	ft, err := loadTree(args)
	if err != nil {
		return err
	}

	report := buildUsage(ft, usageFlags.depth)
	out := cmd.OutOrStdout()
	if usageFlags.format != formatText {
		return writeStructured(out, usageFlags.format, report)
	}

	for _, d := range report.Dirs {
		fmt.Fprintf(out, "%10s  %8s nodes  %s\n",
			humanize.Bytes(d.DiskUsage), humanize.Comma(int64(d.TotalNodes)), d.Path)
	}
	if report.Import.Skipped > 0 {
		fmt.Fprintf(out, "\n%d host entries skipped\n", report.Import.Skipped)
	}
	return nil
}

func buildUsage(ft *core.Filetree, maxDepth int) *usageReport {
	report := &usageReport{Import: ft.Report}
	for _, n := range core.FlattenTree(ft.Root) {
		d, ok := n.(*core.Dir)
		if !ok {
			continue
		}
		if maxDepth >= 0 && core.DescribeBelow(ft.Root, d).Depth > maxDepth {
			continue
		}
		report.Dirs = append(report.Dirs, dirUsage{
			Path:       d.AbsolutePath(),
			Children:   d.ChildCount(),
			TotalNodes: countBelow(d),
			DiskUsage:  d.TotalDiskUsage(),
		})
	}
	return report
}

// countBelow counts every node under d, however deep.
func countBelow(d *core.Dir) int {
	return len(core.FlattenTree(d)) - 1
}
