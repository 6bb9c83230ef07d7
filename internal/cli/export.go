package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"canopy/internal/core"
)

var exportFlags struct {
	output   string
	readOnly bool
}

var exportCmd = &cobra.Command{
	Use:   "export <paths...>",
	Short: "Write host paths as a ZIP skeleton",
	Long: `Mirror the given paths into a namespace and write it as a ZIP archive of
empty entries. Entry comments carry kind, size, writability and link
targets, so the archive can be imported by the canopy server.`,
	Args: RequirePaths,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "Archive to write (default <root>.zip)")
	exportCmd.Flags().BoolVar(&exportFlags.readOnly, "read-only", false, "Mark the exported root read-only")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	var opts []core.Option
	if exportFlags.readOnly {
		opts = append(opts, core.ReadOnly())
	}
	ft, err := loadTree(args, opts...)
	if err != nil {
		return err
	}

	data, err := core.ExportZip(ft.Root)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	out := exportFlags.output
	if out == "" {
		out = ft.Root.Name() + ".zip"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	slog.Debug("archive written", "path", out, "bytes", len(data))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s nodes to %s (%s)\n",
		humanize.Comma(int64(countBelow(ft.Root))), out, humanize.Bytes(uint64(len(data))))
	return nil
}
