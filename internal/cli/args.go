package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"canopy/internal/core"
)

// RequirePaths validates that at least one host path argument is provided.
func RequirePaths(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`%w: missing required argument: <paths>

Usage: %s

Example:
  %s ./src ./README.md`, ErrUsage, cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}

// loadTree validates the host paths and mirrors them into a fresh namespace.
func loadTree(args []string, opts ...core.Option) (*core.Filetree, error) {
	parsed, err := core.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	for _, p := range parsed {
		slog.Debug("importing host path", "path", p.FullPath, "kind", p.Kind)
	}

	ft, err := core.BuildFiletree(parsed, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	slog.Debug("tree built",
		"root", ft.Root.Name(),
		"dirs", ft.Report.Dirs,
		"files", ft.Report.Files,
		"skipped", ft.Report.Skipped,
	)
	return ft, nil
}
