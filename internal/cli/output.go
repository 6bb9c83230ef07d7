package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"canopy/internal/core"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", formatText, "Output format: text, json or yaml")
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("%w: %q (want text, json or yaml)", ErrInvalidFormat, format)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

// writeTreeText prints one line per entry, indented by depth.
func writeTreeText(w io.Writer, snap *core.Snapshot) error {
	for _, e := range snap.Entries {
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", e.Depth), entryLabel(e)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s entries, %s\n",
		humanize.Comma(int64(len(snap.Entries))), humanize.Bytes(snap.DiskUsage))
	return err
}

func entryLabel(e core.Entry) string {
	var b strings.Builder
	b.WriteString(e.Name)
	switch e.Type {
	case core.TypeDir.String():
		b.WriteByte('/')
	case core.TypeFile.String():
		if ext := kindExtension(e.Kind); ext != "" {
			b.WriteString(ext)
		}
		fmt.Fprintf(&b, "  %s", humanize.Bytes(uint64(e.Size)))
	case core.TypeLink.String():
		if e.Broken {
			b.WriteString(" -> (broken)")
		} else {
			b.WriteString(" -> " + e.Target)
		}
	}
	if !e.Writable {
		b.WriteString("  [read-only]")
	}
	return b.String()
}

func kindExtension(kind string) string {
	k, err := core.ParseFileKind(kind)
	if err != nil {
		return ""
	}
	return k.Extension()
}
