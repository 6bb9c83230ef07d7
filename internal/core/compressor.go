package core

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ImportReport counts what ImportZip created.
type ImportReport struct {
	Dirs    int `json:"dirs" yaml:"dirs"`
	Files   int `json:"files" yaml:"files"`
	Links   int `json:"links" yaml:"links"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// ExportZip writes the subtree below d as an archive skeleton. Entries are
// empty; the entry comment carries type, kind, size, writability and link
// targets so that ImportZip can rebuild the tree.
func ExportZip(d *Dir) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, n := range FlattenTree(d)[1:] {
		if err := exportNode(zw, d, n); err != nil {
			zw.Close()
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func exportNode(zw *zip.Writer, base *Dir, n Node) error {
	rel, _ := RelativePath(base, n)
	attrs := []string{"type=" + n.Type().String()}

	name := rel
	switch v := n.(type) {
	case *Dir:
		name += "/"
	case *File:
		name += v.kind.Extension()
		attrs = append(attrs, "kind="+v.kind.String(), "size="+strconv.FormatUint(uint64(v.size), 10))
	case *Link:
		if v.State() {
			if target, ok := RelativePath(base, v.target); ok && target != "" {
				if f, isFile := v.target.(*File); isFile {
					target += f.kind.Extension()
				}
				attrs = append(attrs, "target="+target)
			}
		}
	}
	if !n.IsWritable() {
		attrs = append(attrs, "writable=false")
	}

	header := &zip.FileHeader{
		Name:     name,
		Comment:  strings.Join(attrs, " "),
		Method:   zip.Store,
		Modified: n.CreatedAt(),
	}
	if _, err := zw.CreateHeader(header); err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}
	return nil
}

// ImportZip rebuilds the tree stored in data below parent. Any zip archive is
// accepted: names are sanitized, missing intermediate directories are
// created and file sizes fall back to the uncompressed entry size. Entries
// that collide with existing nodes are skipped. maxEntries <= 0 means no
// limit.
func ImportZip(parent *Dir, data []byte, maxEntries int) (*ImportReport, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if maxEntries > 0 && len(zr.File) > maxEntries {
		return nil, &NodeError{Op: "import", Path: parent.AbsolutePath(),
			Err: fmt.Errorf("%d entries exceed limit %d: %w", len(zr.File), maxEntries, ErrInvalidArgument)}
	}

	imp := &importer{base: parent, report: &ImportReport{}}
	type pendingLink struct {
		dir    *Dir
		name   string
		target string
	}
	var links []pendingLink

	for _, f := range zr.File {
		segs, ok := entrySegments(f.Name)
		if !ok {
			imp.report.Skipped++
			continue
		}
		attrs := parseAttrs(f.Comment)
		isDir := strings.HasSuffix(f.Name, "/") || attrs["type"] == TypeDir.String()

		if isDir {
			d, err := imp.ensureDir(segs)
			if err != nil {
				return nil, err
			}
			if d == nil {
				imp.report.Skipped++
				continue
			}
			imp.markReadOnly(d, attrs)
			continue
		}

		dir, err := imp.ensureDir(segs[:len(segs)-1])
		if err != nil {
			return nil, err
		}
		if dir == nil {
			imp.report.Skipped++
			continue
		}
		leaf := segs[len(segs)-1]

		if attrs["type"] == TypeLink.String() {
			links = append(links, pendingLink{dir: dir, name: SanitizeName(leaf, false), target: attrs["target"]})
			continue
		}
		if err := imp.addFile(dir, leaf, attrs, f.UncompressedSize64); err != nil {
			return nil, err
		}
	}

	for _, pl := range links {
		if pl.target == "" {
			imp.report.Skipped++
			continue
		}
		target, err := Resolve(parent, pl.target)
		if err != nil {
			imp.report.Skipped++
			continue
		}
		if _, err := NewLink(pl.dir, pl.name, target); err != nil {
			if skippable(err) {
				imp.report.Skipped++
				continue
			}
			return nil, err
		}
		imp.report.Links++
	}

	for _, w := range imp.readOnly {
		w.SetWritable(false)
	}
	return imp.report, nil
}

type writableSetter interface {
	SetWritable(bool)
}

type importer struct {
	base     *Dir
	report   *ImportReport
	readOnly []writableSetter
}

// ensureDir walks segs below the import base, creating directories as
// needed. It returns nil when a segment is taken by a non-directory.
func (imp *importer) ensureDir(segs []string) (*Dir, error) {
	cur := imp.base
	for _, seg := range segs {
		name := SanitizeName(seg, true)
		if n, ok := cur.Item(name); ok {
			d, isDir := n.(*Dir)
			if !isDir {
				return nil, nil
			}
			cur = d
			continue
		}
		d, err := NewDir(cur, name)
		if err != nil {
			return nil, err
		}
		imp.report.Dirs++
		cur = d
	}
	return cur, nil
}

func (imp *importer) addFile(dir *Dir, leaf string, attrs map[string]string, uncompressed uint64) error {
	kind := KindNone
	if k, ok := attrs["kind"]; ok {
		if parsed, err := ParseFileKind(k); err == nil {
			kind = parsed
		}
		leaf = strings.TrimSuffix(leaf, kind.Extension())
	} else if k, known := KindForExtension(path.Ext(leaf)); known {
		kind = k
		leaf = strings.TrimSuffix(leaf, k.Extension())
	}

	size := uncompressed
	if s, ok := attrs["size"]; ok {
		if parsed, err := strconv.ParseUint(s, 10, 64); err == nil {
			size = parsed
		}
	}
	size = min(size, uint64(MaxFileSize))

	f, err := NewFile(dir, SanitizeName(leaf, false), kind, WithSize(uint32(size)))
	if err != nil {
		if skippable(err) {
			imp.report.Skipped++
			return nil
		}
		return err
	}
	imp.report.Files++
	imp.markReadOnly(f, attrs)
	return nil
}

func (imp *importer) markReadOnly(w writableSetter, attrs map[string]string) {
	if attrs["writable"] == "false" {
		imp.readOnly = append(imp.readOnly, w)
	}
}

func skippable(err error) bool {
	return errors.Is(err, ErrNameNotAvailable) ||
		errors.Is(err, ErrReferenceDeleted) ||
		errors.Is(err, ErrInvalidArgument)
}

func entrySegments(name string) ([]string, bool) {
	segs := splitPath(strings.ReplaceAll(name, `\`, "/"))
	if len(segs) == 0 {
		return nil, false
	}
	for _, s := range segs {
		if s == ".." {
			return nil, false
		}
	}
	return segs, true
}

func parseAttrs(comment string) map[string]string {
	attrs := make(map[string]string)
	for _, field := range strings.Fields(comment) {
		k, v, ok := strings.Cut(field, "=")
		if ok {
			attrs[k] = v
		}
	}
	return attrs
}

// SanitizeName maps every character not allowed in a node name to '_'.
// Directory names additionally lose their dots. An empty result becomes
// DefaultName.
func SanitizeName(name string, dir bool) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' && !dir:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return DefaultName
	}
	return b.String()
}
