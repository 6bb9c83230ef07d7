package core

import (
	"fmt"
	"strings"
)

// FileKind tags a file with the extension shown in its absolute path.
type FileKind int

const (
	KindNone FileKind = iota
	KindTXT
	KindPDF
	KindJava
	KindGo
	KindMarkdown
	KindJSON
)

var fileKinds = []struct {
	kind FileKind
	name string
	ext  string
}{
	{KindNone, "none", ""},
	{KindTXT, "txt", ".txt"},
	{KindPDF, "pdf", ".pdf"},
	{KindJava, "java", ".java"},
	{KindGo, "go", ".go"},
	{KindMarkdown, "md", ".md"},
	{KindJSON, "json", ".json"},
}

func (k FileKind) Extension() string {
	for _, fk := range fileKinds {
		if fk.kind == k {
			return fk.ext
		}
	}
	return ""
}

func (k FileKind) String() string {
	for _, fk := range fileKinds {
		if fk.kind == k {
			return fk.name
		}
	}
	return fmt.Sprintf("FileKind(%d)", int(k))
}

// ParseFileKind accepts a kind name ("pdf") or an extension (".pdf").
// The empty string maps to KindNone.
func ParseFileKind(s string) (FileKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindNone, nil
	}
	for _, fk := range fileKinds {
		if s == fk.name || (fk.ext != "" && s == fk.ext) {
			return fk.kind, nil
		}
	}
	return KindNone, fmt.Errorf("%w: unknown file kind %q", ErrInvalidArgument, s)
}

// KindForExtension maps a host file extension to a kind, reporting whether
// the extension is known.
func KindForExtension(ext string) (FileKind, bool) {
	if ext == "" {
		return KindNone, false
	}
	ext = strings.ToLower(ext)
	for _, fk := range fileKinds {
		if fk.ext == ext {
			return fk.kind, true
		}
	}
	return KindNone, false
}
