package core

import (
	"fmt"
	"os"
	"path/filepath"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

func (k PathKind) String() string {
	if k == PathDir {
		return "dir"
	}
	return "file"
}

type ParsedPath struct {
	FullPath string
	Kind     PathKind
}

// ParseArgs validates host path arguments for BuildFiletree. Every path must
// exist and be a regular file or a directory; repeated paths are rejected.
func ParseArgs(args []string) ([]ParsedPath, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<paths>", Cause: "no paths provided"}
	}

	out := make([]ParsedPath, 0, len(args))
	seen := make(map[string]bool, len(args))

	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}
		if seen[p] {
			return nil, &ValidationError{Arg: raw, Cause: "given more than once"}
		}
		seen[p] = true

		var kind PathKind
		switch {
		case info.IsDir():
			kind = PathDir
		case info.Mode().IsRegular():
			kind = PathFile
		default:
			return nil, &ValidationError{Arg: raw, Cause: "not a regular file or directory"}
		}

		out = append(out, ParsedPath{FullPath: p, Kind: kind})
	}

	return out, nil
}
