package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// Filetree is a namespace built from host paths.
type Filetree struct {
	Root   *Dir
	Report ImportReport
}

// BuildFiletree mirrors host paths into a fresh namespace. A single directory
// argument becomes the root; anything else is gathered under a virtual root
// named after the import time. File sizes are taken from the host, content
// is never read. Symlinks and special files are skipped.
//
// Options apply to the root. ReadOnly takes effect once the tree is built.
func BuildFiletree(paths []ParsedPath, opts ...Option) (*Filetree, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no valid paths provided")
	}
	o := buildOptions(nil, opts)
	ft := &Filetree{}

	if len(paths) == 1 && paths[0].Kind == PathDir {
		name := SanitizeName(filepath.Base(paths[0].FullPath), true)
		ft.Root = NewRootDir(name, WithClock(o.clock))
		if err := ft.addHostDir(ft.Root, paths[0].FullPath); err != nil {
			return nil, err
		}
	} else {
		name := "import_" + o.clock.Now().Format("2006_01_02_150405")
		ft.Root = NewRootDir(name, WithClock(o.clock))
		for _, p := range paths {
			if err := ft.addHostPath(ft.Root, p); err != nil {
				return nil, err
			}
		}
	}

	ft.Root.SetWritable(o.writable)
	return ft, nil
}

func (ft *Filetree) addHostPath(parent *Dir, p ParsedPath) error {
	if p.Kind == PathFile {
		info, err := os.Stat(p.FullPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p.FullPath, err)
		}
		return ft.addHostFile(parent, filepath.Base(p.FullPath), info)
	}

	dir, err := NewDir(parent, SanitizeName(filepath.Base(p.FullPath), true))
	if err != nil {
		if skippable(err) {
			ft.Report.Skipped++
			return nil
		}
		return err
	}
	ft.Report.Dirs++
	return ft.addHostDir(dir, p.FullPath)
}

func (ft *Filetree) addHostDir(dir *Dir, hostPath string) error {
	entries, err := os.ReadDir(hostPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", hostPath, err)
	}

	for _, entry := range entries {
		childPath := filepath.Join(hostPath, entry.Name())

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			ft.Report.Skipped++
		case entry.IsDir():
			if err := ft.addHostPath(dir, ParsedPath{FullPath: childPath, Kind: PathDir}); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", childPath, err)
			}
			if err := ft.addHostFile(dir, entry.Name(), info); err != nil {
				return err
			}
		default:
			ft.Report.Skipped++
		}
	}
	return nil
}

func (ft *Filetree) addHostFile(dir *Dir, hostName string, info os.FileInfo) error {
	kind, known := KindForExtension(filepath.Ext(hostName))
	name := hostName
	if known {
		name = name[:len(name)-len(kind.Extension())]
	}

	size := uint32(min(max(info.Size(), 0), int64(MaxFileSize)))
	_, err := NewFile(dir, SanitizeName(name, false), kind, WithSize(size))
	if err != nil {
		if skippable(err) {
			ft.Report.Skipped++
			return nil
		}
		return err
	}
	ft.Report.Files++
	return nil
}
