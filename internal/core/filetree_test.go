package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helpers

func setupTestFile(t *testing.T, name string, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	return filePath
}

func setupNestedTestDir(t *testing.T, structure map[string]interface{}) string {
	t.Helper()
	rootDir := t.TempDir()
	createStructure(t, rootDir, structure)
	return rootDir
}

func createStructure(t *testing.T, basePath string, structure map[string]interface{}) {
	t.Helper()
	for name, content := range structure {
		path := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			// file
			require.NoError(t, os.WriteFile(path, []byte(v), 0644))
		case map[string]interface{}:
			// dir
			require.NoError(t, os.Mkdir(path, 0755))
			createStructure(t, path, v)
		default:
			t.Fatalf("unsupported structure type for %s", name)
		}
	}
}

func buildFromStructure(t *testing.T, top string, structure map[string]interface{}) *Filetree {
	t.Helper()
	rootDir := setupNestedTestDir(t, structure)
	tree, err := BuildFiletree([]ParsedPath{{FullPath: filepath.Join(rootDir, top), Kind: PathDir}},
		WithClock(newMockClock(t)))
	require.NoError(t, err)
	return tree
}

// Tests

func TestBuildFiletree(t *testing.T) {
	t.Run("single directory becomes the root", func(t *testing.T) {
		tree := buildFromStructure(t, "subdir", map[string]interface{}{
			"subdir": map[string]interface{}{
				"file1.txt": "content1",
				"file2.txt": "content2",
			},
		})

		assert.Equal(t, "subdir", tree.Root.Name())
		assert.Nil(t, tree.Root.Parent())
		assert.Equal(t, []string{"file1", "file2"}, childNames(tree.Root))
		assert.Equal(t, ImportReport{Files: 2}, tree.Report)
	})

	t.Run("sizes and kinds come from the host", func(t *testing.T) {
		tree := buildFromStructure(t, "project", map[string]interface{}{
			"project": map[string]interface{}{
				"src": map[string]interface{}{
					"main.go":  "package main",
					"utils.go": "package main\n",
				},
				"tests": map[string]interface{}{
					"main_test.go": "package main",
				},
				"README.md": "# Project",
				"LICENSE":   "MIT",
			},
		})
		project := tree.Root

		assert.Equal(t, []string{"LICENSE", "README", "src", "tests"}, childNames(project))
		assert.Equal(t, 4+2+1, project.TotalChildCount())
		assert.Equal(t, uint64(12+13+12+9+3), project.TotalDiskUsage())

		main, err := Resolve(project, "src/main.go")
		require.NoError(t, err)
		assert.Equal(t, KindGo, main.(*File).Kind())
		assert.Equal(t, uint32(12), main.(*File).Size())

		license, err := Resolve(project, "LICENSE")
		require.NoError(t, err)
		assert.Equal(t, KindNone, license.(*File).Kind())

		assert.Equal(t, ImportReport{Dirs: 2, Files: 5}, tree.Report)
		assertInvariants(t, project)
	})

	t.Run("names are sanitized", func(t *testing.T) {
		tree := buildFromStructure(t, "my.project", map[string]interface{}{
			"my.project": map[string]interface{}{
				"sub dir": map[string]interface{}{
					"a file.txt": "x",
				},
			},
		})

		assert.Equal(t, "my_project", tree.Root.Name())
		_, err := Resolve(tree.Root, "sub_dir/a_file.txt")
		assert.NoError(t, err)
	})

	t.Run("case-insensitive collisions are skipped", func(t *testing.T) {
		tree := buildFromStructure(t, "dup", map[string]interface{}{
			"dup": map[string]interface{}{
				"Notes.txt": "a",
				"notes.txt": "b",
			},
		})

		assert.Equal(t, 1, tree.Root.ChildCount())
		assert.Equal(t, 1, tree.Report.Skipped)
	})

	t.Run("multiple paths create a virtual root", func(t *testing.T) {
		file1 := setupTestFile(t, "file1.txt", "content1")
		dir := setupNestedTestDir(t, map[string]interface{}{
			"docs": map[string]interface{}{"guide.md": "guide"},
		})
		clk := newMockClock(t)

		tree, err := BuildFiletree([]ParsedPath{
			{FullPath: file1, Kind: PathFile},
			{FullPath: filepath.Join(dir, "docs"), Kind: PathDir},
		}, WithClock(clk))
		require.NoError(t, err)

		assert.Equal(t, "import_2024_03_01_120000", tree.Root.Name())
		assert.Equal(t, []string{"docs", "file1"}, childNames(tree.Root))
		assert.Equal(t, "/import_2024_03_01_120000/docs/guide.md", tree.Root.ItemAt(1).(*Dir).ItemAt(1).AbsolutePath())
	})

	t.Run("single file gets a virtual root", func(t *testing.T) {
		file := setupTestFile(t, "only.txt", "content")

		tree, err := BuildFiletree([]ParsedPath{{FullPath: file, Kind: PathFile}})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(tree.Root.Name(), "import_"))
		assert.Equal(t, []string{"only"}, childNames(tree.Root))
	})

	t.Run("read-only option applies after build", func(t *testing.T) {
		file := setupTestFile(t, "only.txt", "content")

		tree, err := BuildFiletree([]ParsedPath{{FullPath: file, Kind: PathFile}}, ReadOnly())
		require.NoError(t, err)

		assert.False(t, tree.Root.IsWritable())
		assert.Equal(t, 1, tree.Root.ChildCount())
	})

	t.Run("symlinks are skipped", func(t *testing.T) {
		rootDir := setupNestedTestDir(t, map[string]interface{}{
			"links": map[string]interface{}{"real.txt": "x"},
		})
		dir := filepath.Join(rootDir, "links")
		if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "alias.txt")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		tree, err := BuildFiletree([]ParsedPath{{FullPath: dir, Kind: PathDir}})
		require.NoError(t, err)

		assert.Equal(t, []string{"real"}, childNames(tree.Root))
		assert.Equal(t, 1, tree.Report.Skipped)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := BuildFiletree([]ParsedPath{{FullPath: filepath.Join(t.TempDir(), "gone"), Kind: PathDir}})
		assert.Error(t, err)
	})

	t.Run("empty paths returns error", func(t *testing.T) {
		tree, err := BuildFiletree(nil)

		assert.Error(t, err)
		assert.Nil(t, tree)
	})
}
