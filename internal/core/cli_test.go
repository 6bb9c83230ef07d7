package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestFiles(t *testing.T, files map[string]string) []string {
	t.Helper()
	tmpDir := t.TempDir()
	var paths []string

	for filename, content := range files {
		filePath := filepath.Join(tmpDir, filename)
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
		paths = append(paths, filePath)
	}

	return paths
}

func assertValidationError(t *testing.T, err error, expectedArg string, expectedCause string) {
	t.Helper()
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "expected ValidationError, got %T", err)
	if expectedArg != "" {
		assert.Equal(t, expectedArg, validationErr.Arg)
	}
	if expectedCause != "" {
		assert.Equal(t, expectedCause, validationErr.Cause)
	}
}

func TestParseArgs(t *testing.T) {
	t.Run("empty args returns error", func(t *testing.T) {
		result, err := ParseArgs([]string{})

		require.Error(t, err)
		assert.Nil(t, result)
		assertValidationError(t, err, "<paths>", "no paths provided")
	})

	t.Run("single file", func(t *testing.T) {
		paths := setupTestFiles(t, map[string]string{"notes.txt": "content"})

		result, err := ParseArgs(paths)

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, ParsedPath{FullPath: paths[0], Kind: PathFile}, result[0])
	})

	t.Run("single directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		result, err := ParseArgs([]string{tmpDir})

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, PathDir, result[0].Kind)
	})

	t.Run("nonexistent path returns error", func(t *testing.T) {
		result, err := ParseArgs([]string{"/nonexistent/path/file.txt"})

		require.Error(t, err)
		assert.Nil(t, result)
		assertValidationError(t, err, "/nonexistent/path/file.txt", "not found or not accessible")
	})

	t.Run("path cleaning", func(t *testing.T) {
		paths := setupTestFiles(t, map[string]string{"notes.txt": "content"})
		messy := filepath.Join(filepath.Dir(paths[0]), ".", "notes.txt")

		result, err := ParseArgs([]string{messy})

		require.NoError(t, err)
		assert.Equal(t, paths[0], result[0].FullPath)
	})

	t.Run("duplicate path returns error", func(t *testing.T) {
		paths := setupTestFiles(t, map[string]string{"notes.txt": "content"})
		again := filepath.Join(filepath.Dir(paths[0]), ".", "notes.txt")

		_, err := ParseArgs([]string{paths[0], again})

		assertValidationError(t, err, again, "given more than once")
	})

	t.Run("mixed files and directories keep argument order", func(t *testing.T) {
		tmpDir := t.TempDir()
		subDir := filepath.Join(tmpDir, "subdir")
		require.NoError(t, os.Mkdir(subDir, 0755))
		testFile := filepath.Join(tmpDir, "test.txt")
		require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

		result, err := ParseArgs([]string{testFile, subDir})

		require.NoError(t, err)
		assert.Equal(t, []ParsedPath{
			{FullPath: testFile, Kind: PathFile},
			{FullPath: subDir, Kind: PathDir},
		}, result)
	})
}

func TestPathKindString(t *testing.T) {
	assert.Equal(t, "file", PathFile.String())
	assert.Equal(t, "dir", PathDir.String())
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Arg: "test.txt", Cause: "file not found"}

	assert.Equal(t, `invalid argument "test.txt": file not found`, err.Error())
}
