package main

import (
	"io/fs"
	"os"
	"path/filepath"
)

const localDirMode fs.FileMode = 0o755

// validateDirectory returns the absolute, cleaned form of dirPath, or a
// configuration error when it is missing or not a directory.
func validateDirectory(dirPath string) (string, error) {
	absPath, absErr := filepath.Abs(dirPath)
	if absErr != nil {
		return dirPath, newSyncError(KindConfiguration, dirPath, absErr)
	}
	absPath = filepath.Clean(absPath)

	info, statErr := os.Stat(absPath)
	if statErr != nil {
		return absPath, newSyncError(KindConfiguration, absPath, statErr)
	}
	if !info.IsDir() {
		return absPath, newSyncError(KindConfiguration, absPath, fs.ErrInvalid)
	}

	return absPath, nil
}

// resolveSymlink follows the link at path. It reports the target's real path
// and whether the target is a directory. A dangling link returns an error.
func resolveSymlink(path string) (string, bool, error) {
	realPath, evalErr := filepath.EvalSymlinks(path)
	if evalErr != nil {
		return "", false, evalErr
	}
	info, statErr := os.Stat(realPath)
	if statErr != nil {
		return "", false, statErr
	}
	return realPath, info.IsDir(), nil
}

func ensureParentDir(filePath string) error {
	parent := filepath.Dir(filePath)
	if _, statErr := os.Stat(parent); statErr == nil {
		return nil
	}
	return os.MkdirAll(parent, localDirMode)
}

// localSize returns the size of the file at path and whether it exists.
func localSize(path string) (int64, bool, error) {
	info, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return 0, false, nil
	}
	if statErr != nil {
		return 0, false, statErr
	}
	return info.Size(), true, nil
}
