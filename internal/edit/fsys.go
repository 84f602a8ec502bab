package edit

import (
	"fmt"
	"os"
	"path/filepath"
)

// FS is the file-system capability the engine consumes. Reading and
// writing bytes to disk lives behind it so hosts can interpose
// sandboxes, overlays, or in-memory stores.
type FS interface {
	Exists(path string) bool
	Read(path string) (string, error)
	ReadBinary(path string) ([]byte, error)
	Write(path, content string) error
	Delete(path string) error
	Mkdir(path string) error
}

// OSFS is the default capability backed by the host file system.
// Writes are atomic: temp file in the target directory, then rename.
type OSFS struct{}

func (OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFS) Read(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", Errf(KindFileNotFound, "file not found: %s", path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", Errf(KindFileNotFound, "%s is a directory, not a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (OSFS) ReadBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Errf(KindFileNotFound, "file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (OSFS) Write(path, content string) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".edit-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if info, statErr := os.Stat(path); statErr == nil {
		_ = os.Chmod(tempPath, info.Mode())
	} else {
		_ = os.Chmod(tempPath, 0644)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func (OSFS) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return Errf(KindFileNotFound, "file not found: %s", path)
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (OSFS) Mkdir(path string) error {
	return os.MkdirAll(path, 0755)
}
