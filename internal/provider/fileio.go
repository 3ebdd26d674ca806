package provider

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes content to a staging file alongside dest and
// renames it into place, so a reader never observes a partially written
// file. Shared by Cloud, which receives whole payloads in memory rather
// than streaming through copyFile like Local/Share.
func writeFileAtomic(dest string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	staging := dest + ".partial"
	if err := os.WriteFile(staging, content, 0o600); err != nil {
		return err
	}

	return os.Rename(staging, dest)
}

func readAll(path string) ([]byte, error) {
	return os.ReadFile(path)
}
