package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/hasher"
	"github.com/foldkeep/foldsync/internal/model"
)

// Local rolls the local filesystem tree under Root. Hashes are SHA-256,
// computed locally since the OS filesystem exposes no native hash.
type Local struct {
	Root   string
	Logger *slog.Logger
}

// NewLocal creates a Local provider rooted at root.
func NewLocal(root string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}

	return &Local{Root: root, Logger: logger}
}

func (l *Local) Name() string             { return "local" }
func (l *Local) Location() model.Location { return model.LocationLocal }

func (l *Local) absPath(relPath string) string {
	return filepath.Join(l.Root, filepath.FromSlash(relPath))
}

// ListFiles walks l.Root recursively. subPath narrows the walk to one
// subdirectory; directories themselves are never included in the result.
func (l *Local) ListFiles(_ context.Context, subPath string) ([]model.FileMetadata, error) {
	startDir := l.Root
	if subPath != "" {
		startDir = filepath.Join(l.Root, filepath.FromSlash(subPath))
	}

	var out []model.FileMetadata

	walkErr := filepath.WalkDir(startDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		if isTempOrPartial(d.Name()) {
			return nil
		}

		rel, relErr := filepath.Rel(l.Root, p)
		if relErr != nil {
			return relErr
		}

		relPath, normErr := NormalizePath(filepath.ToSlash(rel))
		if normErr != nil {
			l.Logger.Warn("local: skipping unnormalizable path", "path", rel, "error", normErr)
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}

		sum, hashErr := hasher.SHA256File(p)
		if hashErr != nil {
			return hashErr
		}

		out = append(out, model.FileMetadata{
			Path:     relPath,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			Hash:     sum,
		})

		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
		return nil, apperr.NewProviderError(l.Name(), "list_files", subPath, walkErr)
	}

	return out, nil
}

func (l *Local) GetMetadata(_ context.Context, relPath string) (*model.FileMetadata, error) {
	full := l.absPath(relPath)

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not present"
	}

	if err != nil {
		return nil, apperr.NewProviderError(l.Name(), "get_metadata", relPath, err)
	}

	sum, err := hasher.SHA256File(full)
	if err != nil {
		return nil, apperr.NewProviderError(l.Name(), "get_metadata", relPath, err)
	}

	return &model.FileMetadata{
		Path:     relPath,
		Size:     info.Size(),
		Modified: info.ModTime().UTC(),
		Hash:     sum,
	}, nil
}

func (l *Local) Exists(_ context.Context, relPath string) (bool, error) {
	_, err := os.Stat(l.absPath(relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, apperr.NewProviderError(l.Name(), "exists", relPath, err)
	}

	return true, nil
}

func (l *Local) Download(_ context.Context, relPath, localDest string) error {
	full := l.absPath(relPath)

	expected, err := hasher.SHA256File(full)
	if err != nil {
		return apperr.NewProviderError(l.Name(), "download", relPath, err)
	}

	if err := copyFile(full, localDest); err != nil {
		return apperr.NewProviderError(l.Name(), "download", relPath, err)
	}

	ok, err := hasher.VerifyFileHash(localDest, expected)
	if err != nil {
		return apperr.NewProviderError(l.Name(), "download", relPath, err)
	}

	if !ok {
		return apperr.NewProviderError(l.Name(), "download", relPath,
			fmt.Errorf("%w: expected %s", apperr.ErrHashMismatch, expected))
	}

	return nil
}

func (l *Local) Upload(_ context.Context, localSrc, relDest string) error {
	full := l.absPath(relDest)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return apperr.NewProviderError(l.Name(), "upload", relDest, err)
	}

	if err := copyFile(localSrc, full); err != nil {
		return apperr.NewProviderError(l.Name(), "upload", relDest, err)
	}

	return nil
}

func (l *Local) Delete(_ context.Context, relPath string) error {
	full := l.absPath(relPath)

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.NewProviderError(l.Name(), "delete", relPath,
				fmt.Errorf("%w: %s", apperr.ErrFileNotFound, relPath))
		}

		return apperr.NewProviderError(l.Name(), "delete", relPath, err)
	}

	return nil
}

func (l *Local) Initialize(_ context.Context) error {
	info, err := os.Stat(l.Root)
	if err != nil {
		return apperr.NewProviderError(l.Name(), "initialize", "", err)
	}

	if !info.IsDir() {
		return apperr.NewProviderError(l.Name(), "initialize", "",
			fmt.Errorf("%w: %s is not a directory", apperr.ErrInvalidConfig, l.Root))
	}

	return nil
}

func (l *Local) TestConnection(_ context.Context) bool {
	info, err := os.Stat(l.Root)
	return err == nil && info.IsDir()
}

// copyFile copies src to dst, creating dst's parent directory if needed.
// Used by Local.Download/Upload and reused by Share (which layers a
// mount-health precheck over the same filesystem operations).
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// isTempOrPartial matches staging/partial filenames so the executor never
// accidentally lists or propagates its own scratch files.
func isTempOrPartial(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".partial") || strings.HasSuffix(lower, ".tmp") || strings.HasPrefix(name, "~")
}
