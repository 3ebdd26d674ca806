package syncengine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/hasher"
	"github.com/foldkeep/foldsync/internal/model"
)

// fakeProvider is an in-memory Provider used only by this package's tests,
// so executor/engine tests can exercise multi-location propagation without
// standing up a real Cloud REST server or filesystem mount for every case.
type fakeProvider struct {
	mu       sync.Mutex
	loc      model.Location
	files    map[string][]byte
	modified map[string]time.Time
	failOp   string // operation name to fail, for error-path tests
}

func newFakeProvider(loc model.Location) *fakeProvider {
	return &fakeProvider{loc: loc, files: map[string][]byte{}, modified: map[string]time.Time{}}
}

func (f *fakeProvider) put(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files[path] = content
	f.modified[path] = time.Unix(1700000000, 0).UTC()
}

func (f *fakeProvider) Name() string             { return string(f.loc) }
func (f *fakeProvider) Location() model.Location { return f.loc }

func (f *fakeProvider) ListFiles(_ context.Context, _ string) ([]model.FileMetadata, error) {
	if f.failOp == "list" {
		return nil, fmt.Errorf("%w: injected failure", apperr.ErrNetwork)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.FileMetadata, 0, len(f.files))
	for path, data := range f.files {
		out = append(out, model.FileMetadata{
			Path: path, Size: int64(len(data)), Modified: f.modified[path], Hash: hasher.SHA256Bytes(data),
		})
	}

	return out, nil
}

func (f *fakeProvider) GetMetadata(_ context.Context, relPath string) (*model.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[relPath]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	return &model.FileMetadata{Path: relPath, Size: int64(len(data)), Modified: f.modified[relPath], Hash: hasher.SHA256Bytes(data)}, nil
}

func (f *fakeProvider) Exists(_ context.Context, relPath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.files[relPath]

	return ok, nil
}

func (f *fakeProvider) Download(_ context.Context, relPath, localDest string) error {
	if f.failOp == "download" {
		return fmt.Errorf("%w: injected failure", apperr.ErrNetwork)
	}

	f.mu.Lock()
	data, ok := f.files[relPath]
	f.mu.Unlock()

	if !ok {
		return apperr.NewProviderError(f.Name(), "download", relPath, apperr.ErrFileNotFound)
	}

	return os.WriteFile(localDest, data, 0o600)
}

func (f *fakeProvider) Upload(_ context.Context, localSrc, relDest string) error {
	if f.failOp == "upload" {
		return fmt.Errorf("%w: injected failure", apperr.ErrNetwork)
	}

	data, err := os.ReadFile(localSrc)
	if err != nil {
		return err
	}

	f.put(relDest, data)

	return nil
}

func (f *fakeProvider) Delete(_ context.Context, relPath string) error {
	if f.failOp == "delete" {
		return fmt.Errorf("%w: injected failure", apperr.ErrNetwork)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[relPath]; !ok {
		return apperr.NewProviderError(f.Name(), "delete", relPath, apperr.ErrFileNotFound)
	}

	delete(f.files, relPath)
	delete(f.modified, relPath)

	return nil
}

func (f *fakeProvider) Initialize(_ context.Context) error {
	if f.failOp == "initialize" {
		return fmt.Errorf("%w: injected failure", apperr.ErrProvider)
	}

	return nil
}

func (f *fakeProvider) TestConnection(_ context.Context) bool { return f.failOp != "initialize" }
