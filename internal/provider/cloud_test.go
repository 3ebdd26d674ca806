package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driveServer is a minimal in-memory Drive v3 stand-in: a single flat
// namespace of files keyed by "<parentID>/<name>", enough to exercise
// list/resolve/upload/download/delete without a real account.
type driveServer struct {
	t      *testing.T
	files  map[string]*driveFile // key: parentID + "/" + name
	byID   map[string][]byte     // file ID -> content
	nextID int
}

func newDriveServer(t *testing.T) *driveServer {
	t.Helper()
	return &driveServer{t: t, files: map[string]*driveFile{}, byID: map[string][]byte{}}
}

func (d *driveServer) key(parentID, name string) string { return parentID + "/" + name }

func (d *driveServer) put(parentID, name string, folder bool, content []byte) *driveFile {
	d.nextID++
	id := fmt.Sprintf("id-%d", d.nextID)

	f := &driveFile{
		ID:           id,
		Name:         name,
		Size:         fmt.Sprintf("%d", len(content)),
		ModifiedTime: "2026-01-01T00:00:00Z",
	}
	if folder {
		f.MimeType = folderMimeType
	} else {
		f.MimeType = "application/octet-stream"
	}

	d.files[d.key(parentID, name)] = f
	d.byID[id] = content

	return f
}

func (d *driveServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files") && r.URL.Query().Get("alt") == "":
			d.handleQuery(w, r)
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/") && r.URL.Query().Get("alt") == "media":
			d.handleDownload(w, r)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files") && r.URL.Query().Get("uploadType") == "":
			d.handleCreateFolder(w, r)
		case r.Method == http.MethodPost && r.URL.Query().Get("uploadType") == "multipart":
			d.handleMultipartUpload(w, r)
		case r.Method == http.MethodPatch && r.URL.Query().Get("uploadType") == "media":
			d.handleUpdateContent(w, r)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "unhandled: "+r.Method+" "+r.URL.String(), http.StatusNotImplemented)
		}
	}
}

// handleQuery answers a Drive `q=` search. The server is a test double, so
// rather than parse the query grammar it just checks the two substrings
// this provider ever emits: "'<parentID>' in parents" and an optional
// "name='<name>'".
func (d *driveServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var matches []driveFile

	for k, f := range d.files {
		parentAndName := strings.SplitN(k, "/", 2)
		if len(parentAndName) != 2 {
			continue
		}

		parentID := parentAndName[0]
		if !strings.Contains(q, "'"+parentID+"' in parents") {
			continue
		}

		if strings.Contains(q, "name=") && !strings.Contains(q, "name='"+escapeDriveQuery(f.Name)+"'") {
			continue
		}

		matches = append(matches, *f)
	}

	require.NoError(d.t, json.NewEncoder(w).Encode(fileList{Files: matches}))
}

func (d *driveServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Split(r.URL.Path, "?")[0], "/")
	id := parts[len(parts)-1]

	content, ok := d.byID[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	_, err := w.Write(content)
	require.NoError(d.t, err)
}

func (d *driveServer) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string   `json:"name"`
		Parents []string `json:"parents"`
	}

	require.NoError(d.t, json.NewDecoder(r.Body).Decode(&body))

	parent := ""
	if len(body.Parents) > 0 {
		parent = body.Parents[0]
	}

	f := d.put(parent, body.Name, true, nil)
	require.NoError(d.t, json.NewEncoder(w).Encode(f))
}

func (d *driveServer) handleMultipartUpload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(d.t, err)

	mr := multipart.NewReader(r.Body, params["boundary"])

	var meta struct {
		Name    string   `json:"name"`
		Parents []string `json:"parents"`
	}

	var content []byte

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}

		require.NoError(d.t, err)

		data, err := io.ReadAll(part)
		require.NoError(d.t, err)

		if part.Header.Get("Content-Type") == "application/json; charset=UTF-8" {
			require.NoError(d.t, json.Unmarshal(data, &meta))
		} else {
			content = data
		}
	}

	parent := ""
	if len(meta.Parents) > 0 {
		parent = meta.Parents[0]
	}

	f := d.put(parent, meta.Name, false, content)
	require.NoError(d.t, json.NewEncoder(w).Encode(f))
}

func (d *driveServer) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Split(r.URL.Path, "?")[0], "/")
	id := parts[len(parts)-1]

	content, err := io.ReadAll(r.Body)
	require.NoError(d.t, err)

	d.byID[id] = content
	w.WriteHeader(http.StatusOK)
}

func TestCloudUploadListDownloadRoundtrip(t *testing.T) {
	srv := newDriveServer(t)
	ts := httptest.NewServer(srv.handler())

	defer ts.Close()

	c := NewCloud("root-folder", ts.Client(), nil)
	c.BaseURL = ts.URL
	c.UploadURL = ts.URL

	ctx := context.Background()

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "doc.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello cloud"), 0o600))

	require.NoError(t, c.Upload(ctx, src, "doc.txt"))

	exists, err := c.Exists(ctx, "doc.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	files, err := c.ListFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "doc.txt", files[0].Path)

	dlDest := filepath.Join(srcDir, "downloaded.txt")
	require.NoError(t, c.Download(ctx, "doc.txt", dlDest))

	data, err := os.ReadFile(dlDest)
	require.NoError(t, err)
	assert.Equal(t, "hello cloud", string(data))
}

func TestCloudUploadUpdatesExistingFile(t *testing.T) {
	srv := newDriveServer(t)
	ts := httptest.NewServer(srv.handler())

	defer ts.Close()

	c := NewCloud("root-folder", ts.Client(), nil)
	c.BaseURL = ts.URL
	c.UploadURL = ts.URL

	ctx := context.Background()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "doc.txt")

	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o600))
	require.NoError(t, c.Upload(ctx, src, "doc.txt"))

	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o600))
	require.NoError(t, c.Upload(ctx, src, "doc.txt"))

	files, err := c.ListFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, files, 1, "update must not create a second file")

	dlDest := filepath.Join(srcDir, "downloaded.txt")
	require.NoError(t, c.Download(ctx, "doc.txt", dlDest))

	data, err := os.ReadFile(dlDest)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestCloudGetMetadataMissing(t *testing.T) {
	srv := newDriveServer(t)
	ts := httptest.NewServer(srv.handler())

	defer ts.Close()

	c := NewCloud("root-folder", ts.Client(), nil)
	c.BaseURL = ts.URL

	meta, err := c.GetMetadata(context.Background(), "nope.txt")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestCloudDeleteMissingIsError(t *testing.T) {
	srv := newDriveServer(t)
	ts := httptest.NewServer(srv.handler())

	defer ts.Close()

	c := NewCloud("root-folder", ts.Client(), nil)
	c.BaseURL = ts.URL

	err := c.Delete(context.Background(), "nope.txt")
	assert.Error(t, err)
}

func TestCloudInitializeRejectsEmptyFolder(t *testing.T) {
	c := NewCloud("", http.DefaultClient, nil)
	assert.Error(t, c.Initialize(context.Background()))
}

func TestEscapeDriveQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeDriveQuery(`it's`))
	assert.Equal(t, `back\\slash`, escapeDriveQuery(`back\slash`))
}
