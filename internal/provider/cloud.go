package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/hasher"
	"github.com/foldkeep/foldsync/internal/model"
)

const (
	driveAPIBase   = "https://www.googleapis.com/drive/v3"
	driveUploadAPI = "https://www.googleapis.com/upload/drive/v3"
	folderMimeType = "application/vnd.google-apps.folder"
)

// driveFile is the subset of the Drive v3 file resource this provider needs.
type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
	MD5Checksum  string `json:"md5Checksum"`
}

func (f driveFile) isFolder() bool { return f.MimeType == folderMimeType }

func (f driveFile) sizeBytes() int64 {
	n, err := strconv.ParseInt(f.Size, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

func (f driveFile) modifiedAt() time.Time {
	t, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil {
		return time.Time{}
	}

	return t
}

type fileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

// Cloud is a Google-Drive-shaped REST provider: every operation is an
// authenticated HTTPS call, folders are resolved by walking path
// components, and integrity is checked against Drive's own MD5 checksum
// rather than a hash this provider computes itself.
type Cloud struct {
	FolderID   string
	HTTPClient *http.Client
	Logger     *slog.Logger
	BaseURL    string
	UploadURL  string
}

// NewCloud creates a Cloud provider scoped to folderID. httpClient must
// already be wired to inject bearer tokens (an oauth2.Config-derived
// client satisfies this) and to refresh them transparently.
func NewCloud(folderID string, httpClient *http.Client, logger *slog.Logger) *Cloud {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cloud{
		FolderID:   folderID,
		HTTPClient: httpClient,
		Logger:     logger,
		BaseURL:    driveAPIBase,
		UploadURL:  driveUploadAPI,
	}
}

func (c *Cloud) Name() string             { return "gdrive" }
func (c *Cloud) Location() model.Location { return model.LocationCloud }

// escapeDriveQuery escapes backslashes and single quotes for safe
// interpolation into a Drive `q=` search expression.
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func (c *Cloud) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", apperr.ErrNetwork, method, rawURL, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	defer resp.Body.Close()

	errBody, _ := io.ReadAll(resp.Body)

	return nil, fmt.Errorf("%w: %s %s: status %d: %s",
		apperr.ErrNetwork, method, rawURL, resp.StatusCode, string(errBody))
}

// getItemByNameInFolder finds a file or folder by exact name within a
// specific parent folder. Returns (nil, nil) if nothing matches.
func (c *Cloud) getItemByNameInFolder(ctx context.Context, folderID, name string) (*driveFile, error) {
	q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		escapeDriveQuery(folderID), escapeDriveQuery(name))

	u := fmt.Sprintf("%s/files?q=%s&fields=%s", c.BaseURL, url.QueryEscape(q),
		url.QueryEscape("files(id,name,mimeType,size,modifiedTime,md5Checksum)"))

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list fileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decode file list: %w", apperr.ErrSerialization, err)
	}

	if len(list.Files) == 0 {
		return nil, nil //nolint:nilnil // sentinel for "not present"
	}

	return &list.Files[0], nil
}

// listFilesInFolder lists one page of direct children of folderID.
func (c *Cloud) listFilesInFolder(ctx context.Context, folderID, pageToken string) (fileList, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeDriveQuery(folderID))

	u := fmt.Sprintf("%s/files?q=%s&fields=%s", c.BaseURL, url.QueryEscape(q),
		url.QueryEscape("files(id,name,mimeType,size,modifiedTime,md5Checksum),nextPageToken"))

	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return fileList{}, err
	}
	defer resp.Body.Close()

	var list fileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fileList{}, fmt.Errorf("%w: decode file list: %w", apperr.ErrSerialization, err)
	}

	return list, nil
}

// listFilesRecursive walks folderID and its subfolders, accumulating
// FileMetadata with paths relative to the provider root (prefix).
func (c *Cloud) listFilesRecursive(ctx context.Context, folderID, prefix string) ([]model.FileMetadata, error) {
	var out []model.FileMetadata

	pageToken := ""

	for {
		list, err := c.listFilesInFolder(ctx, folderID, pageToken)
		if err != nil {
			return nil, err
		}

		for _, f := range list.Files {
			if f.isFolder() {
				sub, err := c.listFilesRecursive(ctx, f.ID, path.Join(prefix, f.Name))
				if err != nil {
					c.Logger.Warn("cloud: skipping unreadable subfolder", "name", f.Name, "error", err)
					continue
				}

				out = append(out, sub...)

				continue
			}

			relPath, normErr := NormalizePath(path.Join(prefix, f.Name))
			if normErr != nil {
				c.Logger.Warn("cloud: skipping unnormalizable path", "name", f.Name, "error", normErr)
				continue
			}

			out = append(out, model.FileMetadata{
				Path:     relPath,
				Size:     f.sizeBytes(),
				Modified: f.modifiedAt(),
				Hash:     f.MD5Checksum,
			})
		}

		if list.NextPageToken == "" {
			break
		}

		pageToken = list.NextPageToken
	}

	return out, nil
}

// resolvePath walks relPath's directory components under FolderID and
// returns the driveFile for the final component, or nil if any segment
// along the way is missing.
func (c *Cloud) resolvePath(ctx context.Context, relPath string) (*driveFile, error) {
	components := strings.Split(relPath, "/")
	if len(components) == 0 || components[0] == "" {
		return nil, nil //nolint:nilnil
	}

	currentFolder := c.FolderID

	for _, dirName := range components[:len(components)-1] {
		item, err := c.getItemByNameInFolder(ctx, currentFolder, dirName)
		if err != nil {
			return nil, err
		}

		if item == nil || !item.isFolder() {
			return nil, nil //nolint:nilnil
		}

		currentFolder = item.ID
	}

	return c.getItemByNameInFolder(ctx, currentFolder, components[len(components)-1])
}

// resolveOrCreateParentFolder walks relPath's directory components,
// creating any that do not yet exist, and returns the final parent's ID.
func (c *Cloud) resolveOrCreateParentFolder(ctx context.Context, relPath string) (string, error) {
	components := strings.Split(relPath, "/")
	currentFolder := c.FolderID

	if len(components) <= 1 {
		return currentFolder, nil
	}

	for _, dirName := range components[:len(components)-1] {
		item, err := c.getItemByNameInFolder(ctx, currentFolder, dirName)
		if err != nil {
			return "", err
		}

		if item != nil && item.isFolder() {
			currentFolder = item.ID
			continue
		}

		created, err := c.createFolder(ctx, dirName, currentFolder)
		if err != nil {
			return "", err
		}

		currentFolder = created
	}

	return currentFolder, nil
}

func (c *Cloud) createFolder(ctx context.Context, name, parentID string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"name":     name,
		"mimeType": folderMimeType,
		"parents":  []string{parentID},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrSerialization, err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.BaseURL+"/files", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var f driveFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return "", fmt.Errorf("%w: decode created folder: %w", apperr.ErrSerialization, err)
	}

	return f.ID, nil
}

func (c *Cloud) downloadFileContent(ctx context.Context, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", c.BaseURL, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read download body: %w", apperr.ErrIO, err)
	}

	return data, nil
}

const multipartBoundary = "===============foldsync-boundary==============="

func (c *Cloud) uploadFileToFolder(ctx context.Context, name, parentID string, content []byte) (string, error) {
	metaJSON, err := json.Marshal(map[string]any{
		"name":    name,
		"parents": []string{parentID},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrSerialization, err)
	}

	var body bytes.Buffer

	fmt.Fprintf(&body, "--%s\r\n", multipartBoundary)
	body.WriteString("Content-Type: application/json; charset=UTF-8\r\n\r\n")
	body.Write(metaJSON)
	fmt.Fprintf(&body, "\r\n--%s\r\n", multipartBoundary)
	body.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	body.Write(content)
	fmt.Fprintf(&body, "\r\n--%s--", multipartBoundary)

	u := c.UploadURL + "/files?uploadType=multipart"
	contentType := "multipart/related; boundary=" + multipartBoundary

	resp, err := c.do(ctx, http.MethodPost, u, &body, contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var f driveFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return "", fmt.Errorf("%w: decode uploaded file: %w", apperr.ErrSerialization, err)
	}

	return f.ID, nil
}

func (c *Cloud) updateFileContent(ctx context.Context, fileID string, content []byte) error {
	u := fmt.Sprintf("%s/files/%s?uploadType=media", c.UploadURL, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodPatch, u, bytes.NewReader(content), "application/octet-stream")
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

func (c *Cloud) ListFiles(ctx context.Context, _ string) ([]model.FileMetadata, error) {
	files, err := c.listFilesRecursive(ctx, c.FolderID, "")
	if err != nil {
		return nil, apperr.NewProviderError(c.Name(), "list_files", "", err)
	}

	return files, nil
}

func (c *Cloud) GetMetadata(ctx context.Context, relPath string) (*model.FileMetadata, error) {
	file, err := c.resolvePath(ctx, relPath)
	if err != nil {
		return nil, apperr.NewProviderError(c.Name(), "get_metadata", relPath, err)
	}

	if file == nil || file.isFolder() {
		return nil, nil //nolint:nilnil
	}

	return &model.FileMetadata{
		Path:     relPath,
		Size:     file.sizeBytes(),
		Modified: file.modifiedAt(),
		Hash:     file.MD5Checksum,
	}, nil
}

func (c *Cloud) Exists(ctx context.Context, relPath string) (bool, error) {
	meta, err := c.GetMetadata(ctx, relPath)
	if err != nil {
		return false, err
	}

	return meta != nil, nil
}

func (c *Cloud) Download(ctx context.Context, relPath, localDest string) error {
	file, err := c.resolvePath(ctx, relPath)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "download", relPath, err)
	}

	if file == nil {
		return apperr.NewProviderError(c.Name(), "download", relPath, apperr.ErrFileNotFound)
	}

	content, err := c.downloadFileContent(ctx, file.ID)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "download", relPath, err)
	}

	if err := writeFileAtomic(localDest, content); err != nil {
		return apperr.NewProviderError(c.Name(), "download", relPath, err)
	}

	if file.MD5Checksum == "" {
		return nil
	}

	ok, err := hasher.VerifyFileMD5(localDest, file.MD5Checksum)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "download", relPath, err)
	}

	if !ok {
		return apperr.NewProviderError(c.Name(), "download", relPath,
			fmt.Errorf("%w: expected md5 %s", apperr.ErrHashMismatch, file.MD5Checksum))
	}

	return nil
}

func (c *Cloud) Upload(ctx context.Context, localSrc, relDest string) error {
	content, err := readAll(localSrc)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "upload", relDest, err)
	}

	name := path.Base(relDest)

	existing, err := c.resolvePath(ctx, relDest)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "upload", relDest, err)
	}

	if existing != nil {
		if err := c.updateFileContent(ctx, existing.ID, content); err != nil {
			return apperr.NewProviderError(c.Name(), "upload", relDest, err)
		}

		return nil
	}

	parentID, err := c.resolveOrCreateParentFolder(ctx, relDest)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "upload", relDest, err)
	}

	if _, err := c.uploadFileToFolder(ctx, name, parentID, content); err != nil {
		return apperr.NewProviderError(c.Name(), "upload", relDest, err)
	}

	return nil
}

func (c *Cloud) Delete(ctx context.Context, relPath string) error {
	file, err := c.resolvePath(ctx, relPath)
	if err != nil {
		return apperr.NewProviderError(c.Name(), "delete", relPath, err)
	}

	if file == nil {
		return apperr.NewProviderError(c.Name(), "delete", relPath,
			fmt.Errorf("%w: %s", apperr.ErrFileNotFound, relPath))
	}

	u := fmt.Sprintf("%s/files/%s", c.BaseURL, url.PathEscape(file.ID))

	resp, err := c.do(ctx, http.MethodDelete, u, nil, "")
	if err != nil {
		return apperr.NewProviderError(c.Name(), "delete", relPath, err)
	}

	return resp.Body.Close()
}

func (c *Cloud) Initialize(_ context.Context) error {
	if c.FolderID == "" {
		return apperr.NewProviderError(c.Name(), "initialize", "",
			fmt.Errorf("%w: no folder configured", apperr.ErrInvalidConfig))
	}

	return nil
}

func (c *Cloud) TestConnection(ctx context.Context) bool {
	_, err := c.listFilesInFolder(ctx, c.FolderID, "")
	return err == nil
}
