package drive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
)

// DefaultChunkSize is the resumable upload chunk size. Files smaller than
// one chunk go up in a single request.
const DefaultChunkSize = googleapi.DefaultUploadChunkSize

// UploadConfig holds Drive upload settings.
type UploadConfig struct {
	FolderID  string `json:"folderId" toml:"folder_id" yaml:"folder_id"` // optional parent folder
	ChunkSize int    `json:"chunkSize" toml:"chunk_size" yaml:"chunk_size"`
}

// Uploader creates Drive files from local files.
type Uploader struct {
	folderID  string
	chunkSize int
	opts      []option.ClientOption
}

// NewUploader returns an Uploader. Extra client options are applied after
// the credential (tests use them to reach a stub endpoint).
func NewUploader(cfg UploadConfig, opts ...option.ClientOption) *Uploader {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Uploader{folderID: cfg.FolderID, chunkSize: chunk, opts: opts}
}

// Upload creates a Drive file named after the base name of filePath with
// the file's contents and returns its ID. No retry, no cleanup on failure.
func (u *Uploader) Upload(ctx context.Context, filePath string, cred *Credential) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errs.NotFound("upload file "+filePath, err)
		}
		return "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	if cred.Token() == nil {
		return "", errs.NotConfigured("drive credential")
	}

	clientOpts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(cred.Token())),
	}, u.opts...)

	svc, err := drivev3.NewService(ctx, clientOpts...)
	if err != nil {
		return "", errs.Provider("drive", "client", err)
	}

	meta := &drivev3.File{Name: filepath.Base(filePath)}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	start := time.Now()
	L_debug("drive: uploading", "file", filePath, "name", meta.Name, "folder", u.folderID)

	created, err := svc.Files.Create(meta).
		Media(f, googleapi.ChunkSize(u.chunkSize)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		L_error("drive: upload failed", "file", filePath, "error", err)
		return "", errs.Provider("drive", "upload", err)
	}

	L_info("drive: uploaded", "name", meta.Name, "id", created.Id, "elapsed", time.Since(start).Round(time.Millisecond))
	return created.Id, nil
}
