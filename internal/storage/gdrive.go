package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/vanchoco/backend-go/internal/config"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveConfig holds the service account used to publish exports to Google Drive.
type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	// Subject is the user impersonated through domain-wide delegation, if any.
	Subject string
}

// DriveClient implements ObjectStorage on top of a Drive folder. Object keys
// map to sub-folders and file names below that folder.
type DriveClient struct {
	srv  *drive.Service
	root string
}

func NewDriveClient(ctx context.Context, cfg DriveConfig) (*DriveClient, error) {
	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}
	if cfg.Subject != "" {
		jwtConfig.Subject = cfg.Subject
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	root := cfg.FolderID
	if root == "" {
		root = "root"
	}

	return &DriveClient{srv: srv, root: root}, nil
}

func (c *DriveClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	dir, namePrefix := path.Split(prefix)
	folderID, err := c.folderID(ctx, dir, false)
	if err != nil {
		return nil, err
	}

	result, err := c.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and mimeType!='%s' and trashed=false", folderID, folderMimeType)).
		Fields("files(id, name, size)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list files: %w", err)
	}

	results := make([]ObjectInfo, 0, len(result.Files))
	for _, f := range result.Files {
		if !strings.HasPrefix(f.Name, namePrefix) {
			continue
		}
		results = append(results, ObjectInfo{Key: path.Join(dir, f.Name), Size: f.Size})
	}
	return results, nil
}

func (c *DriveClient) DownloadObject(ctx context.Context, key, destPath string) error {
	dir, name := path.Split(key)
	folderID, err := c.folderID(ctx, dir, false)
	if err != nil {
		return err
	}

	fileID, err := c.fileID(ctx, folderID, name)
	if err != nil {
		return err
	}
	if fileID == "" {
		return fmt.Errorf("file not found: %s", key)
	}

	resp, err := c.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file: %w", err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// UploadObject creates the file, or replaces its content when the key already exists.
func (c *DriveClient) UploadObject(ctx context.Context, key string, data []byte) error {
	dir, name := path.Split(key)
	folderID, err := c.folderID(ctx, dir, true)
	if err != nil {
		return err
	}

	existing, err := c.fileID(ctx, folderID, name)
	if err != nil {
		return err
	}

	media := bytes.NewReader(data)
	if existing != "" {
		if _, err := c.srv.Files.Update(existing, &drive.File{}).Context(ctx).Media(media).Do(); err != nil {
			return fmt.Errorf("unable to update %s: %w", key, err)
		}
		return nil
	}

	file := &drive.File{
		Name:     name,
		Parents:  []string{folderID},
		MimeType: contentType(name),
	}
	if _, err := c.srv.Files.Create(file).Context(ctx).Media(media).Do(); err != nil {
		return fmt.Errorf("unable to upload %s: %w", key, err)
	}
	return nil
}

// folderID walks dir below the root folder, creating missing folders when create is set.
func (c *DriveClient) folderID(ctx context.Context, dir string, create bool) (string, error) {
	currentID := c.root

	for _, folder := range strings.Split(dir, "/") {
		if folder == "" {
			continue
		}

		result, err := c.srv.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		if len(result.Files) > 0 {
			currentID = result.Files[0].Id
			continue
		}

		if !create {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		created, err := c.srv.Files.Create(&drive.File{
			Name:     folder,
			MimeType: folderMimeType,
			Parents:  []string{currentID},
		}).Context(ctx).Fields("id").Do()
		if err != nil {
			return "", fmt.Errorf("error creating folder %s: %w", folder, err)
		}
		currentID = created.Id
	}

	return currentID, nil
}

func (c *DriveClient) fileID(ctx context.Context, folderID, name string) (string, error) {
	result, err := c.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", folderID, escapeQuery(name))).
		Fields("files(id)").
		Do()
	if err != nil {
		return "", fmt.Errorf("error finding file %s: %w", name, err)
	}
	if len(result.Files) == 0 {
		return "", nil
	}
	return result.Files[0].Id, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

func driveCredentials(cfg config.StorageConfig) (string, error) {
	if cfg.DriveCredsJSON != "" {
		return cfg.DriveCredsJSON, nil
	}
	if cfg.DriveCredsFile == "" {
		return "", fmt.Errorf("drive storage needs GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_APPLICATION_CREDENTIALS")
	}
	raw, err := os.ReadFile(cfg.DriveCredsFile)
	if err != nil {
		return "", fmt.Errorf("read drive credentials: %w", err)
	}
	return string(raw), nil
}

var _ ObjectStorage = (*DriveClient)(nil)
