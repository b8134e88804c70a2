// Package blob stores scan images in Azure Blob Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logctx"
)

// ErrDisabled is returned by the store used when no account is configured.
var ErrDisabled = errors.New("blob storage disabled")

type Store interface {
	// UploadScanImage stores a JPEG and returns its URL.
	UploadScanImage(ctx context.Context, userID, scanID string, data []byte) (string, error)
}

type Client struct {
	client    *azblob.Client
	container string
	log       *zap.SugaredLogger
}

func NewClient(cfg cfgpkg.BlobConfig, log *zap.SugaredLogger) (*Client, error) {
	if !cfg.Enabled() || cfg.Container == "" {
		return nil, errors.New("account name, account key and container are required")
	}
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &Client{client: client, container: cfg.Container, log: log}, nil
}

func scanBlobName(userID, scanID string) string {
	return path.Join("scans", userID, scanID+".jpg")
}

// blobURL is the public URL of name. Each path segment is escaped on its own
// so the virtual directories keep their slashes.
func (c *Client) blobURL(name string) string {
	segs := strings.Split(name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.client.URL(), "/") + "/" + url.PathEscape(c.container) + "/" + strings.Join(segs, "/")
}

func (c *Client) UploadScanImage(ctx context.Context, userID, scanID string, data []byte) (string, error) {
	name := scanBlobName(userID, scanID)
	bc := c.client.ServiceClient().NewContainerClient(c.container).NewBlockBlobClient(name)
	_, err := bc.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": lo.ToPtr("image/jpeg"),
			"userid":      lo.ToPtr(userID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload scan image: %w", err)
	}
	logctx.FromCtx(ctx, c.log).Infow("scan image uploaded", "blob_name", name, "size_bytes", len(data))
	return c.blobURL(name), nil
}

type disabled struct{}

func (disabled) UploadScanImage(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

// NewStore returns the Azure client when configured and a no-op store otherwise.
func NewStore(cfg *cfgpkg.Config, log *zap.SugaredLogger) (Store, error) {
	if !cfg.Blob.Enabled() {
		log.Infow("blob storage not configured, scan images are not persisted")
		return disabled{}, nil
	}
	return NewClient(cfg.Blob, log)
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
