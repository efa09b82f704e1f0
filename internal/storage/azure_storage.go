// Package storage provides the optional capture-dump sink: captured
// panel images uploaded to blob storage for offline debugging of
// recognition failures.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/anime-shed/grid-scanner-go/internal/logger"
)

// uploadTimeout bounds one blob upload; a slow sink must never stall
// the scan pipeline for long.
const uploadTimeout = 10 * time.Second

// AzureDumpStore uploads captures to an Azure blob container. It
// implements the scanner's DumpSink.
type AzureDumpStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureDumpStore connects to the account with shared-key credentials.
// The prefix (usually a run timestamp) namespaces one run's captures.
func NewAzureDumpStore(accountName, accountKey, container, prefix string) (*AzureDumpStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("blob credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("blob client: %w", err)
	}

	return &AzureDumpStore{client: client, container: container, prefix: prefix}, nil
}

// SaveCapture uploads one capture as PNG under the run prefix.
func (s *AzureDumpStore) SaveCapture(name string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	blobName := name
	if s.prefix != "" {
		blobName = s.prefix + "/" + name
	}
	if _, err := s.client.UploadStream(ctx, s.container, blobName, &buf, nil); err != nil {
		return fmt.Errorf("upload capture %s: %w", blobName, err)
	}
	logger.WithField("blob", blobName).Debug("capture uploaded")
	return nil
}
