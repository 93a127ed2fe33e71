package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/openlms/assignment-service/internal/models"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore implements FileStore on top of Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger *slog.Logger
}

// NewCloudinaryStore constructs a Cloudinary-backed file store.
func NewCloudinaryStore(cfg CloudinaryConfig, logger *slog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With("component", "cloudinary"),
	}, nil
}

// Store uploads the file and returns its public id and secure URL.
func (s *CloudinaryStore) Store(ctx context.Context, name string, data []byte) (*models.FileRef, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(s.folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return nil, &Error{Op: "upload", Name: name, Err: err}
	}

	s.logger.Info("file uploaded",
		"public_id", result.PublicID,
		"bytes", len(data))

	return &models.FileRef{
		ID:   result.PublicID,
		Name: name,
		URL:  result.SecureURL,
	}, nil
}

// Delete removes an uploaded file by its public id.
func (s *CloudinaryStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return &Error{Op: "delete", Name: id, Err: err}
	}

	s.logger.Info("file deleted", "public_id", id)
	return nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
}
