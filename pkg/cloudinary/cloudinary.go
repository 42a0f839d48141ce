package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores submission files in Cloudinary as raw assets.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the file under name, a slash separated path such as
// "<assignment>/<student>.txt", and returns its secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	folder, publicID := splitName(s.folder, name)
	if publicID == "" {
		return "", fmt.Errorf("invalid upload name %q", name)
	}

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "raw",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("submission file uploaded")

	return result.SecureURL, nil
}

// Delete removes the raw asset stored under name by Upload.
func (s *Service) Delete(ctx context.Context, name string) error {
	publicID := assetID(s.folder, name)
	if publicID == "" {
		return fmt.Errorf("invalid upload name %q", name)
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("submission file deleted")

	return nil
}

// assetID is the full public id Cloudinary assigns to an upload of name.
func assetID(base, name string) string {
	folder, publicID := splitName(base, name)
	if publicID == "" {
		return ""
	}
	if folder == "" {
		return publicID
	}
	return folder + "/" + publicID
}

// splitName joins the directory part of name onto the base folder and
// sanitizes the file part. Raw assets keep their extension in the public id.
func splitName(base, name string) (string, string) {
	dir, file := path.Split(path.Clean("/" + name))

	folder := strings.Trim(path.Join(strings.Trim(base, "/"), dir), "/")
	publicID := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, file)

	return folder, strings.Trim(publicID, "-.")
}
