package mediasync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// AssetFilesSynchronizer creates or updates the asset record of each file it
// is given. Files whose content hash matches the stored record are skipped.
type AssetFilesSynchronizer struct {
	dir    mediacontent.MediaDirectory
	assets mediacontent.AssetRepository
}

// NewAssetFilesSynchronizer creates a synchronizer writing to assets
func NewAssetFilesSynchronizer(dir mediacontent.MediaDirectory, assets mediacontent.AssetRepository) *AssetFilesSynchronizer {
	return &AssetFilesSynchronizer{dir: dir, assets: assets}
}

// Name identifies the synchronizer in logs and failure records
func (s *AssetFilesSynchronizer) Name() string {
	return "asset_files"
}

// SynchronizeFiles implements FilesSynchronizer. Every file is attempted; the
// returned error joins the individual failures.
func (s *AssetFilesSynchronizer) SynchronizeFiles(ctx context.Context, files []mediacontent.FileEntry) error {
	var errs []error
	for _, file := range files {
		if err := s.synchronizeFile(ctx, file); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file.Path, err))
		}
	}
	return errors.Join(errs...)
}

func (s *AssetFilesSynchronizer) synchronizeFile(ctx context.Context, file mediacontent.FileEntry) error {
	rel, err := s.dir.RelativePath(file.Path)
	if err != nil {
		return err
	}

	data, err := s.read(ctx, rel)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.assets.GetAssetByPath(ctx, rel)
	if err != nil && !errors.Is(err, mediacontent.ErrAssetNotFound) {
		return fmt.Errorf("failed to get asset: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to read image dimensions: %w", err)
	}

	asset := &mediacontent.Asset{
		ID:          uuid.New(),
		Path:        rel,
		Title:       strings.TrimSuffix(path.Base(rel), path.Ext(rel)),
		Source:      mediacontent.AssetSourceLocal,
		Hash:        hash,
		ContentType: http.DetectContentType(data),
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        int64(len(data)),
	}
	if existing != nil {
		asset.ID = existing.ID
		asset.Title = existing.Title
		asset.Description = existing.Description
		asset.CreatedAt = existing.CreatedAt
	}

	if err := s.assets.SaveAsset(ctx, asset); err != nil {
		return fmt.Errorf("%w: asset %s: %v", mediacontent.ErrCouldNotSave, rel, err)
	}
	return nil
}

func (s *AssetFilesSynchronizer) read(ctx context.Context, rel string) ([]byte, error) {
	rc, err := s.dir.Open(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
