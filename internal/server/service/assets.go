package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filegate/internal/server/database"
	"filegate/internal/server/storage"
)

// Settings slots: each key holds the single "current" value for its asset.
const (
	SettingImageURL    = "current_image"
	SettingArchivePath = "current_archive"

	// DefaultImageURL points outside the managed area and is never deleted.
	DefaultImageURL = "/static/placeholder.svg"

	// ImageURLPrefix is where uploaded images are served from.
	ImageURLPrefix = "/media/images/"
)

// Sentinel errors for the asset service.
var (
	ErrNotImage  = errors.New("file is not an image")
	ErrNotZip    = errors.New("file is not a zip archive")
	ErrNoArchive = errors.New("no archive is available")
)

// ArchiveInfo describes the currently downloadable archive.
type ArchiveInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// AssetService owns the two asset slots: the advertised image and the
// downloadable archive. Replacing a slot writes the new file first, then
// commits the setting, then best-effort deletes the previous file.
type AssetService struct {
	repo     *database.Repository
	images   *storage.ManagedDir
	archives *storage.ManagedDir
}

// NewAssetService creates a new asset service.
func NewAssetService(repo *database.Repository, images, archives *storage.ManagedDir) *AssetService {
	return &AssetService{
		repo:     repo,
		images:   images,
		archives: archives,
	}
}

// ReplaceImage validates and stores a new advertised image, repoints the
// image setting at it and deletes the previously uploaded image.
// Returns the public URL of the new image.
func (s *AssetService) ReplaceImage(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	if !isImage(filename, contentType) {
		return "", ErrNotImage
	}

	path, err := s.images.Save(filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	oldURL, err := s.repo.GetSetting(ctx, SettingImageURL, "")
	if err != nil {
		return "", err
	}

	newURL := ImageURLPrefix + filepath.Base(path)
	if err := s.repo.SetSetting(ctx, SettingImageURL, newURL); err != nil {
		return "", err
	}

	// The placeholder and any external URL live outside the managed
	// area and are left alone.
	if old := s.imagePathForURL(oldURL); old != "" {
		if err := s.images.Delete(old); err != nil {
			slog.Warn("failed to delete replaced image", "path", old, "error", err)
		}
	}

	slog.Info("image replaced", "url", newURL)
	return newURL, nil
}

// ReplaceArchive validates and stores a new downloadable archive,
// repoints the archive setting at it and deletes the previous archive
// when it lived in the managed area.
func (s *AssetService) ReplaceArchive(ctx context.Context, filename string, data io.Reader) (string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		return "", ErrNotZip
	}

	path, err := s.archives.Save(filename, data)
	if err != nil {
		return "", fmt.Errorf("failed to store archive: %w", err)
	}

	oldPath, err := s.repo.GetSetting(ctx, SettingArchivePath, "")
	if err != nil {
		return "", err
	}

	if err := s.repo.SetSetting(ctx, SettingArchivePath, path); err != nil {
		return "", err
	}

	if oldPath != "" && oldPath != path && s.archives.Contains(oldPath) {
		if err := s.archives.Delete(oldPath); err != nil {
			slog.Warn("failed to delete replaced archive", "path", oldPath, "error", err)
		}
	}

	slog.Info("archive replaced", "path", path)
	return path, nil
}

// CurrentImageURL returns the URL of the advertised image, falling back
// to the static placeholder.
func (s *AssetService) CurrentImageURL(ctx context.Context) string {
	url, err := s.repo.GetSetting(ctx, SettingImageURL, DefaultImageURL)
	if err != nil || url == "" {
		return DefaultImageURL
	}
	return url
}

// ArchiveInfo resolves the archive setting to a file on disk.
// Returns ErrNoArchive when no archive has been uploaded or the file is
// missing.
func (s *AssetService) ArchiveInfo(ctx context.Context) (*ArchiveInfo, error) {
	path, err := s.repo.GetSetting(ctx, SettingArchivePath, "")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrNoArchive
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoArchive
		}
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	// The stored name carries a timestamp prefix; strip it for the
	// filename offered to the downloader.
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '_'); i > 0 && i < len(name)-1 {
		name = name[i+1:]
	}

	return &ArchiveInfo{
		Path:    path,
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReferencedPaths reports the on-disk files the settings currently point
// at, for the orphan cleanup sweep.
func (s *AssetService) ReferencedPaths(ctx context.Context) (map[string]bool, error) {
	live := make(map[string]bool)

	imageURL, err := s.repo.GetSetting(ctx, SettingImageURL, "")
	if err != nil {
		return nil, err
	}
	if p := s.imagePathForURL(imageURL); p != "" {
		live[p] = true
	}

	archivePath, err := s.repo.GetSetting(ctx, SettingArchivePath, "")
	if err != nil {
		return nil, err
	}
	if archivePath != "" {
		live[archivePath] = true
	}

	return live, nil
}

// imagePathForURL maps a served image URL back to its managed disk path.
// Returns "" for URLs outside the managed area.
func (s *AssetService) imagePathForURL(url string) string {
	if !strings.HasPrefix(url, ImageURLPrefix) {
		return ""
	}
	return s.images.PathFor(strings.TrimPrefix(url, ImageURLPrefix))
}

// ImagePath resolves a served image name to its managed disk path.
func (s *AssetService) ImagePath(name string) string {
	return s.images.PathFor(name)
}

func isImage(filename, contentType string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	// Fall back to the extension when the client sent a generic type.
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); strings.HasPrefix(t, "image/") {
		return true
	}
	return false
}
