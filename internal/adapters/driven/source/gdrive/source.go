// Package gdrive lists and downloads manual PDFs from a Google Drive folder.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/ratelimit"
)

// Name identifies this source in sync stats.
const Name = "gdrive"

// MimeTypePDF is the only file type listed.
const MimeTypePDF = "application/pdf"

const pageSize = 100

// Drive errors.
var (
	// ErrUnauthorized indicates the service account was rejected.
	ErrUnauthorized = errors.New("gdrive: unauthorised (check the service account and folder sharing)")

	// ErrFolderNotFound indicates the folder does not exist or is not shared.
	ErrFolderNotFound = errors.New("gdrive: folder not found")

	// ErrRateLimited indicates Drive returned 429.
	ErrRateLimited = errors.New("gdrive: rate limit exceeded")

	// ErrChecksumMismatch indicates a download does not match its listed MD5.
	ErrChecksumMismatch = errors.New("gdrive: checksum mismatch")
)

// Ensure Source implements the interface.
var _ driven.ManualSource = (*Source)(nil)

// Source is a Drive folder of manual PDFs.
type Source struct {
	svc      *drive.Service
	folderID string
	cacheDir string
	limiter  *ratelimit.RateLimiter
}

// New creates a source authenticated with the service account key in
// settings.CredentialsFile. Downloads go to settings.CacheDir, by default
// ~/.printdesk/cache/drive.
func New(ctx context.Context, settings domain.DriveSettings, limiter *ratelimit.RateLimiter) (*Source, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: drive.folder_id is not set", domain.ErrInvalidInput)
	}
	if settings.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: drive.credentials_file is not set", domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(settings.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewWithService(svc, settings.FolderID, settings.CacheDir, limiter)
}

// NewWithService creates a source over an existing Drive client.
func NewWithService(svc *drive.Service, folderID, cacheDir string, limiter *ratelimit.RateLimiter) (*Source, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".printdesk", "cache", "drive")
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}
	return &Source{
		svc:      svc,
		folderID: folderID,
		cacheDir: cacheDir,
		limiter:  limiter,
	}, nil
}

// Name returns the source name.
func (s *Source) Name() string {
	return Name
}

// List returns every PDF directly inside the folder, with Drive's MD5.
func (s *Source) List(ctx context.Context) ([]domain.SourceFile, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(s.folderID, "'", `\'`), MimeTypePDF)

	var files []domain.SourceFile
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(query).
			PageSize(pageSize).
			Fields("nextPageToken, files(id, name, md5Checksum, size)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, s.wrapError(err)
		}
		for _, f := range resp.Files {
			files = append(files, domain.SourceFile{
				Name:    f.Name,
				ModelID: extractor.ModelFromFilename(f.Name),
				Hash:    f.Md5Checksum,
				Ref:     f.Id,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	logger.Debug("Drive folder %s: %d PDFs", s.folderID, len(files))
	return files, nil
}

// Fetch downloads the PDF into the cache directory. A cached copy whose
// MD5 matches the listing is reused.
func (s *Source) Fetch(ctx context.Context, f domain.SourceFile) (string, error) {
	if err := os.MkdirAll(s.cacheDir, 0700); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	path := filepath.Join(s.cacheDir, f.Ref+"-"+filepath.Base(f.Name))

	if f.Hash != "" {
		if hash, err := extractor.HashFile(path); err == nil && hash == f.Hash {
			logger.Debug("Using cached %s", f.Name)
			return path, nil
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := s.svc.Files.Get(f.Ref).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return "", s.wrapError(err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(s.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", f.Name, err)
	}

	if f.Hash != "" {
		hash, err := extractor.HashFile(tmp.Name())
		if err != nil {
			return "", err
		}
		if hash != f.Hash {
			return "", fmt.Errorf("%w: %s is %s, listed as %s", ErrChecksumMismatch, f.Name, hash, f.Hash)
		}
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store %s: %w", f.Name, err)
	}
	return path, nil
}

// wrapError maps Drive API errors onto package errors and records 429s
// with the limiter.
func (s *Source) wrapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrFolderNotFound, s.folderID)
	case http.StatusTooManyRequests:
		s.limiter.RecordRateLimitError(0)
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return err
	}
}
