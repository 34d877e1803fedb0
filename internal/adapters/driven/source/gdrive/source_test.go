package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/ratelimit"
)

// fakeDrive serves the two Drive endpoints the source uses.
type fakeDrive struct {
	files     map[string][]byte
	names     map[string]string
	downloads atomic.Int32
	status    int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, f.status)
		return
	}

	switch {
	case r.URL.Path == "/files":
		page := r.URL.Query().Get("pageToken")
		ids := []string{"id-1", "id-2"}
		next := "page-2"
		if page == "page-2" {
			ids = []string{"id-3"}
			next = ""
		}
		type file struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			MD5  string `json:"md5Checksum"`
		}
		out := struct {
			Files         []file `json:"files"`
			NextPageToken string `json:"nextPageToken,omitempty"`
		}{NextPageToken: next}
		for _, id := range ids {
			out.Files = append(out.Files, file{ID: id, Name: f.names[id], MD5: extractor.HashBytes(f.files[id])})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case strings.HasPrefix(r.URL.Path, "/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		data, ok := f.files[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.downloads.Add(1)
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func newFake() *fakeDrive {
	return &fakeDrive{
		files: map[string][]byte{
			"id-1": []byte("manual l3150"),
			"id-2": []byte("manual l4260"),
			"id-3": []byte("manual l1300"),
		},
		names: map[string]string{
			"id-1": "impressoraL3150.pdf",
			"id-2": "impressoraL4260.pdf",
			"id-3": "Manual L1300.pdf",
		},
	}
}

func newTestSource(t *testing.T, fake *fakeDrive) (*Source, string) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	cache := t.TempDir()
	s, err := NewWithService(svc, "folder-1", cache, nil)
	require.NoError(t, err)
	return s, cache
}

func TestSource_List_Paginates(t *testing.T) {
	s, _ := newTestSource(t, newFake())

	files, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "Manual L1300.pdf", files[0].Name)
	assert.Equal(t, "L1300", files[0].ModelID)
	assert.Equal(t, "id-3", files[0].Ref)
	assert.Equal(t, "impressoraL3150.pdf", files[1].Name)
	assert.Equal(t, "L3150", files[1].ModelID)
	assert.Equal(t, extractor.HashBytes([]byte("manual l3150")), files[1].Hash)
	assert.Equal(t, "L4260", files[2].ModelID)
}

func TestSource_Fetch_DownloadsAndCaches(t *testing.T) {
	fake := newFake()
	s, cache := newTestSource(t, fake)
	ctx := context.Background()

	files, err := s.List(ctx)
	require.NoError(t, err)

	path, err := s.Fetch(ctx, files[1])
	require.NoError(t, err)
	assert.Equal(t, cache, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "manual l3150", string(data))
	assert.Equal(t, int32(1), fake.downloads.Load())

	again, err := s.Fetch(ctx, files[1])
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), fake.downloads.Load(), "cached copy should be reused")
}

func TestSource_Fetch_ChecksumMismatch(t *testing.T) {
	s, cache := newTestSource(t, newFake())

	file := domain.SourceFile{Name: "impressoraL3150.pdf", ModelID: "L3150", Hash: "0000", Ref: "id-1"}
	_, err := s.Fetch(context.Background(), file)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp download should be removed")
}

func TestSource_Errors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrFolderNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fake := newFake()
			fake.status = tt.status
			s, _ := newTestSource(t, fake)

			_, err := s.List(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSource_WrapError_RecordsRateLimit(t *testing.T) {
	limiter := ratelimit.Unlimited()
	s := &Source{folderID: "f", limiter: limiter}

	err := s.wrapError(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, limiter.RetryAt().IsZero())
}

func TestSource_WrapError_PassesThroughOtherErrors(t *testing.T) {
	s := &Source{limiter: ratelimit.Unlimited()}
	plain := assert.AnError
	assert.Equal(t, plain, s.wrapError(plain))
}

func TestNew_RequiresSettings(t *testing.T) {
	_, err := New(context.Background(), domain.DriveSettings{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(context.Background(), domain.DriveSettings{FolderID: "f"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(context.Background(), domain.DriveSettings{
		FolderID:        "f",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	}, nil)
	assert.Error(t, err)
}

func TestSource_Name(t *testing.T) {
	s := &Source{}
	assert.Equal(t, "gdrive", s.Name())
}
