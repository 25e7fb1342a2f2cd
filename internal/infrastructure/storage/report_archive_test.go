package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/infrastructure/config"
)

// fakeBucket is a path-style S3 endpoint holding objects in memory.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		if _, ok := b.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = body
		b.puts++
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestArchive(t *testing.T) (*S3ReportArchive, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	archive, err := NewS3ReportArchive(context.Background(), config.ArchiveConfig{
		Endpoint:     srv.URL,
		Bucket:       "snapshots",
		Prefix:       "/reports/",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return archive, bucket
}

func TestNewS3ReportArchive_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := NewS3ReportArchive(ctx, config.ArchiveConfig{AccessKey: "k", SecretKey: "s"}, nil)
	assert.ErrorContains(t, err, "bucket")

	_, err = NewS3ReportArchive(ctx, config.ArchiveConfig{Bucket: "b"}, nil)
	assert.ErrorContains(t, err, "access key")
}

func TestS3ReportArchive_ObjectKey(t *testing.T) {
	archive, _ := newTestArchive(t)
	org, scenario := uuid.New(), uuid.New()

	assert.Equal(t, "reports/"+org.String()+"/baseline/abc.json",
		archive.ObjectKey(report.CacheKey{OrganizationID: org, InputDataVersion: "abc"}))
	assert.Equal(t, "reports/"+org.String()+"/"+scenario.String()+"/abc.json",
		archive.ObjectKey(report.CacheKey{OrganizationID: org, ScenarioID: scenario, InputDataVersion: "abc"}))
}

func TestS3ReportArchive_PutOnce(t *testing.T) {
	archive, bucket := newTestArchive(t)
	ctx := context.Background()
	org := uuid.New()
	key := report.CacheKey{OrganizationID: org, InputDataVersion: "v1"}
	rep := &report.ConsolidatedReport{OrganizationID: org, InputDataVersion: "v1"}

	require.NoError(t, archive.Put(ctx, key, rep))
	require.NoError(t, archive.Put(ctx, key, rep))

	assert.Equal(t, 1, bucket.puts)
	stored, ok := bucket.objects["/snapshots/"+archive.ObjectKey(key)]
	require.True(t, ok)
	assert.Contains(t, string(stored), org.String())

	require.NoError(t, archive.Put(ctx, report.CacheKey{OrganizationID: org, InputDataVersion: "v2"}, rep))
	assert.Equal(t, 2, bucket.puts)
}
