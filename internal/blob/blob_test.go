package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	s3Store := newFakeS3(t)

	stores := map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     s3Store,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, _, err := s.Get(ctx, "qr/item/missing.png")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "qr/item/IP-1.png", []byte("first"), "image/png"))
			require.NoError(t, s.Put(ctx, "qr/item/IP-1.png", []byte("second"), "image/png"))

			data, contentType, err := s.Get(ctx, "qr/item/IP-1.png")
			require.NoError(t, err)
			assert.Equal(t, "second", string(data))
			assert.Equal(t, "image/png", contentType)

			require.NoError(t, s.Delete(ctx, "qr/item/IP-1.png"))
			require.NoError(t, s.Delete(ctx, "qr/item/IP-1.png"), "deleting twice is a no-op")

			_, _, err = s.Get(ctx, "qr/item/IP-1.png")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside.png", "qr/../../x", "qr/.."} {
		assert.Error(t, s.Put(context.Background(), key, []byte("x"), ""), key)
	}
}

func TestFilesystemAcceptsDotsInNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"qr/item/IP-A..1161026.png", "qr/item/..hidden.png", "qr/x/../item/IP-2.png"} {
		require.NoError(t, s.Put(ctx, key, []byte("png"), "image/png"), key)
		data, _, err := s.Get(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, []byte("png"), data)
		require.NoError(t, s.Delete(ctx, key), key)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, Config{Driver: "s3"})
	assert.Error(t, err, "bucket is required")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestMemoryKeys(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Put(ctx, "b", nil, "")
	s.Put(ctx, "a", nil, "")
	assert.Equal(t, []string{"a", "b"}, s.Keys())
}

// newFakeS3 serves the path-style object API for a single bucket.
func newFakeS3(t *testing.T) *S3 {
	t.Helper()

	type object struct {
		body        []byte
		contentType string
	}
	var mu sync.Mutex
	objects := map[string]object{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/armory/")
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[key] = object{body: body, contentType: r.Header.Get("Content-Type")}
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			obj, ok := objects[key]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
				return
			}
			w.Header().Set("Content-Type", obj.contentType)
			w.Write(obj.body)
		case http.MethodDelete:
			delete(objects, key)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "armory",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      srv.Client(),
	})
	require.NoError(t, err)
	return s
}
