package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/sigdesk-go/domain/backend"
)

func newMeta(t *testing.T) *MetaStore {
	t.Helper()
	m, err := OpenMeta(context.Background(), "sqlite", filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	blobs, err := NewFileBlobs(t.TempDir())
	require.NoError(t, err)
	return New(newMeta(t), blobs, 0, nil)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.SetNRGBA(2, 2, color.NRGBA{0, 0, 200, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOpenMeta_RejectsUnknownDriver(t *testing.T) {
	_, err := OpenMeta(context.Background(), "postgres", "x")
	assert.Error(t, err)
}

func TestMetaStore_ListNewestFirst(t *testing.T) {
	m := newMeta(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, m.Insert(ctx, Record{
			ID: key, NPP: "7", Key: key, ContentType: "image/png", Size: 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.Insert(ctx, Record{ID: "x", NPP: "8", Key: "x.png", ContentType: "image/png", CreatedAt: base}))

	recs, err := m.List(ctx, "7")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c.png", recs[0].Key)
	assert.Equal(t, "a.png", recs[2].Key)
	assert.True(t, recs[2].CreatedAt.Equal(base))

	rec, err := m.ByKey(ctx, "x.png")
	require.NoError(t, err)
	assert.Equal(t, "8", rec.NPP)
}

func TestMetaStore_DeleteScopedToPerson(t *testing.T) {
	m := newMeta(t)
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, Record{ID: "1", NPP: "7", Key: "a.png", ContentType: "image/png", CreatedAt: time.Now()}))

	assert.ErrorIs(t, m.Delete(ctx, "8", "a.png"), ErrNotFound)
	require.NoError(t, m.Delete(ctx, "7", "a.png"))
	_, err := m.ByKey(ctx, "a.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBlobs_RoundTripAndKeys(t *testing.T) {
	s, err := NewFileBlobs(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.png", []byte("data"), "image/png"))
	got, err := s.Get(ctx, "k.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	require.NoError(t, s.Delete(ctx, "k.png"))
	require.NoError(t, s.Delete(ctx, "k.png"))
	_, err = s.Get(ctx, "k.png")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []string{"", "../x", "a/b", `a\b`} {
		assert.Error(t, s.Put(ctx, bad, nil, ""), bad)
	}
}

func TestKeyFromLocator(t *testing.T) {
	cases := map[string]string{
		"uploads/ttd/a.png":                     "a.png",
		"https://cdn.example/uploads/ttd/b.png": "b.png",
		"c.png":                                 "c.png",
	}
	for in, want := range cases {
		got, ok := keyFromLocator(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "uploads/ttd/", "dir/a.png", "uploads/ttd/../a.png"} {
		_, ok := keyFromLocator(bad)
		assert.False(t, ok, bad)
	}
}

func multipartBody(t *testing.T, npp string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if npp != "" {
		require.NoError(t, mw.WriteField("npp", npp))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("ttd", "sig.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload_Rejections(t *testing.T) {
	g := newRegistry(t)
	api := g.API()

	cases := []struct {
		name   string
		npp    string
		data   []byte
		status int
	}{
		{"no npp", "", pngBytes(t), http.StatusBadRequest},
		{"no file", "7", nil, http.StatusBadRequest},
		{"not an image", "7", []byte("<html>hi</html>"), http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.npp, tc.data)
			req := httptest.NewRequest(http.MethodPost, "/signatures", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			api.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			var resp mutationResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestList_EmptyPersonHasNullFields(t *testing.T) {
	g := newRegistry(t)
	rec := httptest.NewRecorder()
	g.API().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signatures/404", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ttd_path":null,"ttd_list":null}`, rec.Body.String())
}

func TestDelete_UnknownSignature(t *testing.T) {
	g := newRegistry(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/signatures", strings.NewReader(`{"npp":"7","path":"uploads/ttd/nope.png"}`))
	g.API().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Signature not found"}`, rec.Body.String())
}

func TestFiles_UnknownKey(t *testing.T) {
	g := newRegistry(t)
	rec := httptest.NewRecorder()
	g.Files().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/ttd/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// The desk's backend client talks to the registry end to end.
func TestRegistry_WithBackendClient(t *testing.T) {
	g := newRegistry(t)
	tick := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", g.API()))
	mux.Handle("/"+LocatorPrefix, g.Files())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := backend.New(backend.Options{APIURL: srv.URL + "/api"})
	require.NoError(t, err)
	ctx := context.Background()
	data := pngBytes(t)

	first, err := c.Upload(ctx, "7", backend.FilePart{Name: "a.png", Data: data})
	require.NoError(t, err)
	second, err := c.Upload(ctx, "7", backend.FilePart{Name: "b.png", Data: data})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, LocatorPrefix))

	l, err := c.List(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, second, l.Primary)
	assert.Equal(t, []string{second, first}, l.History)

	resp, err := http.Get(srv.URL + "/" + first)
	require.NoError(t, err)
	got, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, data, got)

	require.NoError(t, c.Delete(ctx, "7", second))
	err = c.Delete(ctx, "7", second)
	var oe *backend.OperatorError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "Signature not found", oe.Error())

	l, err = c.List(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, first, l.Primary)
	assert.Equal(t, []string{first}, l.History)
}
