package mnist

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, write func(*bytes.Buffer) error) []byte {
	t.Helper()
	var raw, out bytes.Buffer
	require.NoError(t, write(&raw))
	zw := gzip.NewWriter(&out)
	_, err := zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return out.Bytes()
}

func TestFetcherDownloadsMissingFiles(t *testing.T) {
	images, labels := Synthetic(4, 9)
	imgGz := gzipped(t, func(b *bytes.Buffer) error { return WriteImages(b, images) })
	lblGz := gzipped(t, func(b *bytes.Buffer) error { return WriteLabels(b, labels) })

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case strings.Contains(r.URL.Path, "images"):
			w.Write(imgGz)
		case strings.Contains(r.URL.Path, "labels"):
			w.Write(lblGz)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	var log bytes.Buffer
	f := &Fetcher{Client: srv.Client(), Mirror: srv.URL + "/", Dir: dir, Out: &log}
	require.NoError(t, f.Fetch(context.Background()))
	require.EqualValues(t, 4, hits.Load())
	require.Contains(t, log.String(), "Downloading "+srv.URL+"/t10k-images-idx3-ubyte.gz")

	samples, err := Load(dir, false)
	require.NoError(t, err)
	require.Len(t, samples, 4)

	// everything is present now
	require.NoError(t, f.Fetch(context.Background()))
	require.EqualValues(t, 4, hits.Load())
}

func TestFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	f := &Fetcher{Client: srv.Client(), Mirror: srv.URL + "/", Dir: dir}
	err := f.Fetch(context.Background())
	require.ErrorContains(t, err, "404")

	entries, err := os.ReadDir(filepath.Join(dir, "MNIST", "raw"))
	require.NoError(t, err)
	require.Empty(t, entries)
}
