package mnist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultMirror is the torchvision MNIST mirror.
const DefaultMirror = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// Fetcher downloads missing IDX archives into Dir/MNIST/raw.
type Fetcher struct {
	Client *http.Client
	Mirror string
	Dir    string
	Out    io.Writer
}

// Fetch downloads every split file that cannot already be found under Dir.
func (f *Fetcher) Fetch(ctx context.Context) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	mirror := f.Mirror
	if mirror == "" {
		mirror = DefaultMirror
	}
	raw := filepath.Join(f.Dir, "MNIST", "raw")
	for _, name := range []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile} {
		if _, err := locate(f.Dir, name); err == nil {
			continue
		}
		if err := os.MkdirAll(raw, 0755); err != nil {
			return err
		}
		url := mirror + name + ".gz"
		if f.Out != nil {
			fmt.Fprintf(f.Out, "Downloading %s\n", url)
		}
		if err := download(ctx, client, url, filepath.Join(raw, name+".gz")); err != nil {
			return err
		}
	}
	return nil
}

func download(ctx context.Context, client *http.Client, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
