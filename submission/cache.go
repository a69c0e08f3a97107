package submission

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// digestFiles returns the BLAKE3 digest over the contents of paths, each
// prefixed by its length so concatenations cannot collide.
func digestFiles(paths ...string) (string, error) {
	h := blake3.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return "", err
		}
		fmt.Fprintf(h, "%d:", info.Size())
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sidecar(path string) string { return path + ".blake3" }

// cacheHit reports whether output exists and its sidecar records digest.
func cacheHit(output, digest string) bool {
	if _, err := os.Stat(output); err != nil {
		return false
	}
	data, err := os.ReadFile(sidecar(output))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == digest
}

func writeSidecar(output, digest string) error {
	return os.WriteFile(sidecar(output), []byte(digest+"\n"), 0644)
}
