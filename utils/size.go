package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSize returns the total size in bytes of the regular files under path.
// A plain file yields its own size.
func DirSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// HumanReadableSize formats n bytes with one decimal and a binary unit
// suffix, e.g. 1536 -> "1.5K".
func HumanReadableSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "K", "M", "G", "T"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f%s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1fP", v)
}
