package mnist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotEnoughSamples is returned when more samples are requested than the
// source holds.
var ErrNotEnoughSamples = errors.New("not enough samples")

// ExportPaths returns the label and pixel file names derived from
// outputFile by dropping its extension.
func ExportPaths(outputFile string) (labels, pixels string) {
	base := strings.TrimSuffix(outputFile, filepath.Ext(outputFile))
	return base + "_labels.txt", base + "_pixels.txt"
}

// ExportTestData writes the first numSamples samples (-1 for all) as
// <base>_labels.txt and <base>_pixels.txt.
func ExportTestData(samples []Sample, outputFile string, numSamples int) error {
	n := numSamples
	if n == -1 {
		n = len(samples)
	}
	if n < 0 {
		return fmt.Errorf("invalid sample count %d", numSamples)
	}
	if n > len(samples) {
		return fmt.Errorf("%w: requested %d, source has %d", ErrNotEnoughSamples, n, len(samples))
	}
	labelsPath, pixelsPath := ExportPaths(outputFile)
	if err := os.MkdirAll(filepath.Dir(labelsPath), 0755); err != nil {
		return err
	}

	lf, err := os.Create(labelsPath)
	if err != nil {
		return err
	}
	defer lf.Close()
	pf, err := os.Create(pixelsPath)
	if err != nil {
		return err
	}
	defer pf.Close()

	lw, pw := bufio.NewWriter(lf), bufio.NewWriter(pf)
	var line []byte
	for _, s := range samples[:n] {
		if len(s.Pixels) != ImageSize {
			return fmt.Errorf("sample has %d pixels, want %d", len(s.Pixels), ImageSize)
		}
		lw.WriteString(strconv.Itoa(s.Label))
		lw.WriteByte('\n')
		line = AppendPixels(line[:0], s.Pixels)
		line = append(line, '\n')
		if _, err := pw.Write(line); err != nil {
			return err
		}
	}
	if err := lw.Flush(); err != nil {
		return err
	}
	if err := pw.Flush(); err != nil {
		return err
	}
	if err := lf.Close(); err != nil {
		return err
	}
	return pf.Close()
}
