// Package dataset materialises the MNIST text dataset of a tier and samples
// the per-run query files from it.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"fhe_harness/mnist"
	"fhe_harness/params"
)

var (
	// ErrNotEnoughSamples is returned when a batch asks for more records
	// than the dataset holds.
	ErrNotEnoughSamples = mnist.ErrNotEnoughSamples
	// ErrMismatchedDataset is returned when the pixel and label files have
	// different line counts.
	ErrMismatchedDataset = errors.New("pixel and label files differ in length")
)

// Source describes where the MNIST test split comes from.
type Source struct {
	MNISTDir string
	Download bool
	// Samples to export, -1 for all.
	Samples int
	Out     io.Writer
}

// Generate exports the MNIST test split to outputFile's _pixels/_labels
// companions.
func Generate(ctx context.Context, outputFile string, src Source) error {
	if src.Download {
		f := &mnist.Fetcher{Dir: src.MNISTDir, Out: src.Out}
		if err := f.Fetch(ctx); err != nil {
			return err
		}
	}
	samples, err := mnist.Load(src.MNISTDir, false)
	if err != nil {
		return fmt.Errorf("loading MNIST test split: %w", err)
	}
	if err := mnist.ExportTestData(samples, outputFile, src.Samples); err != nil {
		return fmt.Errorf("exporting %s: %w", outputFile, err)
	}
	return nil
}

// Mode selects how GenerateInput samples the dataset.
type Mode int

const (
	// Random draws a single record for a latency run.
	Random Mode = iota
	// Sequential takes the first batch-size records.
	Sequential
	// Exhaustive takes every record.
	Exhaustive
)

func (m Mode) String() string {
	switch m {
	case Random:
		return "random"
	case Sequential:
		return "sequential"
	case Exhaustive:
		return "exhaustive"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// GenerateInput writes the query files of p from its dataset. A nil seed
// draws from the clock.
func GenerateInput(p *params.InstanceParams, mode Mode, seed *int64) error {
	pixels, labels := p.DatasetPixelsFile(), p.DatasetLabelsFile()
	n, err := checkDataset(pixels, labels)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.DatasetIntermediateDir(), 0755); err != nil {
		return err
	}

	switch mode {
	case Random:
		s := time.Now().UnixNano()
		if seed != nil {
			s = *seed
		}
		idx := rand.New(rand.NewSource(s)).Intn(n)
		if err := copyLine(pixels, p.PlainInputFile(), idx); err != nil {
			return err
		}
		return copyLine(labels, p.PlainOutputFile(), idx)
	case Sequential, Exhaustive:
		count := n
		if mode == Sequential {
			count = p.BatchSize
		}
		if count > n {
			return fmt.Errorf("%w: batch of %d from %d records", ErrNotEnoughSamples, count, n)
		}
		if err := copyLines(pixels, p.TestPixelsFile(), count); err != nil {
			return err
		}
		return copyLines(labels, p.GroundTruthLabelsFile(), count)
	}
	return fmt.Errorf("unknown input mode %v", mode)
}

// checkDataset returns the record count after checking both files exist,
// are non-empty and agree in length.
func checkDataset(pixels, labels string) (int, error) {
	np, err := CountLines(pixels)
	if err != nil {
		return 0, fmt.Errorf("dataset: %w", err)
	}
	nl, err := CountLines(labels)
	if err != nil {
		return 0, fmt.Errorf("dataset: %w", err)
	}
	if np != nl {
		return 0, fmt.Errorf("%w: %s has %d lines, %s has %d", ErrMismatchedDataset, pixels, np, labels, nl)
	}
	if np == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrNotEnoughSamples, pixels)
	}
	return np, nil
}

// CountLines returns the number of lines in path, counting an
// unterminated last line.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	count := 0
	var last byte = '\n'
	for {
		n, err := f.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}

// copyLine writes line idx (0-based) of src to dst, trimmed and without a
// trailing newline.
func copyLine(src, dst string, idx int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 64*1024)
	for i := 0; ; i++ {
		line, err := readLine(r)
		if err == io.EOF {
			return fmt.Errorf("%w: %s has no line %d", ErrNotEnoughSamples, src, idx+1)
		}
		if err != nil {
			return err
		}
		if i == idx {
			return writeAtomic(dst, func(w *bufio.Writer) error {
				_, err := w.Write(bytes.TrimSpace(line))
				return err
			})
		}
	}
}

// copyLines writes the first n lines of src to dst, newline terminated.
func copyLines(src, dst string, n int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 64*1024)
	return writeAtomic(dst, func(w *bufio.Writer) error {
		for i := 0; i < n; i++ {
			line, err := readLine(r)
			if err == io.EOF {
				return fmt.Errorf("%w: %s has %d lines, want %d", ErrNotEnoughSamples, src, i, n)
			}
			if err != nil {
				return err
			}
			w.Write(bytes.TrimRight(line, "\r\n"))
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

// readLine returns the next line including its newline. An unterminated
// final line is returned without error; io.EOF means no line was left.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if len(line) > 0 && err == io.EOF {
		return line, nil
	}
	return line, err
}

// writeAtomic writes through a temp file in dst's directory and renames it
// into place, so a failure leaves no partial output.
func writeAtomic(dst string, write func(*bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
