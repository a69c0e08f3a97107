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

// ErrInvalidLine marks a malformed line in a pixel or label text file.
var ErrInvalidLine = errors.New("invalid line")

// LineError reports the file and 1-based line of a parse failure.
type LineError struct {
	Path string
	Line int
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

func (e *LineError) Is(target error) bool { return target == ErrInvalidLine }

// AppendPixels appends pixels formatted "%.6f" and space separated.
func AppendPixels(buf []byte, pixels []float64) []byte {
	for i, v := range pixels {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendFloat(buf, v, 'f', 6, 64)
	}
	return buf
}

// ReadPixelsFile parses one image per non-empty line. Every line must hold
// width values.
func ReadPixelsFile(path string, width int) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]float64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<24)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != width {
			return nil, &LineError{Path: path, Line: line, Msg: fmt.Sprintf("%d values, want %d", len(fields), width)}
		}
		row := make([]float64, width)
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, &LineError{Path: path, Line: line, Msg: fmt.Sprintf("value %d: %v", i+1, err)}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// WritePredictions writes one label per line in order.
func WritePredictions(path string, preds []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, p := range preds {
		w.WriteString(strconv.Itoa(p))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
