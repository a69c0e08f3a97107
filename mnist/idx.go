// Package mnist reads the MNIST IDX files, exports them as the harness text
// dataset and provides the plaintext reference classifier.
package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	imagesMagic = 0x00000803
	labelsMagic = 0x00000801

	// Rows and Cols are the MNIST image dimensions.
	Rows = 28
	Cols = 28
	// ImageSize is the number of pixels per flattened image.
	ImageSize = Rows * Cols
	// NumClasses is the number of digit labels.
	NumClasses = 10

	maxItems = 1 << 20
)

// IDX file names as stored by torchvision.
const (
	TrainImagesFile = "train-images-idx3-ubyte"
	TrainLabelsFile = "train-labels-idx1-ubyte"
	TestImagesFile  = "t10k-images-idx3-ubyte"
	TestLabelsFile  = "t10k-labels-idx1-ubyte"
)

// ErrBadMagic is returned when an IDX header does not match the expected type.
var ErrBadMagic = errors.New("bad IDX magic number")

// Sample is one flattened image with pixels scaled to [0,1].
type Sample struct {
	Pixels []float64
	Label  int
}

// ReadImages decodes an idx3-ubyte stream into raw pixel rows.
func ReadImages(r io.Reader) ([][]byte, error) {
	var hdr [4]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if hdr[0] != imagesMagic {
		return nil, fmt.Errorf("%w: images header 0x%08x", ErrBadMagic, hdr[0])
	}
	n, rows, cols := int(hdr[1]), int(hdr[2]), int(hdr[3])
	if rows != Rows || cols != Cols {
		return nil, fmt.Errorf("unexpected image size %dx%d, want %dx%d", rows, cols, Rows, Cols)
	}
	if n > maxItems {
		return nil, fmt.Errorf("image count %d exceeds limit %d", n, maxItems)
	}
	buf := make([]byte, n*ImageSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d images: %w", n, err)
	}
	images := make([][]byte, n)
	for i := range images {
		images[i] = buf[i*ImageSize : (i+1)*ImageSize]
	}
	return images, nil
}

// ReadLabels decodes an idx1-ubyte stream.
func ReadLabels(r io.Reader) ([]byte, error) {
	var hdr [2]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading label header: %w", err)
	}
	if hdr[0] != labelsMagic {
		return nil, fmt.Errorf("%w: labels header 0x%08x", ErrBadMagic, hdr[0])
	}
	if hdr[1] > maxItems {
		return nil, fmt.Errorf("label count %d exceeds limit %d", hdr[1], maxItems)
	}
	labels := make([]byte, hdr[1])
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("reading %d labels: %w", hdr[1], err)
	}
	for i, l := range labels {
		if l >= NumClasses {
			return nil, fmt.Errorf("label %d at index %d out of range", l, i)
		}
	}
	return labels, nil
}

// WriteImages encodes images (each ImageSize bytes) as idx3-ubyte.
func WriteImages(w io.Writer, images [][]byte) error {
	hdr := [4]uint32{imagesMagic, uint32(len(images)), Rows, Cols}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return err
	}
	for i, img := range images {
		if len(img) != ImageSize {
			return fmt.Errorf("image %d has %d pixels, want %d", i, len(img), ImageSize)
		}
		if _, err := w.Write(img); err != nil {
			return err
		}
	}
	return nil
}

// WriteLabels encodes labels as idx1-ubyte.
func WriteLabels(w io.Writer, labels []byte) error {
	hdr := [2]uint32{labelsMagic, uint32(len(labels))}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return err
	}
	_, err := w.Write(labels)
	return err
}

// ScalePixel converts a raw byte the way torchvision's ToTensor does, in
// single precision.
func ScalePixel(b byte) float64 {
	return float64(float32(b) / 255)
}

// locate finds name under dir or dir/MNIST/raw, plain or gzipped.
func locate(dir, name string) (string, error) {
	for _, d := range []string{dir, filepath.Join(dir, "MNIST", "raw")} {
		for _, n := range []string{name, name + ".gz"} {
			p := filepath.Join(d, n)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%s not found under %s: %w", name, dir, os.ErrNotExist)
}

func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return struct {
			io.Reader
			io.Closer
		}{bufio.NewReader(f), f}, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{zr, f}, nil
}

func readFile[T any](dir, name string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	path, err := locate(dir, name)
	if err != nil {
		return zero, err
	}
	rc, err := openIDX(path)
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	v, err := decode(rc)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Load reads the train or test split from dir.
func Load(dir string, train bool) ([]Sample, error) {
	imgName, lblName := TestImagesFile, TestLabelsFile
	if train {
		imgName, lblName = TrainImagesFile, TrainLabelsFile
	}
	images, err := readFile(dir, imgName, ReadImages)
	if err != nil {
		return nil, err
	}
	labels, err := readFile(dir, lblName, ReadLabels)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%s has %d images but %s has %d labels", imgName, len(images), lblName, len(labels))
	}
	samples := make([]Sample, len(images))
	for i, img := range images {
		px := make([]float64, ImageSize)
		for j, b := range img {
			px[j] = ScalePixel(b)
		}
		samples[i] = Sample{Pixels: px, Label: int(labels[i])}
	}
	return samples, nil
}

// WriteSplit stores images and labels as IDX files under dir, gzipped when
// compress is set.
func WriteSplit(dir string, train bool, images [][]byte, labels []byte, compress bool) error {
	imgName, lblName := TestImagesFile, TestLabelsFile
	if train {
		imgName, lblName = TrainImagesFile, TrainLabelsFile
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeIDX(filepath.Join(dir, imgName), compress, func(w io.Writer) error { return WriteImages(w, images) }); err != nil {
		return err
	}
	return writeIDX(filepath.Join(dir, lblName), compress, func(w io.Writer) error { return WriteLabels(w, labels) })
}

func writeIDX(path string, compress bool, encode func(io.Writer) error) error {
	if compress {
		path += ".gz"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(bw)
		w = zw
	}
	if err := encode(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
