package mnist

import "math/rand"

// Synthetic generates n MNIST-shaped images whose label is encoded as a
// bright horizontal band, plus sparse noise. It stands in for the real
// download when running the harness offline.
func Synthetic(n int, seed int64) ([][]byte, []byte) {
	rng := rand.New(rand.NewSource(seed))
	images := make([][]byte, n)
	labels := make([]byte, n)
	for i := range images {
		label := rng.Intn(NumClasses)
		img := make([]byte, ImageSize)
		for r := 2*label + 4; r < 2*label+6; r++ {
			for c := 4; c < Cols-4; c++ {
				img[r*Cols+c] = byte(200 + rng.Intn(56))
			}
		}
		for k := 0; k < 20; k++ {
			img[rng.Intn(ImageSize)] = byte(rng.Intn(80))
		}
		images[i] = img
		labels[i] = byte(label)
	}
	return images, labels
}
