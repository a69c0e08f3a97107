package mnist

import (
	"fmt"
)

// PredictFile classifies every line of pixelsFile and writes the labels to
// predictionsFile in input order.
func PredictFile(c Classifier, pixelsFile, predictionsFile string) (int, error) {
	rows, err := ReadPixelsFile(pixelsFile, ImageSize)
	if err != nil {
		return 0, err
	}
	preds, err := c.Predict(rows)
	if err != nil {
		return 0, fmt.Errorf("predicting %s: %w", pixelsFile, err)
	}
	if len(preds) != len(rows) {
		return 0, fmt.Errorf("classifier returned %d predictions for %d rows", len(preds), len(rows))
	}
	if err := WritePredictions(predictionsFile, preds); err != nil {
		return 0, err
	}
	return len(preds), nil
}
