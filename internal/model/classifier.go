package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:generate mockgen -source=classifier.go -destination=mocks/mock_classifier.go -package=mocks

// Classifier predicts the class of a single feature row.
type Classifier interface {
	Predict(row FeatureVector) (Prediction, error)
	Close()
}

// Opener deserializes a classifier from a model file and its metadata.
type Opener func(modelPath string, metadata Metadata) (Classifier, error)

var ErrInvalidMetadata = errors.New("invalid model metadata")

// LoadMetadata reads the JSON sidecar at path. A missing file yields the
// defaults and found == false.
func LoadMetadata(path string) (metadata Metadata, found bool, err error) {
	metadata = DefaultMetadata()
	if path == "" {
		return metadata, false, nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return metadata, false, nil
		}
		return metadata, false, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return metadata, true, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	if err := metadata.validate(); err != nil {
		return metadata, true, err
	}

	return metadata, true, nil
}

func (m Metadata) validate() error {
	if m.InputName == "" || m.LabelName == "" {
		return fmt.Errorf("%w: input_name and label_name are required", ErrInvalidMetadata)
	}

	size := int64(1)
	for _, dim := range m.InputShape {
		size *= dim
	}
	if len(m.InputShape) == 0 || size != NumFeatures {
		return fmt.Errorf("%w: input_shape %v does not hold a single row of %d features",
			ErrInvalidMetadata, m.InputShape, NumFeatures)
	}

	return nil
}
