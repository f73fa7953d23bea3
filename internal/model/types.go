package model

import (
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/samber/lo"
)

// NumFeatures is the width of every feature vector.
const NumFeatures = 4

// FeatureVector holds one row in the order sepal length, sepal width,
// petal length, petal width.
type FeatureVector [NumFeatures]float32

func NewFeatureVector(sepalLength, sepalWidth, petalLength, petalWidth float64) FeatureVector {
	return FeatureVector{
		float32(sepalLength),
		float32(sepalWidth),
		float32(petalLength),
		float32(petalWidth),
	}
}

// Metadata describes the tensors of an exported classifier. It is read from
// a JSON sidecar next to the model; missing fields take the output names
// skl2onnx gives a classifier. The export must be trained on integer targets
// and converted with options={id(clf): {'zipmap': False}} so both outputs
// are plain tensors; Classes maps the integer labels back to names.
type Metadata struct {
	InputName         string   `json:"input_name"`
	LabelName         string   `json:"label_name"`
	ProbabilitiesName string   `json:"probabilities_name"`
	InputShape        []int64  `json:"input_shape"`
	Classes           []string `json:"classes"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputName:         "float_input",
		LabelName:         "output_label",
		ProbabilitiesName: "output_probability",
		InputShape:        []int64{1, NumFeatures},
		Classes:           nil,
	}
}

// Prediction is the single-row result of a classifier call. Classes, when
// set, names the entries of Probabilities in order.
type Prediction struct {
	Label         species.Label
	Probabilities []float32
	Classes       []string
}

// PredictionRequest carries the four slider values. Every feature is
// required and the bounds match the ranges of the form controls.
type PredictionRequest struct {
	SepalLength *float64 `json:"sepal_length" form:"sepal_length" binding:"required,gte=1,lte=8"`
	SepalWidth  *float64 `json:"sepal_width" form:"sepal_width" binding:"required,gte=0.1,lte=4.4"`
	PetalLength *float64 `json:"petal_length" form:"petal_length" binding:"required,gte=0,lte=7"`
	PetalWidth  *float64 `json:"petal_width" form:"petal_width" binding:"required,gte=0,lte=2.5"`
}

// Vector must only be called on a validated request.
func (r PredictionRequest) Vector() FeatureVector {
	return NewFeatureVector(
		lo.FromPtr(r.SepalLength),
		lo.FromPtr(r.SepalWidth),
		lo.FromPtr(r.PetalLength),
		lo.FromPtr(r.PetalWidth),
	)
}

type PredictionResponse struct {
	RequestID   string             `json:"request_id"`
	Status      string             `json:"status"`
	Label       string             `json:"label,omitempty"`
	Species     string             `json:"species,omitempty"`
	Image       string             `json:"image,omitempty"`
	Predictions map[string]float32 `json:"predictions,omitempty"`
	Message     string             `json:"message,omitempty"`
}
