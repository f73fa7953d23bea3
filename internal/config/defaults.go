package config

const (
	DefaultModelPath    = "rf_model.onnx"
	DefaultMetadataPath = "rf_model.json"
	DefaultImagesDir    = "images"
)
