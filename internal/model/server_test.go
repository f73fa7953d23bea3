package model

import (
	"testing"

	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestCheckOutputs(t *testing.T) {
	stringType := ort.TensorElementDataType(ort.TensorElementDataTypeString)

	tests := []struct {
		description string
		metadata    Metadata
		outputs     []ort.InputOutputInfo
		wantErr     string
	}{
		{
			"Should accept a skl2onnx export without zipmap",
			DefaultMetadata(),
			[]ort.InputOutputInfo{
				{Name: "output_label", Dimensions: ort.NewShape(1), DataType: labelDataType},
				{Name: "output_probability", Dimensions: ort.NewShape(1, 3), DataType: probabilityDataType},
			},
			"",
		},
		{
			"Should reject outputs named differently from the metadata",
			DefaultMetadata(),
			[]ort.InputOutputInfo{
				{Name: "label", DataType: labelDataType},
				{Name: "probabilities", DataType: probabilityDataType},
			},
			`no output named "output_label"`,
		},
		{
			"Should reject a string label",
			DefaultMetadata(),
			[]ort.InputOutputInfo{
				{Name: "output_label", DataType: stringType},
				{Name: "output_probability", DataType: probabilityDataType},
			},
			"train on integer targets",
		},
		{
			"Should reject a missing probability output",
			DefaultMetadata(),
			[]ort.InputOutputInfo{
				{Name: "output_label", DataType: labelDataType},
			},
			`no output named "output_probability"`,
		},
		{
			"Should reject a non float probability output",
			DefaultMetadata(),
			[]ort.InputOutputInfo{
				{Name: "output_label", DataType: labelDataType},
				{Name: "output_probability", DataType: labelDataType},
			},
			"want float",
		},
		{
			"Should skip probabilities when the metadata names none",
			Metadata{InputName: "float_input", LabelName: "output_label", InputShape: []int64{1, 4}},
			[]ort.InputOutputInfo{
				{Name: "output_label", DataType: labelDataType},
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			err := checkOutputs(tt.metadata, tt.outputs)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrUnsupportedModel)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaultMetadata_SKL2ONNXNames(t *testing.T) {
	req := require.New(t)
	m := DefaultMetadata()
	req.Equal("float_input", m.InputName)
	req.Equal("output_label", m.LabelName)
	req.Equal("output_probability", m.ProbabilitiesName)
	req.NoError(m.validate())
}
