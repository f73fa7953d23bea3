package inference

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/Brownie44l1/iris-api/internal/model/mocks"
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// workspace switches into a temp dir holding a model file and the setosa
// image, laid out as the server expects them.
func workspace(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.Mkdir("images", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("images", "setosa.jpg"), []byte{0xFF, 0xD8, 0xFF}, 0o644))
	require.NoError(t, os.WriteFile("rf_model.onnx", []byte("onnx"), 0o644))
}

func loadedPredictor(t *testing.T, classifier model.Classifier) *model.Predictor {
	t.Helper()
	open := func(string, model.Metadata) (model.Classifier, error) {
		return classifier, nil
	}
	h := model.Load("rf_model.onnx", "", open, zap.NewNop())
	require.Equal(t, model.Loaded, h.State())
	return model.NewPredictor(h)
}

func TestClassify_EndToEndSetosa(t *testing.T) {
	req := require.New(t)
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)

	classifier.EXPECT().
		Predict(model.NewFeatureVector(5.1, 3.5, 1.4, 0.2)).
		Return(model.Prediction{
			Label:         species.TextLabel("Iris-setosa"),
			Probabilities: []float32{0.97, 0.02, 0.01},
		}, nil)

	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.NewNop())
	out := svc.Classify(model.NewFeatureVector(5.1, 3.5, 1.4, 0.2))

	req.Equal(StatusSuccess, out.Status)
	req.Equal("Iris-setosa", out.Label)
	req.Equal("setosa", out.ShortName)
	req.Equal("images/setosa.jpg", filepath.ToSlash(out.ImagePath))
	req.Equal(float32(0.97), out.Probabilities["setosa"])
	req.Len(out.Probabilities, 3)
	req.NotEmpty(out.RequestID)
	req.Empty(out.Message)
}

func TestClassify_ProbabilitiesFollowClassOrder(t *testing.T) {
	req := require.New(t)
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)

	classifier.EXPECT().
		Predict(gomock.Any()).
		Return(model.Prediction{
			Label:         species.TextLabel("Iris-setosa"),
			Probabilities: []float32{0.1, 0.8, 0.1},
			Classes:       []string{"Iris-virginica", "Iris-setosa", "Iris-versicolor"},
		}, nil)

	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.NewNop())
	out := svc.Classify(model.NewFeatureVector(5.1, 3.5, 1.4, 0.2))

	req.Equal(StatusSuccess, out.Status)
	req.Equal(float32(0.8), out.Probabilities["setosa"])
	req.Equal(float32(0.1), out.Probabilities["virginica"])
	req.Equal(float32(0.1), out.Probabilities["versicolor"])
}

func TestNamedProbabilities(t *testing.T) {
	req := require.New(t)

	req.Nil(namedProbabilities(nil, nil))
	req.Equal(map[string]float32{"setosa": 0.5, "versicolor": 0.3, "virginica": 0.2},
		namedProbabilities([]float32{0.5, 0.3, 0.2}, nil))
	req.Equal(map[string]float32{"virginica": 0.6, "1": 0.4},
		namedProbabilities([]float32{0.6, 0.4}, []string{"Iris-virginica"}))
}

func TestClassify_VectorOrderAcrossBounds(t *testing.T) {
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.NewNop())

	tests := []struct {
		description                    string
		sepalL, sepalW, petalL, petalW float64
	}{
		{"Should pass lower bounds", 1.0, 0.1, 0.0, 0.0},
		{"Should pass defaults", 4.0, 3.0, 1.5, 0.5},
		{"Should pass upper bounds", 8.0, 4.4, 7.0, 2.5},
		{"Should pass mixed values", 6.3, 2.9, 5.6, 1.8},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			want := model.FeatureVector{float32(tt.sepalL), float32(tt.sepalW), float32(tt.petalL), float32(tt.petalW)}
			classifier.EXPECT().
				Predict(want).
				Return(model.Prediction{Label: species.IndexLabel(0)}, nil)

			out := svc.Classify(model.NewFeatureVector(tt.sepalL, tt.sepalW, tt.petalL, tt.petalW))
			require.Equal(t, StatusSuccess, out.Status)
		})
	}
}

func TestClassify_NotLoaded(t *testing.T) {
	req := require.New(t)
	chdir(t, t.TempDir())
	core, logs := observer.New(zapcore.DebugLevel)

	h := model.Load("rf_model.onnx", "", func(string, model.Metadata) (model.Classifier, error) {
		t.Fatal("opener must not run")
		return nil, nil
	}, zap.NewNop())
	svc := NewService(model.NewPredictor(h), species.NewResolver("images"), zap.New(core))

	out := svc.Classify(model.NewFeatureVector(4, 3, 1.5, 0.5))
	req.Equal(StatusNotLoaded, out.Status)
	req.Equal("Prediction failed: model is not loaded", out.Message)
	req.Empty(out.Label)
	req.Equal(1, logs.FilterMessage("Prediction rejected").Len())
}

func TestClassify_CorruptModelFailsEveryTime(t *testing.T) {
	req := require.New(t)
	workspace(t)
	require.NoError(t, os.WriteFile("rf_model.onnx", []byte("garbage"), 0o644))

	h := model.Load("rf_model.onnx", "", func(string, model.Metadata) (model.Classifier, error) {
		return nil, errors.New("failed to create ONNX session: invalid protobuf")
	}, zap.NewNop())
	req.Equal(model.FailedToLoad, h.State())

	svc := NewService(model.NewPredictor(h), species.NewResolver("images"), zap.NewNop())
	for i := 0; i < 3; i++ {
		out := svc.Classify(model.NewFeatureVector(5, 3, 1, 0.2))
		req.Equal(StatusNotLoaded, out.Status)
		req.NotEmpty(out.Message)
	}
}

func TestClassify_InvocationError(t *testing.T) {
	req := require.New(t)
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	core, logs := observer.New(zapcore.DebugLevel)

	classifier.EXPECT().Predict(gomock.Any()).
		Return(model.Prediction{}, errors.New("inference failed: shape mismatch"))

	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.New(core))
	out := svc.Classify(model.NewFeatureVector(5, 3, 1, 0.2))

	req.Equal(StatusFailed, out.Status)
	req.Equal("Prediction failed: inference failed: shape mismatch", out.Message)
	failed := logs.FilterMessage("Prediction failed").All()
	req.Len(failed, 1)
	req.NotEmpty(failed[0].ContextMap()["stack"])
}

func TestClassify_PanicIsRecovered(t *testing.T) {
	req := require.New(t)
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)

	classifier.EXPECT().Predict(gomock.Any()).
		DoAndReturn(func(model.FeatureVector) (model.Prediction, error) {
			panic("index out of range")
		})

	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.NewNop())

	var out Outcome
	req.NotPanics(func() { out = svc.Classify(model.NewFeatureVector(5, 3, 1, 0.2)) })
	req.Equal(StatusFailed, out.Status)
	req.Equal("Prediction failed: index out of range", out.Message)
	req.NotEmpty(out.RequestID)
}

func TestClassify_ImageMissing(t *testing.T) {
	workspace(t)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	svc := NewService(loadedPredictor(t, classifier), species.NewResolver("images"), zap.NewNop())

	tests := []struct {
		description string
		label       species.Label
		wantShort   string
	}{
		{"Should warn on an unmapped index", species.TextLabel("99"), "99"},
		{"Should warn on an unknown species", species.TextLabel("Iris-rosea"), "rosea"},
		{"Should warn when the image file is absent", species.IndexLabel(2), "virginica"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			classifier.EXPECT().Predict(gomock.Any()).Return(model.Prediction{Label: tt.label}, nil)

			out := svc.Classify(model.NewFeatureVector(5, 3, 1, 0.2))
			require.Equal(t, StatusImageMissing, out.Status)
			require.Equal(t, tt.wantShort, out.ShortName)
			require.Empty(t, out.ImagePath)
			require.Contains(t, out.Message, "Predicted label after normalization: "+tt.wantShort)
		})
	}
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "success", StatusSuccess.String())
	require.Equal(t, "image_missing", StatusImageMissing.String())
	require.Equal(t, "not_loaded", StatusNotLoaded.String())
	require.Equal(t, "failed", StatusFailed.String())
}
