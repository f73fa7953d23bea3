package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Brownie44l1/iris-api/internal/species"
	ort "github.com/yalue/onnxruntime_go"
)

// Server runs an ONNX classifier export. The input and output tensors are
// allocated once and reused, so Predict calls are serialized.
type Server struct {
	mu                sync.Mutex
	session           *ort.AdvancedSession
	Metadata          Metadata
	inputTensor       *ort.Tensor[float32]
	labelTensor       *ort.Tensor[int64]
	probabilityTensor *ort.Tensor[float32]
	ownsEnvironment   bool
}

// ErrUnsupportedModel is returned when the model outputs cannot be bound to
// the label and probability tensors.
var ErrUnsupportedModel = errors.New("unsupported model export")

var (
	labelDataType       = ort.TensorElementDataType(ort.TensorElementDataTypeInt64)
	probabilityDataType = ort.TensorElementDataType(ort.TensorElementDataTypeFloat)
)

// NewOpener returns an Opener backed by onnxruntime. libraryPath points at
// the onnxruntime shared library; empty keeps the platform default.
func NewOpener(libraryPath string) Opener {
	return func(modelPath string, metadata Metadata) (Classifier, error) {
		s, err := NewServer(modelPath, metadata, libraryPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func NewServer(modelPath string, metadata Metadata, libraryPath string) (*Server, error) {
	ownsEnvironment := false
	if !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		ownsEnvironment = true
	}

	s := &Server{Metadata: metadata, ownsEnvironment: ownsEnvironment}
	if err := s.init(modelPath); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Server) init(modelPath string) error {
	_, outputInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("%w: %v (outputs must be plain tensors, convert with zipmap disabled)",
			ErrUnsupportedModel, err)
	}
	if err := checkOutputs(s.Metadata, outputInfo); err != nil {
		return err
	}

	s.inputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(s.Metadata.InputShape...))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	s.labelTensor, err = ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return fmt.Errorf("failed to create label tensor: %w", err)
	}

	outputNames := []string{s.Metadata.LabelName}
	outputs := []ort.ArbitraryTensor{s.labelTensor}

	if s.Metadata.ProbabilitiesName != "" {
		s.probabilityTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.numClasses())))
		if err != nil {
			return fmt.Errorf("failed to create probability tensor: %w", err)
		}
		outputNames = append(outputNames, s.Metadata.ProbabilitiesName)
		outputs = append(outputs, s.probabilityTensor)
	}

	s.session, err = ort.NewAdvancedSession(modelPath,
		[]string{s.Metadata.InputName}, outputNames,
		[]ort.ArbitraryTensor{s.inputTensor}, outputs,
		nil)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return nil
}

// checkOutputs verifies that the outputs named by metadata exist and carry
// an int64 label and float32 probabilities.
func checkOutputs(metadata Metadata, outputs []ort.InputOutputInfo) error {
	byName := make(map[string]ort.InputOutputInfo, len(outputs))
	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		byName[o.Name] = o
		names = append(names, o.Name)
	}

	label, ok := byName[metadata.LabelName]
	if !ok {
		return fmt.Errorf("%w: no output named %q, model outputs are %v", ErrUnsupportedModel, metadata.LabelName, names)
	}
	if label.DataType != labelDataType {
		return fmt.Errorf("%w: label output %q is %s, want int64 (train on integer targets and list class names in the metadata)",
			ErrUnsupportedModel, label.Name, label.DataType)
	}

	if metadata.ProbabilitiesName == "" {
		return nil
	}
	prob, ok := byName[metadata.ProbabilitiesName]
	if !ok {
		return fmt.Errorf("%w: no output named %q, model outputs are %v", ErrUnsupportedModel, metadata.ProbabilitiesName, names)
	}
	if prob.DataType != probabilityDataType {
		return fmt.Errorf("%w: probability output %q is %s, want float",
			ErrUnsupportedModel, prob.Name, prob.DataType)
	}

	return nil
}

func (s *Server) numClasses() int {
	if len(s.Metadata.Classes) > 0 {
		return len(s.Metadata.Classes)
	}
	return len(species.Names)
}

func (s *Server) Predict(row FeatureVector) (Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), row[:])

	if err := s.session.Run(); err != nil {
		return Prediction{}, fmt.Errorf("inference failed: %w", err)
	}

	idx := s.labelTensor.GetData()[0]
	label := species.IndexLabel(idx)
	if idx >= 0 && int(idx) < len(s.Metadata.Classes) {
		label = species.TextLabel(s.Metadata.Classes[idx])
	}

	var probabilities []float32
	if s.probabilityTensor != nil {
		probabilities = append(probabilities, s.probabilityTensor.GetData()...)
	}

	return Prediction{Label: label, Probabilities: probabilities, Classes: s.Metadata.Classes}, nil
}

func (s *Server) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.labelTensor != nil {
		s.labelTensor.Destroy()
	}
	if s.probabilityTensor != nil {
		s.probabilityTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	if s.ownsEnvironment {
		ort.DestroyEnvironment()
	}
}
