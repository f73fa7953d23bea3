// Package inference runs one user-triggered classification: predict, then
// resolve the species image. Every failure is turned into an Outcome; no
// error or panic escapes to the caller.
package inference

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Status int

const (
	StatusSuccess Status = iota
	StatusImageMissing
	StatusNotLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusImageMissing:
		return "image_missing"
	case StatusNotLoaded:
		return "not_loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the user-facing result of a classification. Label is the raw
// model output as text; ShortName is its normalized species name.
type Outcome struct {
	RequestID     string
	Status        Status
	Label         string
	ShortName     string
	ImagePath     string
	Probabilities map[string]float32
	Message       string
}

// Predictor is satisfied by *model.Predictor.
type Predictor interface {
	Predict(row model.FeatureVector) (model.Prediction, error)
}

type Service struct {
	predictor Predictor
	resolver  *species.Resolver
	logger    *zap.Logger
}

func NewService(predictor Predictor, resolver *species.Resolver, logger *zap.Logger) *Service {
	return &Service{
		predictor: predictor,
		resolver:  resolver,
		logger:    logger,
	}
}

const imageMissingMessage = "No image found for predicted class or mapping failed. " +
	"Predicted label after normalization: %s"

func (s *Service) Classify(row model.FeatureVector) (out Outcome) {
	out.RequestID = uuid.NewString()
	log := s.logger.With(zap.String("request_id", out.RequestID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Prediction failed", zap.Any("panic", r), zap.Stack("stack"))
			out = Outcome{
				RequestID: out.RequestID,
				Status:    StatusFailed,
				Message:   fmt.Sprintf("Prediction failed: %v", r),
			}
		}
	}()

	log.Debug("Predicting", zap.Float32s("features", row[:]))

	prediction, err := s.predictor.Predict(row)
	if err != nil {
		out.Message = fmt.Sprintf("Prediction failed: %v", err)
		if errors.Is(err, model.ErrModelNotLoaded) {
			out.Status = StatusNotLoaded
			log.Warn("Prediction rejected", zap.Error(err))
			return out
		}
		out.Status = StatusFailed
		log.Error("Prediction failed", zap.Error(err), zap.Stack("stack"))
		return out
	}

	out.Label = prediction.Label.String()
	out.Probabilities = namedProbabilities(prediction.Probabilities, prediction.Classes)

	res := s.resolver.Resolve(prediction.Label)
	out.ShortName = res.ShortName
	if !res.Found {
		out.Status = StatusImageMissing
		out.Message = fmt.Sprintf(imageMissingMessage, res.ShortName)
		log.Warn("No image for prediction",
			zap.String("label", out.Label),
			zap.String("kind", prediction.Label.Kind().String()),
			zap.String("short_name", res.ShortName))
		return out
	}

	out.Status = StatusSuccess
	out.ImagePath = res.Path
	log.Info("Prediction",
		zap.String("label", out.Label),
		zap.String("short_name", res.ShortName),
		zap.String("image", res.Path))

	return out
}

// namedProbabilities keys each probability by the short species name of its
// class. Without class names the canonical order is assumed.
func namedProbabilities(probabilities []float32, classes []string) map[string]float32 {
	if len(probabilities) == 0 {
		return nil
	}

	named := make(map[string]float32, len(probabilities))
	for i, p := range probabilities {
		var name string
		switch {
		case i < len(classes):
			name = species.ShortName(species.TextLabel(classes[i]))
		case len(classes) == 0 && i < len(species.Names):
			name = species.Names[i]
		default:
			name = strconv.Itoa(i)
		}
		named[name] = p
	}
	return named
}
