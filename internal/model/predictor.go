package model

// Predictor runs single-row predictions against a loaded handle.
type Predictor struct {
	handle *Handle
}

func NewPredictor(handle *Handle) *Predictor {
	return &Predictor{handle: handle}
}

// Predict returns ErrModelNotLoaded without calling into any classifier
// when the handle is not Loaded.
func (p *Predictor) Predict(row FeatureVector) (Prediction, error) {
	classifier, ok := p.handle.Classifier()
	if !ok {
		return Prediction{}, ErrModelNotLoaded
	}

	return classifier.Predict(row)
}
