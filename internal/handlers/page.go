package handlers

import (
	"sort"
	"strconv"

	"github.com/Brownie44l1/iris-api/internal/inference"
	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/samber/lo"
)

type slider struct {
	Name  string
	Label string
	Min   float64
	Max   float64
	Step  float64
	Value float64
}

func (s slider) Display() string {
	return strconv.FormatFloat(s.Value, 'f', 1, 64)
}

type probabilityView struct {
	Species string
	Percent string
}

type resultView struct {
	RawLabel      string
	ImageURL      string
	Warning       string
	Error         string
	Probabilities []probabilityView
}

type page struct {
	LoadError string
	FormError string
	Sepal     []slider
	Petal     []slider
	Result    *resultView
}

// defaultRequest holds the initial slider positions.
func defaultRequest() model.PredictionRequest {
	return model.PredictionRequest{
		SepalLength: lo.ToPtr(4.0),
		SepalWidth:  lo.ToPtr(3.0),
		PetalLength: lo.ToPtr(1.5),
		PetalWidth:  lo.ToPtr(0.5),
	}
}

// newPage positions the sliders at the values of req. Fields that did not
// bind fall back to the initial positions.
func (h *Handler) newPage(req model.PredictionRequest) page {
	def := defaultRequest()
	value := func(v, fallback *float64) float64 {
		return lo.FromPtrOr(v, *fallback)
	}

	return page{
		LoadError: h.handle.Message(),
		Sepal: []slider{
			{Name: "sepal_length", Label: "Sepal length (cm)", Min: 1.0, Max: 8.0, Step: 0.1, Value: value(req.SepalLength, def.SepalLength)},
			{Name: "sepal_width", Label: "Sepal width (cm)", Min: 0.1, Max: 4.4, Step: 0.1, Value: value(req.SepalWidth, def.SepalWidth)},
		},
		Petal: []slider{
			{Name: "petal_length", Label: "Petal length (cm)", Min: 0.0, Max: 7.0, Step: 0.1, Value: value(req.PetalLength, def.PetalLength)},
			{Name: "petal_width", Label: "Petal width (cm)", Min: 0.0, Max: 2.5, Step: 0.1, Value: value(req.PetalWidth, def.PetalWidth)},
		},
	}
}

func newResultView(out inference.Outcome) *resultView {
	v := &resultView{RawLabel: out.Label}

	switch out.Status {
	case inference.StatusSuccess:
		v.ImageURL = imageURL(out.ShortName)
	case inference.StatusImageMissing:
		v.Warning = out.Message
	default:
		v.Error = out.Message
	}

	for name, p := range out.Probabilities {
		v.Probabilities = append(v.Probabilities, probabilityView{
			Species: name,
			Percent: strconv.FormatFloat(float64(p)*100, 'f', 1, 32) + "%",
		})
	}
	sort.Slice(v.Probabilities, func(i, j int) bool {
		return v.Probabilities[i].Species < v.Probabilities[j].Species
	})

	return v
}
