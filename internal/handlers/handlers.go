package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/Brownie44l1/iris-api/internal/inference"
	"github.com/Brownie44l1/iris-api/internal/model"
	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Handler struct {
	service  *inference.Service
	handle   *model.Handle
	resolver *species.Resolver
	logger   *zap.Logger
	tmpl     *template.Template
}

func NewHandler(service *inference.Service, handle *model.Handle, resolver *species.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		handle:   handle,
		resolver: resolver,
		logger:   logger,
		tmpl:     template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(h.tmpl)

	r.GET("/", h.Index)
	r.POST("/predict", h.PredictForm)
	r.GET("/images/:species", h.Image)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/predict", h.Predict)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"model":  h.handle.State().String(),
	})
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", h.newPage(defaultRequest()))
}

// PredictForm handles the "Predict type of Iris" button.
func (h *Handler) PredictForm(c *gin.Context) {
	var req model.PredictionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Invalid prediction form", zap.Error(err))
		page := h.newPage(req)
		page.FormError = describeBindError(err)
		c.HTML(http.StatusBadRequest, "index.html", page)
		return
	}

	out := h.service.Classify(req.Vector())

	page := h.newPage(req)
	page.Result = newResultView(out)
	c.HTML(http.StatusOK, "index.html", page)
}

// Predict is the JSON counterpart of PredictForm.
func (h *Handler) Predict(c *gin.Context) {
	var req model.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": describeBindError(err)})
		return
	}

	out := h.service.Classify(req.Vector())

	resp := model.PredictionResponse{
		RequestID:   out.RequestID,
		Status:      out.Status.String(),
		Label:       out.Label,
		Species:     out.ShortName,
		Predictions: out.Probabilities,
		Message:     out.Message,
	}
	if out.Status == inference.StatusSuccess {
		resp.Image = imageURL(out.ShortName)
	}

	c.JSON(statusCode(out.Status), resp)
}

func statusCode(s inference.Status) int {
	switch s {
	case inference.StatusNotLoaded:
		return http.StatusServiceUnavailable
	case inference.StatusFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func imageURL(short string) string {
	return "/images/" + short
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid input: " + err.Error()
	}

	msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "gte":
			return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "lte":
			return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		default:
			return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
	})
	return "Invalid input: " + strings.Join(msgs, "; ")
}

