package handlers

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	minImageWidth = 16
	maxImageWidth = 2048
)

// Image serves the picture of a canonical species. A width query parameter
// scales it down to the rendering column, keeping the aspect ratio.
func (h *Handler) Image(c *gin.Context) {
	name := c.Param("species")
	if !species.IsCanonical(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown species"})
		return
	}

	res := h.resolver.Resolve(species.TextLabel(name))
	if !res.Found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no image for " + name})
		return
	}

	mtype, err := mimetype.DetectFile(res.Path)
	if err != nil {
		h.logger.Error("Failed to read image", zap.String("path", res.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		h.logger.Warn("Image asset is not an image", zap.String("path", res.Path), zap.String("mime", mtype.String()))
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "asset is not an image"})
		return
	}

	widthParam := c.Query("width")
	if widthParam == "" {
		c.Header("Content-Type", mtype.String())
		c.File(res.Path)
		return
	}

	width, err := strconv.Atoi(widthParam)
	if err != nil || width < minImageWidth || width > maxImageWidth {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width must be an integer between 16 and 2048"})
		return
	}

	data, err := resizeImage(res.Path, uint(width))
	if err != nil {
		h.logger.Error("Failed to resize image", zap.String("path", res.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// resizeImage decodes the file and re-encodes it as JPEG no wider than
// width. Smaller images are not upscaled.
func resizeImage(path string, width uint) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	if uint(img.Bounds().Dx()) > width {
		img = resize.Resize(width, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
