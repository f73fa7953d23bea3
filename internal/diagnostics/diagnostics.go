// Package diagnostics inspects the model artifact, the runtime and the
// image assets at startup. Nothing it finds changes program behavior; every
// result, failures included, is only logged.
package diagnostics

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/Brownie44l1/iris-api/internal/species"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"lukechampine.com/blake3"
)

const (
	headerScanBytes = 2000
	markerWindow    = 60
	maxHeaderParse  = 256 << 20
	runtimeModule   = "github.com/yalue/onnxruntime_go"
)

// versionMarkers are byte strings that exporters embed next to the version
// of the library that produced the file.
var versionMarkers = [][]byte{
	[]byte("_sklearn_version"),
	[]byte("skl2onnx"),
}

type ImageCheck struct {
	Species  string
	Path     string
	Exists   bool
	MIME     string
	Width    int
	Height   int
	ErrorMsg string
}

// Report is everything Run found. The diagnose command prints it; the
// server ignores it.
type Report struct {
	WorkingDir     string
	AbsModelPath   string
	Exists         bool
	Size           int64
	SHA256         string
	BLAKE3         string
	HeaderSnippet  string
	Header         *ONNXHeader
	GoVersion      string
	RuntimeBinding string
	ProcessRSS     uint64
	Images         []ImageCheck
}

func Run(modelPath string, resolver *species.Resolver, logger *zap.Logger) Report {
	var r Report

	logger.Info("STARTUP CHECK")

	cwd, err := os.Getwd()
	if err != nil {
		logger.Error("could not read working directory", zap.Error(err))
	}
	r.WorkingDir = cwd

	r.AbsModelPath, err = filepath.Abs(modelPath)
	if err != nil {
		r.AbsModelPath = modelPath
	}

	info, err := os.Stat(modelPath)
	r.Exists = err == nil && !info.IsDir()
	logger.Info("model file",
		zap.String("cwd", r.WorkingDir),
		zap.String("abs_path", r.AbsModelPath),
		zap.Bool("exists", r.Exists))

	r.GoVersion = runtime.Version()
	r.RuntimeBinding = moduleVersion(runtimeModule)
	logger.Info("runtime",
		zap.String("go", r.GoVersion),
		zap.String("onnxruntime_go", r.RuntimeBinding),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))

	if rss, err := processRSS(); err != nil {
		logger.Warn("process stats unavailable", zap.Error(err))
	} else {
		r.ProcessRSS = rss
		logger.Info("process memory", zap.Uint64("rss_bytes", rss))
	}

	if r.Exists {
		r.Size = info.Size()
		logger.Info("model size", zap.Int64("bytes", r.Size))

		if r.SHA256, r.BLAKE3, err = Checksums(modelPath); err != nil {
			logger.Error("checksum read error", zap.Error(err))
		} else {
			logger.Info("model checksums", zap.String("sha256", r.SHA256), zap.String("blake3", r.BLAKE3))
		}
	}

	snippet, found, err := ReadVersionMarker(modelPath)
	switch {
	case err != nil:
		r.HeaderSnippet = fmt.Sprintf("read error: %v", err)
	case found:
		r.HeaderSnippet = snippet
	}
	logger.Info("model header snippet", zap.String("snippet", r.HeaderSnippet), zap.Bool("found", found))

	if r.Exists {
		if header, err := readONNXHeader(modelPath, r.Size); err != nil {
			logger.Error("model header parse error", zap.Error(err))
		} else {
			r.Header = &header
			logger.Info("model header",
				zap.Int64("ir_version", header.IRVersion),
				zap.String("producer", header.ProducerName),
				zap.String("producer_version", header.ProducerVersion),
				zap.String("domain", header.Domain),
				zap.Int64("model_version", header.ModelVersion),
				zap.Any("opsets", header.Opsets))
		}
	}

	if resolver != nil {
		r.Images = CheckImages(resolver)
		for _, img := range r.Images {
			fields := []zap.Field{
				zap.String("species", img.Species),
				zap.String("path", img.Path),
				zap.Bool("exists", img.Exists),
			}
			if img.ErrorMsg != "" {
				logger.Warn("image asset problem", append(fields, zap.String("error", img.ErrorMsg))...)
				continue
			}
			logger.Info("image asset", append(fields,
				zap.String("mime", img.MIME),
				zap.Int("width", img.Width),
				zap.Int("height", img.Height))...)
		}
	}

	return r
}

// Checksums streams the file once through SHA-256 and BLAKE3.
func Checksums(path string) (sha, b3 string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	sh := sha256.New()
	bh := blake3.New(32, nil)
	if _, err := io.CopyBuffer(io.MultiWriter(sh, bh), f, make([]byte, 8192)); err != nil {
		return "", "", err
	}

	return hex.EncodeToString(sh.Sum(nil)), hex.EncodeToString(bh.Sum(nil)), nil
}

// ReadVersionMarker scans the first bytes of path for a known version
// marker and returns the window that starts at it. Undecodable bytes are
// replaced.
func ReadVersionMarker(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	buf := make([]byte, headerScanBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", false, err
	}
	buf = buf[:n]

	for _, marker := range versionMarkers {
		idx := bytes.Index(buf, marker)
		if idx == -1 {
			continue
		}
		end := min(idx+markerWindow, len(buf))
		return strings.ToValidUTF8(string(buf[idx:end]), "\uFFFD"), true, nil
	}

	return "", false, nil
}

func readONNXHeader(path string, size int64) (ONNXHeader, error) {
	if size > maxHeaderParse {
		return ONNXHeader{}, fmt.Errorf("model is %d bytes, header parse limited to %d", size, maxHeaderParse)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ONNXHeader{}, err
	}
	return ParseONNXHeader(data)
}

// CheckImages verifies every mapped species image: presence, sniffed MIME
// type and pixel dimensions.
func CheckImages(resolver *species.Resolver) []ImageCheck {
	checks := make([]ImageCheck, 0, len(species.Names))
	for _, name := range species.Names {
		path, _ := resolver.Path(name)
		checks = append(checks, checkImage(name, path))
	}
	return checks
}

func checkImage(name, path string) ImageCheck {
	c := ImageCheck{Species: name, Path: path}

	if _, err := os.Stat(path); err != nil {
		c.ErrorMsg = err.Error()
		return c
	}
	c.Exists = true

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		c.ErrorMsg = err.Error()
		return c
	}
	c.MIME = mtype.String()

	f, err := os.Open(path)
	if err != nil {
		c.ErrorMsg = err.Error()
		return c
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		c.ErrorMsg = fmt.Sprintf("decode %s: %v", c.MIME, err)
		return c
	}
	c.Width, c.Height = cfg.Width, cfg.Height

	return c
}

func processRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}

func moduleVersion(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == path {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "unknown"
}
