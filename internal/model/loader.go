package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// State is the lifecycle of a Handle. A handle leaves Unloaded exactly once
// and never changes afterwards.
type State int

const (
	Unloaded State = iota
	Loaded
	FailedToLoad
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case FailedToLoad:
		return "failed_to_load"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrModelNotFound  = errors.New("model file not found")
	ErrModelNotLoaded = errors.New("model is not loaded")
)

// Handle owns the deserialized classifier. It is either fully usable or
// holds the reason it is not.
type Handle struct {
	path       string
	state      State
	classifier Classifier
	err        error
	message    string
}

// Load deserializes the classifier at path. It never fails: a missing or
// unreadable model yields a FailedToLoad handle carrying a message for the
// user, and the details go to the log.
func Load(path, metadataPath string, open Opener, logger *zap.Logger) *Handle {
	h := &Handle{path: path, state: Unloaded}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	if _, err := os.Stat(path); err != nil {
		h.fail(fmt.Errorf("%w: %s: %v", ErrModelNotFound, absPath, err),
			fmt.Sprintf("Model file not found at %s. Put %s in the app folder or update the model path.",
				absPath, filepath.Base(path)))
		logger.Error("Model file not found", zap.String("path", absPath), zap.Error(err))
		return h
	}

	metadata, found, err := LoadMetadata(metadataPath)
	if err != nil {
		h.fail(err, loadFailedMessage)
		logger.Error("Model load FAILED", zap.String("metadata", metadataPath), zap.Error(err), zap.Stack("stack"))
		return h
	}
	if !found {
		logger.Info("No model metadata found, using defaults",
			zap.String("metadata", metadataPath),
			zap.String("input", metadata.InputName),
			zap.String("label", metadata.LabelName))
	}

	classifier, err := open(path, metadata)
	if err != nil {
		h.fail(err, loadFailedMessage)
		logger.Error("Model load FAILED", zap.String("path", absPath), zap.Error(err), zap.Stack("stack"))
		return h
	}

	h.classifier = classifier
	h.state = Loaded
	logger.Info("Model loaded OK",
		zap.String("path", absPath),
		zap.String("type", fmt.Sprintf("%T", classifier)),
		zap.Strings("classes", metadata.Classes))

	return h
}

const loadFailedMessage = "Model failed to load. Check the server logs for full details. " +
	"Likely causes: missing file, corrupted file, or library version mismatch."

func (h *Handle) fail(err error, message string) {
	h.state = FailedToLoad
	h.err = err
	h.message = message
}

func (h *Handle) State() State {
	return h.state
}

func (h *Handle) Path() string {
	return h.path
}

// Err is the load failure, or nil for a loaded handle.
func (h *Handle) Err() error {
	return h.err
}

// Message is the user-facing load failure text, empty when loaded.
func (h *Handle) Message() string {
	return h.message
}

func (h *Handle) Classifier() (Classifier, bool) {
	if h == nil || h.state != Loaded {
		return nil, false
	}
	return h.classifier, true
}

func (h *Handle) Close() {
	if c, ok := h.Classifier(); ok {
		c.Close()
	}
}
