// Package recognizer provides the text-recognition backends behind the
// scan engine's Recognizer port: a Tesseract client plus a memoizing
// wrapper for repeated crops.
package recognizer

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"

	scanerrors "github.com/anime-shed/grid-scanner-go/internal/errors"
	"github.com/anime-shed/grid-scanner-go/internal/scanner"
)

// minOCRHeight is the crop height below which recognition quality
// degrades sharply; smaller crops are upscaled first.
const minOCRHeight = 48

// Tesseract adapts a gosseract client to the Recognizer port. The
// client holds native state and is not safe for concurrent calls, so
// every recognition goes through the mutex.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client

	totalInference time.Duration
	calls          int
}

// NewTesseract starts a recognition client for the given language
// ("eng" when empty).
func NewTesseract(language string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, scanerrors.NewModelLoadError("tesseract language "+language, err)
	}
	return &Tesseract{client: client}, nil
}

// Close releases the native client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

// Recognize converts one image region to text.
func (t *Tesseract) Recognize(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Upscale(img, minOCRHeight)); err != nil {
		return "", scanerrors.NewRecognitionError("image encode", "", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", scanerrors.NewRecognitionError("image load", "", err)
	}
	text, err := t.client.Text()
	t.totalInference += time.Since(start)
	t.calls++

	if err != nil {
		return "", scanerrors.NewRecognitionError("inference", "", err)
	}
	return strings.TrimSpace(text), nil
}

// BatchRecognize recognizes several regions in one pass. The native
// client processes them serially; batching here saves the per-call
// locking and lets callers treat the group as one unit.
func (t *Tesseract) BatchRecognize(imgs []image.Image) []scanner.TextResult {
	out := make([]scanner.TextResult, len(imgs))
	for i, img := range imgs {
		text, err := t.Recognize(img)
		out[i] = scanner.TextResult{Text: text, Err: err}
	}
	return out
}

// AverageInferenceTime reports the rolling mean inference latency.
func (t *Tesseract) AverageInferenceTime() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calls == 0 {
		return 0, false
	}
	return t.totalInference / time.Duration(t.calls), true
}
