package scanner

import (
	"errors"
	"image"
	"image/color"
	"time"

	"github.com/anime-shed/grid-scanner-go/internal/config"
	"github.com/anime-shed/grid-scanner-go/pkg/geometry"
)

// fakeCapturer serves synthetic images and a scripted flag-pixel color
// sequence. colorCycle repeats so multi-row scrolls see the same
// baseline/diverge/stabilize pattern per row.
type fakeCapturer struct {
	colorCycle []color.RGBA
	colorCalls int

	// poolReds scripts the red channel of successive flag-pool
	// captures; the last value repeats once the script drains.
	poolReds  []uint8
	poolCalls int

	starColor color.RGBA
	rectErr   error
	colorErr  error

	strip *image.RGBA
}

func (f *fakeCapturer) CaptureRect(region geometry.RectInt) (image.Image, error) {
	if f.rectErr != nil {
		return nil, f.rectErr
	}
	if f.strip != nil && region.Width > 1000 {
		return f.strip, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, region.Width, region.Height))
	if len(f.poolReds) > 0 && region.Height == 1 {
		i := f.poolCalls
		if i >= len(f.poolReds) {
			i = len(f.poolReds) - 1
		}
		f.poolCalls++
		red := f.poolReds[i]
		for x := 0; x < region.Width; x++ {
			img.SetRGBA(x, 0, color.RGBA{R: red, A: 255})
		}
	}
	return img, nil
}

func (f *fakeCapturer) CaptureRelative(region geometry.RectInt, origin geometry.PosInt) (image.Image, error) {
	return f.CaptureRect(region.Translate(origin))
}

func (f *fakeCapturer) CaptureColor(point geometry.PosInt) (color.RGBA, error) {
	if f.colorErr != nil {
		return color.RGBA{}, f.colorErr
	}
	if point == (geometry.PosInt{X: 1400, Y: 225}) {
		return f.starColor, nil
	}
	if len(f.colorCycle) == 0 {
		return color.RGBA{A: 255}, nil
	}
	c := f.colorCycle[f.colorCalls%len(f.colorCycle)]
	f.colorCalls++
	return c, nil
}

// scrollFlagCycle makes every row scroll confirm on the second notch:
// the baseline read sees white, the first post-scroll read diverges,
// the second stabilizes.
func scrollFlagCycle() []color.RGBA {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	return []color.RGBA{white, black, black}
}

// fakeInput records injected input.
type fakeInput struct {
	moves   []geometry.PosInt
	clicks  int
	scrolls []int
	err     error
}

func (f *fakeInput) MoveTo(x, y int) error {
	if f.err != nil {
		return f.err
	}
	f.moves = append(f.moves, geometry.PosInt{X: x, Y: y})
	return nil
}

func (f *fakeInput) Click() error {
	if f.err != nil {
		return f.err
	}
	f.clicks++
	return nil
}

func (f *fakeInput) Scroll(notches int, fast bool) error {
	if f.err != nil {
		return f.err
	}
	f.scrolls = append(f.scrolls, notches)
	return nil
}

// scriptedRecognizer replays prepared responses; once a queue drains
// the last entry repeats, so identical items need only one script.
type scriptedRecognizer struct {
	batches [][]TextResult
	singles []TextResult

	batchIdx  int
	singleIdx int
}

func (r *scriptedRecognizer) Recognize(img image.Image) (string, error) {
	if len(r.singles) == 0 {
		return "", errors.New("no scripted response")
	}
	i := r.singleIdx
	if i >= len(r.singles) {
		i = len(r.singles) - 1
	}
	r.singleIdx++
	res := r.singles[i]
	return res.Text, res.Err
}

func (r *scriptedRecognizer) BatchRecognize(imgs []image.Image) []TextResult {
	if len(r.batches) == 0 {
		out := make([]TextResult, len(imgs))
		for i := range out {
			out[i] = TextResult{Err: errors.New("no scripted response")}
		}
		return out
	}
	i := r.batchIdx
	if i >= len(r.batches) {
		i = len(r.batches) - 1
	}
	r.batchIdx++
	return r.batches[i]
}

func (r *scriptedRecognizer) AverageInferenceTime() (time.Duration, bool) {
	return 0, false
}

// testConfig returns a small grid with every delay zeroed so tests run
// at full speed.
func testConfig() *config.Config {
	return &config.Config{
		Rows:        2,
		Cols:        4,
		MaxRow:      -1,
		CloudMode:   true,
		DisplayMode: config.DisplayStandard,
	}
}

func texts(ss ...string) []TextResult {
	out := make([]TextResult, len(ss))
	for i, s := range ss {
		out[i] = TextResult{Text: s}
	}
	return out
}
