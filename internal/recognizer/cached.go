package recognizer

import (
	"encoding/binary"
	"hash/fnv"
	"image"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/anime-shed/grid-scanner-go/internal/scanner"
)

// Cached memoizes recognition results by image content. Paging over a
// partially scrolled grid re-captures cells that were already
// recognized; the cache turns those into hits instead of repeated
// inference.
type Cached struct {
	inner scanner.Recognizer
	cache *lru.Cache[uint64, string]
}

// NewCached wraps a recognizer with an LRU of the given size.
func NewCached(inner scanner.Recognizer, size int) (*Cached, error) {
	cache, err := lru.New[uint64, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Recognize returns a cached result when the image content was seen
// before; only successful recognitions are cached.
func (c *Cached) Recognize(img image.Image) (string, error) {
	key := hashImage(img)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.inner.Recognize(img)
	if err == nil {
		c.cache.Add(key, text)
	}
	return text, err
}

// BatchRecognize serves hits from the cache and forwards only the
// misses to the inner recognizer's batch call.
func (c *Cached) BatchRecognize(imgs []image.Image) []scanner.TextResult {
	out := make([]scanner.TextResult, len(imgs))
	keys := make([]uint64, len(imgs))

	var misses []image.Image
	var missIdx []int
	for i, img := range imgs {
		keys[i] = hashImage(img)
		if text, ok := c.cache.Get(keys[i]); ok {
			out[i] = scanner.TextResult{Text: text}
			continue
		}
		misses = append(misses, img)
		missIdx = append(missIdx, i)
	}

	if len(misses) > 0 {
		for j, res := range c.inner.BatchRecognize(misses) {
			i := missIdx[j]
			out[i] = res
			if res.Err == nil {
				c.cache.Add(keys[i], res.Text)
			}
		}
	}
	return out
}

// AverageInferenceTime reports the inner recognizer's latency; cache
// hits do not count as inference.
func (c *Cached) AverageInferenceTime() (time.Duration, bool) {
	return c.inner.AverageInferenceTime()
}

// hashImage fingerprints image content. Rows are sampled with a small
// stride; field crops are tiny, so collisions across different text are
// not a practical concern.
func hashImage(img image.Image) uint64 {
	h := fnv.New64a()
	bounds := img.Bounds()

	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[:8], uint64(int64(bounds.Dx())))
	binary.LittleEndian.PutUint64(dims[8:], uint64(int64(bounds.Dy())))
	h.Write(dims[:])

	var px [8]byte
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 2 {
			r, g, b, _ := img.At(x, y).RGBA()
			binary.LittleEndian.PutUint32(px[:4], uint32(r>>8)<<16|uint32(g>>8)<<8|uint32(b>>8))
			h.Write(px[:4])
		}
	}
	return h.Sum64()
}
