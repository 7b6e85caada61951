// Package capture provides camera frame acquisition and the fixed-size JPEG
// encoding step feeding the streaming path.
package capture

import (
	"bytes"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// Output raster dimensions and JPEG quality for transmitted frames. These
// match what the detection service is tuned for.
const (
	FrameWidth  = 640
	FrameHeight = 480
	JPEGQuality = 70
)

// Source produces camera frames.
//
// Contract:
//   - Ready reports whether a frame is currently available; the capture loop
//     checks it every tick and skips the tick otherwise.
//   - Grab returns the most recent frame. It must only be called when Ready
//     returned true.
//   - Close releases the underlying device.
type Source interface {
	Ready() bool
	Grab() (image.Image, error)
	Close() error
}

// Encoder scales frames to the fixed output size and compresses them to
// JPEG. The destination buffer is reused across frames, so the returned
// slice is only valid until the next Encode call. The streaming path never
// runs two encodes at once.
type Encoder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Encode scales img to 640×480 and returns the JPEG bytes at quality 70.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scaled := img
	if b := img.Bounds(); b.Dx() != FrameWidth || b.Dy() != FrameHeight {
		scaled = imaging.Resize(img, FrameWidth, FrameHeight, imaging.Linear)
	}

	e.buf.Reset()
	if err := imaging.Encode(&e.buf, scaled, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}
