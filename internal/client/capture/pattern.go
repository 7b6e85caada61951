package capture

import (
	"image"
	"image/color"
	"sync/atomic"
)

// patternColors are standard color bars: white, yellow, cyan, green,
// magenta, red, blue, black.
var patternColors = []color.NRGBA{
	{R: 255, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 0, B: 0, A: 255},
}

// PatternSource is a synthetic Source rendering shifting color bars. It
// stands in for a camera in tests and when no device is available; the
// shift between grabs makes consecutive frames distinguishable.
type PatternSource struct {
	frame atomic.Uint64
}

func NewPatternSource() *PatternSource {
	return &PatternSource{}
}

func (p *PatternSource) Ready() bool { return true }

func (p *PatternSource) Grab() (image.Image, error) {
	n := p.frame.Add(1)
	shift := int(n) % FrameWidth

	img := image.NewNRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	barWidth := FrameWidth / len(patternColors)

	for y := 0; y < FrameHeight; y++ {
		for x := 0; x < FrameWidth; x++ {
			barIndex := ((x + shift) % FrameWidth) / barWidth
			if barIndex >= len(patternColors) {
				barIndex = len(patternColors) - 1
			}
			img.SetNRGBA(x, y, patternColors[barIndex])
		}
	}
	return img, nil
}

func (p *PatternSource) Close() error { return nil }
