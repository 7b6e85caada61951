package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatternSource_ProducesFrames(t *testing.T) {
	src := NewPatternSource()
	t.Cleanup(func() { _ = src.Close() })

	require.True(t, src.Ready())

	img, err := src.Grab()
	require.NoError(t, err)
	require.Equal(t, FrameWidth, img.Bounds().Dx())
	require.Equal(t, FrameHeight, img.Bounds().Dy())
}

func TestPatternSource_FramesShift(t *testing.T) {
	src := NewPatternSource()

	a, err := src.Grab()
	require.NoError(t, err)
	b, err := src.Grab()
	require.NoError(t, err)

	// The bar shift makes consecutive frames differ at a bar boundary:
	// barWidth is 80, so x=78 sits in bar 0 at shift 1 and bar 1 at shift 2.
	require.NotEqual(t, a.At(78, 0), b.At(78, 0))
}

func TestEncoder_ProducesDecodableJPEG(t *testing.T) {
	src := NewPatternSource()
	img, err := src.Grab()
	require.NoError(t, err)

	var enc Encoder
	data, err := enc.Encode(img)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, FrameWidth, decoded.Bounds().Dx())
	require.Equal(t, FrameHeight, decoded.Bounds().Dy())
}

func TestEncoder_ScalesOddSizes(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1280, 720))

	var enc Encoder
	data, err := enc.Encode(img)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, FrameWidth, decoded.Bounds().Dx())
	require.Equal(t, FrameHeight, decoded.Bounds().Dy())
}

func TestScanMJPEG_SplitsFrames(t *testing.T) {
	frame1 := append(append([]byte{}, jpegSOI...), 0x01, 0x02, 0x03)
	frame1 = append(frame1, jpegEOI...)
	frame2 := append(append([]byte{}, jpegSOI...), 0x04, 0x05)
	frame2 = append(frame2, jpegEOI...)

	stream := append([]byte{0xaa, 0xbb}, frame1...) // leading junk
	stream = append(stream, frame2...)

	var got [][]byte
	err := ScanMJPEG(bytes.NewReader(stream), func(f []byte) {
		got = append(got, f)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, frame1, got[0])
	require.Equal(t, frame2, got[1])
}

func TestScanMJPEG_IncompleteTrailingFrameDropped(t *testing.T) {
	frame := append(append([]byte{}, jpegSOI...), 0x01)
	frame = append(frame, jpegEOI...)
	stream := append(frame, jpegSOI[0], jpegSOI[1], 0x09) // truncated second frame

	var got [][]byte
	err := ScanMJPEG(bytes.NewReader(stream), func(f []byte) {
		got = append(got, f)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, frame, got[0])
}
