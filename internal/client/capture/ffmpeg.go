package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"
)

// FFmpegSource captures frames from a camera device by running ffmpeg as a
// child process emitting an MJPEG stream on stdout. The most recent frame is
// kept; older frames are discarded, matching the "current camera frame"
// semantics of the streaming loop.
type FFmpegSource struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	latest []byte
	err    error
}

// NewFFmpegSource starts ffmpeg against the given device (e.g. /dev/video0)
// and begins collecting frames in the background.
func NewFFmpegSource(device string) (*FFmpegSource, error) {
	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-f", "v4l2",
		"-i", device,
		"-s", fmt.Sprintf("%dx%d", FrameWidth, FrameHeight),
		"-f", "mjpeg",
		"-q:v", "4",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &FFmpegSource{cmd: cmd}
	go s.collect(stdout)
	return s, nil
}

func (s *FFmpegSource) collect(r io.Reader) {
	err := ScanMJPEG(r, func(frame []byte) {
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
	})

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *FFmpegSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest != nil
}

func (s *FFmpegSource) Grab() (image.Image, error) {
	s.mu.Lock()
	frame := s.latest
	err := s.err
	s.mu.Unlock()

	if frame == nil {
		if err != nil {
			return nil, fmt.Errorf("capture stream ended: %w", err)
		}
		return nil, fmt.Errorf("no frame available")
	}
	return jpeg.Decode(bytes.NewReader(frame))
}

// Close terminates the child process and waits for it to exit.
func (s *FFmpegSource) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	// Kill makes Wait report an exit error; that is the expected shutdown
	// path, not a failure.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return err
	}
	return nil
}

// jpeg start-of-image and end-of-image markers delimiting frames in an
// MJPEG byte stream.
var (
	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

// ScanMJPEG reads a concatenated-JPEG stream and invokes onFrame with a copy
// of each complete frame. It returns when the reader is exhausted or fails.
func ScanMJPEG(r io.Reader, onFrame func([]byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(splitJPEGFrames)

	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())
		onFrame(frame)
	}
	return scanner.Err()
}

// splitJPEGFrames is a bufio.SplitFunc yielding one JPEG frame per token,
// delimited by the SOI/EOI marker pair.
func splitJPEGFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, bufio.ErrFinalToken
		}
		// No frame start yet; discard what we have seen so far.
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, bufio.ErrFinalToken
		}
		return start, nil, nil
	}

	frameEnd := start + len(jpegSOI) + end + len(jpegEOI)
	return frameEnd, data[start:frameEnd], nil
}
