package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/desertthunder/pitch/internal/shared"
)

// Event types the send stream is known to emit.
const (
	EventStatus  = "status"
	EventSuccess = "success"
	EventError   = "error"
	EventWarning = "warning"
	EventDone    = "done"
)

// ErrIdleTimeout is returned by [FrameReader.Each] when the stream goes quiet for longer than the idle timeout.
var ErrIdleTimeout = errors.New("send stream idle timeout")

// Frame is one complete message of the send stream.
type Frame struct {
	Event string // empty when the frame had no event line
	Data  string // data lines joined with "\n"
}

// Text is the display text of the frame.
func (f Frame) Text() string {
	return strings.TrimSpace(f.Data)
}

// IsError reports whether the backend flagged this frame as a failure.
func (f Frame) IsError() bool {
	return f.Event == EventError
}

// FrameParser reassembles frames from arbitrarily chunked bytes.
//
// Frames end with a blank line. Bytes after the last blank line are held until
// the next Feed, so every complete frame is returned exactly once and in order.
// The zero value is ready to use.
type FrameParser struct {
	buf []byte
}

// Feed appends chunk and returns the frames it completed.
func (p *FrameParser) Feed(chunk []byte) []Frame {
	p.buf = append(p.buf, chunk...)

	var frames []Frame
	consumed := 0
	for {
		idx, n := frameBoundary(p.buf[consumed:])
		if idx < 0 {
			break
		}
		if f, ok := parseFrame(p.buf[consumed : consumed+idx]); ok {
			frames = append(frames, f)
		}
		consumed += idx + n
	}

	if consumed > 0 {
		rest := len(p.buf) - consumed
		copy(p.buf, p.buf[consumed:])
		p.buf = p.buf[:rest]
	}
	return frames
}

// Flush returns the unterminated trailing frame, if it carries data, and resets the parser.
func (p *FrameParser) Flush() []Frame {
	defer func() { p.buf = p.buf[:0] }()

	if len(bytes.TrimSpace(p.buf)) == 0 {
		return nil
	}
	if f, ok := parseFrame(p.buf); ok {
		return []Frame{f}
	}
	return nil
}

// pending returns how many bytes are buffered awaiting a frame boundary.
func (p *FrameParser) pending() int {
	return len(p.buf)
}

// frameBoundary finds the earliest blank line, returning its offset and separator width.
func frameBoundary(b []byte) (int, int) {
	lf := bytes.Index(b, []byte("\n\n"))
	crlf := bytes.Index(b, []byte("\r\n\r\n"))

	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return lf, 2
	default:
		return crlf, 4
	}
}

func parseFrame(block []byte) (Frame, bool) {
	var (
		f       Frame
		data    []string
		hasData bool
	)

	for line := range strings.SplitSeq(string(block), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			f.Event = strings.TrimSpace(value)
		case "data":
			data = append(data, value)
			hasData = true
		}
	}

	if !hasData {
		return Frame{}, false
	}
	f.Data = strings.Join(data, "\n")
	return f, true
}

// FrameReader drains a send stream through a [FrameParser].
type FrameReader struct {
	r       io.ReadCloser
	parser  FrameParser
	idle    time.Duration
	bufSize int
}

// NewFrameReader wraps r. An idle of zero waits on the stream indefinitely.
func NewFrameReader(r io.ReadCloser, idle time.Duration) *FrameReader {
	return &FrameReader{r: r, idle: idle, bufSize: 4096}
}

// Each calls fn for every frame in arrival order until the stream ends.
//
// A clean EOF returns nil after flushing any trailing frame. Read failures wrap
// [shared.ErrTransport]. The stream is closed on return.
func (fr *FrameReader) Each(fn func(Frame)) error {
	defer fr.r.Close()

	var timer *time.Timer
	var expired atomic.Bool
	if fr.idle > 0 {
		timer = time.AfterFunc(fr.idle, func() {
			expired.Store(true)
			fr.r.Close()
		})
		defer timer.Stop()
	}

	buf := make([]byte, fr.bufSize)
	for {
		n, err := fr.r.Read(buf)
		if n > 0 {
			if timer != nil {
				timer.Reset(fr.idle)
			}
			for _, f := range fr.parser.Feed(buf[:n]) {
				fn(f)
			}
		}

		switch {
		case err == nil:
			continue
		case expired.Load():
			return fmt.Errorf("%w: %w after %s", shared.ErrTransport, ErrIdleTimeout, fr.idle)
		case errors.Is(err, io.EOF):
			for _, f := range fr.parser.Flush() {
				fn(f)
			}
			return nil
		default:
			return transportError(err)
		}
	}
}
