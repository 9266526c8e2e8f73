package services

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/pitch/internal/shared"
	tu "github.com/desertthunder/pitch/internal/testing"
)

func texts(frames []Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Text())
	}
	return out
}

func feedAll(chunks ...string) []Frame {
	var p FrameParser
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, p.Feed([]byte(c))...)
	}
	return append(frames, p.Flush()...)
}

func TestFrameParser(t *testing.T) {
	const stream = "data: A\n\ndata: B\n\n"

	t.Run("Single Chunk", func(t *testing.T) {
		assert.Equal(t, []string{"A", "B"}, texts(feedAll(stream)))
	})

	t.Run("Every Two-Way Split", func(t *testing.T) {
		for i := 0; i <= len(stream); i++ {
			got := texts(feedAll(stream[:i], stream[i:]))
			assert.Equal(t, []string{"A", "B"}, got, "split at %d", i)
		}
	})

	t.Run("Every Three-Way Split", func(t *testing.T) {
		for i := 0; i <= len(stream); i++ {
			for j := i; j <= len(stream); j++ {
				got := texts(feedAll(stream[:i], stream[i:j], stream[j:]))
				assert.Equal(t, []string{"A", "B"}, got, "split at %d,%d", i, j)
			}
		}
	})

	t.Run("Byte At A Time", func(t *testing.T) {
		chunks := make([]string, 0, len(stream))
		for i := range len(stream) {
			chunks = append(chunks, stream[i:i+1])
		}
		assert.Equal(t, []string{"A", "B"}, texts(feedAll(chunks...)))
	})

	t.Run("Frames Surface As Soon As Complete", func(t *testing.T) {
		var p FrameParser

		assert.Empty(t, p.Feed([]byte("data: A\n")))
		assert.Equal(t, []string{"A"}, texts(p.Feed([]byte("\ndata: B"))))
		assert.Equal(t, len("data: B"), p.pending())
		assert.Equal(t, []string{"B"}, texts(p.Feed([]byte("\n\n"))))
		assert.Zero(t, p.pending())
	})

	t.Run("Event Lines", func(t *testing.T) {
		frames := feedAll("event: status\ndata: Connecting...\n\nevent: error\ndata: -> Error: bounce\n\nevent: done\ndata: Finished.\n\n")
		require.Len(t, frames, 3)

		assert.Equal(t, Frame{Event: EventStatus, Data: "Connecting..."}, frames[0])
		assert.True(t, frames[1].IsError())
		assert.Equal(t, "-> Error: bounce", frames[1].Text())
		assert.Equal(t, EventDone, frames[2].Event)
	})

	t.Run("CRLF Separators", func(t *testing.T) {
		frames := feedAll("event: status\r\ndata: one\r\n\r\n", "data: two\r\n\r\n")
		assert.Equal(t, []string{"one", "two"}, texts(frames))
		assert.Equal(t, EventStatus, frames[0].Event)
	})

	t.Run("Multi-Line Data", func(t *testing.T) {
		frames := feedAll("data: first\ndata: second\n\n")
		require.Len(t, frames, 1)
		assert.Equal(t, "first\nsecond", frames[0].Data)
	})

	t.Run("Frames Without Data Are Skipped", func(t *testing.T) {
		frames := feedAll(": keep-alive\n\nevent: status\n\ndata: real\n\n")
		assert.Equal(t, []string{"real"}, texts(frames))
	})

	t.Run("Trailing Frame Without Terminator", func(t *testing.T) {
		var p FrameParser
		assert.Equal(t, []string{"A"}, texts(p.Feed([]byte("data: A\n\ndata: tail"))))
		assert.Equal(t, []string{"tail"}, texts(p.Flush()))
		assert.Zero(t, p.pending())
		assert.Empty(t, p.Flush())
	})

	t.Run("Whitespace Is Trimmed From Text", func(t *testing.T) {
		frames := feedAll("data:   padded  \n\n")
		assert.Equal(t, []string{"padded"}, texts(frames))
	})
}

func TestFrameReader(t *testing.T) {
	t.Run("Delivers Frames In Order", func(t *testing.T) {
		r := tu.NewChunkReader("data: o", "ne\n\nevent: success\ndata: two\n", "\ndata: three")

		var got []Frame
		err := NewFrameReader(r, 0).Each(func(f Frame) { got = append(got, f) })
		require.NoError(t, err)

		assert.Equal(t, []string{"one", "two", "three"}, texts(got))
		assert.Equal(t, EventSuccess, got[1].Event)
		assert.True(t, r.Closed)
	})

	t.Run("Read Failure Is A Transport Error", func(t *testing.T) {
		r := tu.NewChunkReader("data: partial\n\n")
		r.Err = io.ErrUnexpectedEOF

		var got []string
		err := NewFrameReader(r, 0).Each(func(f Frame) { got = append(got, f.Text()) })
		require.Error(t, err)

		assert.ErrorIs(t, err, shared.ErrTransport)
		assert.Equal(t, []string{"partial"}, got)
		assert.True(t, r.Closed)
	})

	t.Run("Idle Timeout", func(t *testing.T) {
		pr, pw := io.Pipe()
		go func() {
			pw.Write([]byte("data: first\n\n"))
		}()

		var got []string
		err := NewFrameReader(pr, 30*time.Millisecond).Each(func(f Frame) { got = append(got, f.Text()) })
		require.Error(t, err)

		assert.ErrorIs(t, err, shared.ErrTransport)
		assert.True(t, errors.Is(err, ErrIdleTimeout))
		assert.Equal(t, []string{"first"}, got)
	})
}
