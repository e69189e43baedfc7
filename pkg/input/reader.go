// Package input implements the dedicated input-reader goroutine (§5): it
// owns the only concurrent actor outside the processing loop, reading
// newline-framed lines from stdin or a connected unix:/path SOCK_SEQPACKET
// socket and handing them across a bounded channel. Adapted from the
// teacher's streamer goroutine/channel/select/ctx idiom.
package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hillu/laurel/pkg/laurelerr"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultMaxLineLength is the overlong-line cutoff (§6) that Open falls back
// to when given a non-positive length. It has the same value as
// token.MaxLineLength, which NewApp passes in.
const DefaultMaxLineLength = 64 * 1024

// Line is one framed input line, or a report that it was truncated.
type Line struct {
	Text      string
	Truncated bool
}

// Reader reads newline-terminated lines from an input source and delivers
// them on a bounded channel, closing the channel on EOF or context
// cancellation.
type Reader struct {
	source        io.ReadCloser
	maxLineLength int
	log           *logrus.Entry
}

// Open resolves spec into a concrete input source: "stdin" (or empty) reads
// os.Stdin; "unix:/path" dials a SOCK_SEQPACKET socket at /path, matching
// the real audisp dispatcher plugin protocol.
func Open(spec string, maxLineLength int, log *logrus.Entry) (*Reader, error) {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	if spec == "" || spec == "stdin" {
		return &Reader{source: os.Stdin, maxLineLength: maxLineLength, log: log}, nil
	}
	path, ok := strings.CutPrefix(spec, "unix:")
	if !ok {
		return nil, laurelerr.New(laurelerr.ConfigInvalid, "input: unrecognized source %q", spec)
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return nil, laurelerr.New(laurelerr.ConfigInvalid, "input: socket: %v", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, laurelerr.New(laurelerr.ConfigInvalid, "input: connect %s: %v", path, err)
	}
	f := os.NewFile(uintptr(fd), path)
	return &Reader{source: f, maxLineLength: maxLineLength, log: log}, nil
}

// Run reads lines until ctx is canceled or the source reaches EOF, sending
// each on lines. The channel is closed before Run returns, signaling the
// processing loop to begin its drain sequence.
func (r *Reader) Run(ctx context.Context, lines chan<- Line) error {
	defer close(lines)
	defer r.source.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	// Closing the source on cancellation unblocks a Scan waiting for input.
	stopClose := context.AfterFunc(ctx, func() { r.source.Close() })
	defer stopClose()

	sc := bufio.NewScanner(r.source)
	// The buffer is sized one byte over the cutoff so truncateLongLines can
	// see that a line exceeded it before cutting it down.
	sc.Buffer(make([]byte, 4096), r.maxLineLength+1)
	sc.Split(truncateLongLines(r.maxLineLength))

	for sc.Scan() {
		text := sc.Text()
		truncated := len(text) > r.maxLineLength
		if truncated {
			text = text[:r.maxLineLength]
			r.log.WithField("length", len(sc.Bytes())).Warn("input line truncated")
		}
		select {
		case lines <- Line{Text: text, Truncated: truncated}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("input: read: %w", err)
	}
	return nil
}

// truncateLongLines is bufio.ScanLines with one change: a line longer than
// maxLen is delivered as a maxLen+1-byte token (Run truncates and flags it)
// instead of the scanner bailing out with bufio.ErrTooLong, per §6's
// "overlong lines truncated and reported" rather than "input rejected".
func truncateLongLines(maxLen int) bufio.SplitFunc {
	skipping := false // mid-line, already past maxLen, discarding until '\n'
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if skipping {
			if i := indexByte(data, '\n'); i >= 0 {
				skipping = false
				return i + 1, nil, nil
			}
			if atEOF {
				return len(data), nil, nil
			}
			return len(data), nil, nil // discard and ask for more
		}
		if i := indexByte(data, '\n'); i >= 0 {
			line := data[:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			return i + 1, line, nil
		}
		if atEOF {
			return len(data), data, nil
		}
		if len(data) > maxLen {
			skipping = true
			return maxLen + 1, data[:maxLen+1], nil
		}
		return 0, nil, nil
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
