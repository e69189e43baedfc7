package sink

import (
	"io"
	"time"

	"github.com/hillu/laurel/pkg/enrich"
	"github.com/hillu/laurel/pkg/laurelerr"
)

// Writer is the write contract a sink hands enriched, serialized events to.
// Rotation, file ownership/ACLs, and privilege drop are the caller's
// concern (spec's explicit exclusion) — a Writer is just something that
// accepts bytes and can be closed.
type Writer interface {
	io.Writer
	io.Closer
}

// Sink serializes Output values and writes them to an underlying Writer,
// retrying a failed write with backoff before giving up.
type Sink struct {
	w          Writer
	maxRetries int
	backoff    time.Duration

	WriteFailures uint64
	Retries       uint64
}

// New builds a Sink. maxRetries <= 0 means "never retry, fail immediately".
func New(w Writer, maxRetries int, backoff time.Duration) *Sink {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Sink{w: w, maxRetries: maxRetries, backoff: backoff}
}

// Write serializes out and writes it, newline-terminated, retrying on
// failure up to maxRetries with the configured backoff. Once the retry
// budget is exhausted the returned error is marked fatal, per §7's
// SinkWriteFailed policy.
func (s *Sink) Write(out *enrich.Output) error {
	line, err := EncodeEvent(out)
	if err != nil {
		return laurelerr.New(laurelerr.SchemaMismatch, "encode event %s: %v", out.ID, err)
	}
	line = append(line, '\n')

	var writeErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.Retries++
			time.Sleep(s.backoff)
		}
		_, writeErr = s.w.Write(line)
		if writeErr == nil {
			return nil
		}
	}

	s.WriteFailures++
	e := laurelerr.New(laurelerr.SinkWriteFailed, "write event %s after %d attempts: %v", out.ID, s.maxRetries+1, writeErr)
	e.MarkFatal()
	return e
}

// Close closes the underlying Writer, flushing the tracker state file is
// the caller's responsibility (app.App owns that sequencing).
func (s *Sink) Close() error {
	return s.w.Close()
}
