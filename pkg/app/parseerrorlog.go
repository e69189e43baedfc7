package app

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hillu/laurel/pkg/config"
)

// ParseErrorLog is the §7 sampled parse-error sink: every malformed line is
// counted, but only a sample reaches the configured file once an initial
// burst has been spent, via a simple token-bucket. A background goroutine
// periodically drains the buffer to disk so the processing loop never
// blocks on file I/O for a merely-informational log.
type ParseErrorLog struct {
	mu    sync.Mutex
	buf   []string
	count int
	burst int
	every int
	file  *os.File

	stop chan struct{}
	done chan struct{}
}

const parseErrorBurst = 10

// NewParseErrorLog opens cfg.File (if set) and prepares the sampler.
// cfg.SampleRate <= 1 keeps every error.
func NewParseErrorLog(cfg config.ParseErrorLogConfig) (*ParseErrorLog, error) {
	p := &ParseErrorLog{burst: parseErrorBurst, every: cfg.SampleRate}
	if p.every < 1 {
		p.every = 1
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("parse-error-log: open %s: %w", cfg.File, err)
		}
		p.file = f
	}
	return p, nil
}

// Sample records one parse error, keeping it for the flush buffer per the
// burst-then-1-in-N policy.
func (p *ParseErrorLog) Sample(rawLine string, offset int, reason string) {
	if p.file == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	if p.count <= p.burst || p.count%p.every == 0 {
		p.buf = append(p.buf, fmt.Sprintf("offset=%d reason=%q line=%q", offset, reason, rawLine))
	}
}

// StartFlush starts the background goroutine that drains the buffer to disk
// every interval. Close stops it. Must not be called more than once.
func (p *ParseErrorLog) StartFlush(interval time.Duration) {
	if p.file == nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.flush()
			case <-p.stop:
				p.flush()
				return
			}
		}
	}()
}

func (p *ParseErrorLog) flush() {
	p.mu.Lock()
	lines := p.buf
	p.buf = nil
	p.mu.Unlock()

	if len(lines) == 0 || p.file == nil {
		return
	}
	w := bufio.NewWriter(p.file)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	w.Flush()
}

// Close stops the flush goroutine (if running) and closes the file.
func (p *ParseErrorLog) Close() error {
	if p.file == nil {
		return nil
	}
	if p.stop != nil {
		close(p.stop)
		<-p.done
	} else {
		p.flush()
	}
	return p.file.Close()
}
