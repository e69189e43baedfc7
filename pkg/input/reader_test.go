package input

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringReadCloser struct{ io.Reader }

func (stringReadCloser) Close() error { return nil }

func TestReaderDeliversLines(t *testing.T) {
	r := &Reader{
		source:        stringReadCloser{strings.NewReader("type=SYSCALL msg=audit(1.0:1):\ntype=EOE msg=audit(1.0:1):\n")},
		maxLineLength: DefaultMaxLineLength,
		log:           logrus.NewEntry(logrus.New()),
	}
	ch := make(chan Line, 4)
	require.NoError(t, r.Run(context.Background(), ch))

	var got []Line
	for l := range ch {
		got = append(got, l)
	}
	require.Len(t, got, 2)
	assert.False(t, got[0].Truncated)
}

func TestReaderTruncatesOverlongLines(t *testing.T) {
	long := strings.Repeat("a", 100)
	r := &Reader{
		source:        stringReadCloser{strings.NewReader(long + "\ntype=EOE msg=audit(1.0:1):\n")},
		maxLineLength: 10,
		log:           logrus.NewEntry(logrus.New()),
	}
	ch := make(chan Line, 4)
	require.NoError(t, r.Run(context.Background(), ch))

	var got []Line
	for l := range ch {
		got = append(got, l)
	}
	require.Len(t, got, 2)
	assert.True(t, got[0].Truncated)
	assert.Len(t, got[0].Text, 10)
	assert.Equal(t, "type=EOE msg=audit(1.0:1):", got[1].Text)
}

func TestReaderStopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := &Reader{source: stringReadCloser{pr}, maxLineLength: DefaultMaxLineLength, log: logrus.NewEntry(logrus.New())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Line)
	err := r.Run(ctx, ch)
	assert.Error(t, err)
}
