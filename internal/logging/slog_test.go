package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewJSONLogger(buf, slog.LevelDebug), buf
}

func TestSlogLoggerLevels(t *testing.T) {
	l, buf := newBufLogger()
	ctx := context.Background()

	l.Debug(ctx, "d")
	l.Info(ctx, "i", "k", "v")
	l.Warn(ctx, "w")
	l.Error(ctx, "e")

	out := buf.String()
	assert.Contains(t, out, `"msg":"d"`)
	assert.Contains(t, out, `"msg":"i"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"msg":"w"`)
	assert.Contains(t, out, `"msg":"e"`)
}

func TestSlogLoggerWith(t *testing.T) {
	l, buf := newBufLogger()

	child := l.With("component", "store")
	child.Info(context.Background(), "hello")

	assert.Contains(t, buf.String(), `"component":"store"`)
}
