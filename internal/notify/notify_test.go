package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	Error(c, "claim failed")
	Success(c, "submitted")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[error]")
	assert.Contains(t, lines[0], "claim failed")
	assert.Contains(t, lines[1], "[success]")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	Warning(r, "slow down")
	Info(r, "hello")

	assert.Equal(t, []Message{{LevelWarning, "slow down"}, {LevelInfo, "hello"}}, r.Messages())

	r.Reset()
	assert.Empty(t, r.Messages())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Error(Discard, "ignored") })
}
