package utils

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUtils_FormatTime(t *testing.T) {
	testCases := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.50s"},
		{2*time.Minute + 3*time.Second, "2m 3.00s"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1h 2m 5.00s"},
		{26*time.Hour + 30*time.Minute, "1d 2h 30m 0.00s"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, FormatTime(tc.in))
	}
}

func TestUtils_DecorateText(t *testing.T) {
	prev := Colorize
	defer func() { Colorize = prev }()

	Colorize = false
	assert.Equal(t, "plain", DecorateText("plain", ErrorMessage))

	Colorize = true
	got := DecorateText("boom", ErrorMessage)
	assert.True(t, strings.HasPrefix(got, ErrorColor))
	assert.True(t, strings.HasSuffix(got, DefaultColor))
}

func TestUtils_MinMaxClamp(t *testing.T) {
	assert.Equal(t, 2, Min(2, 5))
	assert.Equal(t, 2, Min(5, 2))
	assert.Equal(t, 5, Max(2, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestUtils_SpinnerStartStopIsRepeatable(t *testing.T) {
	out := &syncBuffer{}
	s := NewSpinner(out, "working", time.Millisecond, false)

	s.Stop() // stopping an idle spinner must not block
	for i := 0; i < 3; i++ {
		s.Start()
		s.Start()
		time.Sleep(5 * time.Millisecond)
		s.Stop()
	}
	s.StopMsg = "done"
	s.Start()
	s.Stop()

	assert.Contains(t, out.String(), "working")
	assert.True(t, strings.HasSuffix(out.String(), "done"))
}
