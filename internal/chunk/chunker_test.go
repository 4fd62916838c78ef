package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 512, 64, false},
		{"zero overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)
	assert.Empty(t, c.Split(""))
}

func TestSplitShortInput(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	spans := c.Split("hello world")
	require.Len(t, spans, 1)
	assert.Equal(t, "hello world", spans[0])
}

func TestSplitOverlapLaw(t *testing.T) {
	const size, overlap = 10, 3
	c, err := New(size, overlap)
	require.NoError(t, err)

	// No separators at all, so every cut is a raw character cut.
	text := strings.Repeat("x", 7) + strings.Repeat("y", 7) + strings.Repeat("z", 13)
	spans := c.Split(text)
	require.Greater(t, len(spans), 1)

	for i := 1; i < len(spans); i++ {
		prev := []rune(spans[i-1])
		next := []rune(spans[i])
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(next[:overlap]),
			"consecutive spans must share exactly %d characters", overlap)
	}
	for _, span := range spans {
		assert.LessOrEqual(t, len([]rune(span)), size)
	}
}

func TestSplitReconstructsOriginal(t *testing.T) {
	c, err := New(16, 4)
	require.NoError(t, err)

	text := "First paragraph here.\n\nSecond one follows. It has two sentences.\nAnd a final line."
	spans := c.Split(text)
	require.NotEmpty(t, spans)

	var b strings.Builder
	b.WriteString(spans[0])
	for _, span := range spans[1:] {
		b.WriteString(string([]rune(span)[4:]))
	}
	assert.Equal(t, text, b.String())
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	// The window contains a paragraph break and several word breaks; the
	// paragraph break must win even though word breaks occur later.
	spans := c.Split("ab cd\n\nef gh ij kl mn op")
	require.Greater(t, len(spans), 1)
	assert.True(t, strings.HasSuffix(spans[0], "\n\n"),
		"first span should end at the paragraph break, got %q", spans[0])
}

func TestSplitPrefersSentenceBreakOverWordBreak(t *testing.T) {
	c, err := New(20, 4)
	require.NoError(t, err)

	spans := c.Split("Hello there. General Kenobi said hi")
	require.Greater(t, len(spans), 1)
	assert.Equal(t, "Hello there. ", spans[0])
}

func TestSplitFallsBackToCharacterCut(t *testing.T) {
	c, err := New(8, 2)
	require.NoError(t, err)

	// One unbroken run of characters: only raw cuts are possible.
	spans := c.Split(strings.Repeat("a", 20))
	require.Greater(t, len(spans), 1)
	for _, span := range spans {
		assert.LessOrEqual(t, len(span), 8)
	}
}

func TestSplitHandlesMultibyteRunes(t *testing.T) {
	c, err := New(6, 2)
	require.NoError(t, err)

	text := "日本語のテキストを分割する"
	spans := c.Split(text)
	require.NotEmpty(t, spans)

	var b strings.Builder
	b.WriteString(spans[0])
	for _, span := range spans[1:] {
		b.WriteString(string([]rune(span)[2:]))
	}
	assert.Equal(t, text, b.String())
}
