package speech

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	calls int
	texts []string
	voice Voice
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, voice Voice) ([]byte, error) {
	f.calls++
	f.texts = append(f.texts, text)
	f.voice = voice
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3-audio:" + text), nil
}

func TestGetOrSynthesize_CachesByText(t *testing.T) {
	synth := &fakeSynth{}
	cache, err := NewCache(t.TempDir(), synth, nil)
	require.NoError(t, err)

	ctx := context.Background()
	text := "## The **Void** stirs_"

	first, err := cache.GetOrSynthesize(ctx, text)
	require.NoError(t, err)
	second, err := cache.GetOrSynthesize(ctx, text)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, []string{" The Void stirs"}, synth.texts)
	assert.Equal(t, DefaultVoice, synth.voice)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio: The Void stirs", string(data))

	_, err = cache.GetOrSynthesize(ctx, "Something else")
	require.NoError(t, err)
	assert.Equal(t, 2, synth.calls)
}

func TestGetOrSynthesize_Unavailable(t *testing.T) {
	cache, err := NewCache(t.TempDir(), nil, nil)
	require.NoError(t, err)

	_, err = cache.GetOrSynthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrSynthesisUnavailable)
	assert.False(t, cache.Available())
}

func TestGetOrSynthesize_ServesExistingClipWithoutSynth(t *testing.T) {
	dir := t.TempDir()
	warm, err := NewCache(dir, &fakeSynth{}, nil)
	require.NoError(t, err)
	path, err := warm.GetOrSynthesize(context.Background(), "hello")
	require.NoError(t, err)

	cold, err := NewCache(dir, nil, nil)
	require.NoError(t, err)
	got, err := cold.GetOrSynthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestGetOrSynthesize_Failed(t *testing.T) {
	synth := &fakeSynth{err: errors.New("quota exceeded")}
	cache, err := NewCache(t.TempDir(), synth, nil)
	require.NoError(t, err)

	_, err = cache.GetOrSynthesize(context.Background(), "hello")
	require.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, statErr := os.Stat(cache.PathFor("hello"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("hello")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint("hello"))
	assert.NotEqual(t, a, Fingerprint("hello!"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, " Title\nsome bold and italic snakecase", CleanText("# Title\nsome **bold** and *italic* snake_case"))
}
