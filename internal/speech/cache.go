// Package speech turns narration into audio clips and caches them on disk by
// a fingerprint of the text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

var (
	// ErrSynthesisUnavailable means no synthesizer is configured.
	ErrSynthesisUnavailable = errors.New("speech synthesis is not configured")
	// ErrSynthesisFailed means the synthesizer was called and failed.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Voice is the voice configuration passed to the synthesizer.
type Voice struct {
	LanguageCode string
	Name         string
	Gender       string
	Encoding     string
	SpeakingRate float64
	Pitch        float64
	VolumeGainDB float64
}

// DefaultVoice is the narrator voice used for every clip.
var DefaultVoice = Voice{
	LanguageCode: "en-US",
	Name:         "en-US-Neural2-D",
	Gender:       "MALE",
	Encoding:     "MP3",
	SpeakingRate: 0.95,
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

// Cache memoizes synthesized clips in a directory.
type Cache struct {
	dir   string
	synth Synthesizer
	voice Voice
	log   *zap.Logger
}

// NewCache returns a cache writing into dir. synth may be nil, in which case
// only clips already on disk can be served.
func NewCache(dir string, synth Synthesizer, log *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio cache dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{dir: dir, synth: synth, voice: DefaultVoice, log: log}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Available reports whether new clips can be synthesized.
func (c *Cache) Available() bool {
	return c.synth != nil
}

// Fingerprint is the cache key for text.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// CleanText drops markdown emphasis and heading markers before synthesis.
func CleanText(text string) string {
	r := strings.NewReplacer("**", "", "*", "", "#", "", "_", "")
	return r.Replace(text)
}

// PathFor returns where the clip for text is stored.
func (c *Cache) PathFor(text string) string {
	return filepath.Join(c.dir, Fingerprint(text)+".mp3")
}

// GetOrSynthesize returns the path of the clip for text, synthesizing it on
// a cache miss. Concurrent misses for the same text may both synthesize; the
// content is identical so the last rename wins harmlessly.
func (c *Cache) GetOrSynthesize(ctx context.Context, text string) (string, error) {
	path := c.PathFor(text)
	if _, err := os.Stat(path); err == nil {
		c.log.Debug("Audio cache hit", zap.String("path", path))
		return path, nil
	}

	if c.synth == nil {
		return "", ErrSynthesisUnavailable
	}

	audio, err := c.synth.Synthesize(ctx, CleanText(text), c.voice)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".clip-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("commit audio file: %w", err)
	}

	c.log.Info("Synthesized audio clip", zap.String("path", path), zap.Int("bytes", len(audio)))
	return path, nil
}
