// Package app wires configuration into a running game session.
package app

import (
	"context"
	"fmt"

	"github.com/tatianab/voidwalkers/internal/config"
	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/engine"
	"github.com/tatianab/voidwalkers/internal/llm"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
	"github.com/tatianab/voidwalkers/internal/speech"
	"go.uber.org/zap"
)

// Game is a session together with the resources it holds.
type Game struct {
	Session *session.Session
	Speech  *speech.Cache
	gemini  *llm.Gemini
}

// Close releases the remote clients.
func (g *Game) Close() error {
	return g.gemini.Close()
}

// Open connects to the generators, prepares the save and audio directories
// and opens the session from the default slot.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Game, error) {
	policy := llm.Policy{
		Timeout: cfg.RequestTimeout,
		Retries: cfg.MaxRetries,
		Limiter: llm.NewLimiter(cfg.RateLimit, cfg.RateBurst),
	}

	gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, policy, log)
	if err != nil {
		return nil, err
	}
	narrator := llm.NewChatNarrator(cfg.NarratorAPIKey, cfg.NarratorBaseURL, cfg.NarratorModel, policy, log)

	rng, err := dice.NewSource()
	if err != nil {
		gemini.Close()
		return nil, err
	}
	eng, err := engine.New(narrator, gemini, rng, log.Named("engine"))
	if err != nil {
		gemini.Close()
		return nil, err
	}

	store, err := models.NewStore(cfg.SaveDir)
	if err != nil {
		gemini.Close()
		return nil, fmt.Errorf("open save store: %w", err)
	}

	var synth speech.Synthesizer
	if cfg.TTSEnabled {
		g, err := speech.NewGoogleSynthesizer(ctx, cfg.TTSAPIKey)
		if err != nil {
			log.Warn("Speech synthesis disabled", zap.Error(err))
		} else {
			synth = g
		}
	}
	cache, err := speech.NewCache(cfg.AudioDir, synth, log.Named("speech"))
	if err != nil {
		gemini.Close()
		return nil, fmt.Errorf("open audio cache: %w", err)
	}

	sess, err := session.Open(session.Deps{
		Store:  store,
		Engine: eng,
		Speech: cache,
		RNG:    rng,
		Log:    log.Named("session"),
	})
	if err != nil {
		gemini.Close()
		return nil, err
	}

	log.Info("Game ready",
		zap.String("save_dir", cfg.SaveDir),
		zap.String("narrator_model", cfg.NarratorModel),
		zap.String("gemini_model", cfg.GeminiModel),
		zap.Bool("speech", cache.Available()))
	return &Game{Session: sess, Speech: cache, gemini: gemini}, nil
}
