// Package session owns the live game state. Every player operation goes
// through a Session, which serialises them, applies their effects atomically
// and writes the result through to the default save slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/engine"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/speech"
	"go.uber.org/zap"
)

// Mode is the lifecycle stage of a session.
type Mode int

const (
	ModeUninitialized Mode = iota
	ModePreGame
	ModeActive
	ModeInCombat
)

func (m Mode) String() string {
	switch m {
	case ModePreGame:
		return "pre-game"
	case ModeActive:
		return "active"
	case ModeInCombat:
		return "in-combat"
	default:
		return "uninitialized"
	}
}

var (
	ErrNoCharacter      = errors.New("no character has been created")
	ErrGameInProgress   = errors.New("a game is already in progress")
	ErrNotInCombat      = errors.New("not in combat")
	ErrQuestNotFound    = errors.New("quest not found")
	ErrQuestNotActive   = errors.New("quest is not active")
	ErrUnknownLocation  = errors.New("unknown location")
	ErrInvalidCharacter = errors.New("character needs a name and a class")
	ErrEmptyAction      = errors.New("describe an action")
)

// Deps are the collaborators of a Session.
type Deps struct {
	Store  *models.Store
	Engine *engine.Engine
	// Speech may be nil, in which case Speak reports synthesis as unavailable.
	Speech *speech.Cache
	// RNG must be the same source the Engine was built with.
	RNG dice.Intner
	Log *zap.Logger
	// Now stamps log entries. Defaults to time.Now.
	Now func() time.Time
}

// Session is a single game session.
type Session struct {
	mu     sync.Mutex
	state  *models.GameState
	store  *models.Store
	engine *engine.Engine
	speech *speech.Cache
	rng    dice.Intner
	now    func() time.Time
	log    *zap.Logger
}

// Open starts a session from the default save slot. A missing or corrupt
// snapshot yields a fresh pre-game state.
func Open(d Deps) (*Session, error) {
	if d.Store == nil || d.Engine == nil || d.RNG == nil {
		return nil, errors.New("session needs a store, an engine and a random source")
	}
	s := &Session{
		store:  d.Store,
		engine: d.Engine,
		speech: d.Speech,
		rng:    d.RNG,
		now:    d.Now,
		log:    d.Log,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	state, err := s.store.Load(models.DefaultSlot)
	switch {
	case err == nil:
		if verr := state.Validate(); verr != nil {
			s.log.Warn("Default save violates game rules, starting fresh", zap.Error(verr))
			state = models.NewGameState()
		} else {
			s.log.Info("Resumed saved game", zap.String("mode", modeOf(state).String()))
		}
	case errors.Is(err, models.ErrSnapshotNotFound):
		state = models.NewGameState()
	default:
		s.log.Warn("Could not load default save, starting fresh", zap.Error(err))
		state = models.NewGameState()
	}
	s.state = state
	return s, nil
}

func modeOf(st *models.GameState) Mode {
	switch {
	case st == nil:
		return ModeUninitialized
	case !st.GameStarted || st.Character == nil:
		return ModePreGame
	case st.CurrentEncounter != nil:
		return ModeInCombat
	default:
		return ModeActive
	}
}

// Mode reports the current lifecycle stage.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return modeOf(s.state)
}

// State returns a copy of the live state.
func (s *Session) State() *models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Mutate applies fn to a copy of the state. If fn fails nothing changes;
// otherwise the copy is checked, becomes the live state and is saved to the
// default slot.
func (s *Session) Mutate(fn func(*models.GameState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(fn)
}

func (s *Session) mutate(fn func(*models.GameState) error) error {
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("refusing update: %w", err)
	}
	s.state = next
	if err := s.store.Save(next, models.DefaultSlot); err != nil {
		s.log.Error("Failed to save game state", zap.Error(err))
		return fmt.Errorf("state updated but not saved: %w", err)
	}
	return nil
}

// entry formats a log line stamped with the wall clock time.
func (s *Session) entry(event string) string {
	return fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), event)
}

func (s *Session) requireCharacter() error {
	if modeOf(s.state) == ModePreGame {
		return ErrNoCharacter
	}
	return nil
}

// NewGame discards the current game. The speech preference is kept.
func (s *Session) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(st *models.GameState) error {
		tts := st.TTSEnabled
		*st = *models.NewGameState()
		st.TTSEnabled = tts
		return nil
	})
}

// SaveAs stores the current state under name and returns the slot used.
func (s *Session) SaveAs(name string) (string, error) {
	slot, err := models.SlotName(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(s.state, slot); err != nil {
		return "", err
	}
	s.log.Info("Saved game", zap.String("slot", slot))
	return slot, nil
}

// Load replaces the live state with the named snapshot and writes it through
// to the default slot. On any error the live state is untouched.
func (s *Session) Load(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.store.Load(name)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrCorruptSnapshot, err)
	}
	if err := s.mutate(func(st *models.GameState) error {
		*st = *loaded
		return nil
	}); err != nil {
		return err
	}
	s.log.Info("Loaded game", zap.String("slot", name))
	return nil
}

// Saves lists the loadable snapshots, newest first.
func (s *Session) Saves() ([]models.SaveSummary, error) {
	return s.store.List()
}

// MarkWorldShown records that the premise has been displayed.
func (s *Session) MarkWorldShown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.WorldShown {
		return nil
	}
	return s.mutate(func(st *models.GameState) error {
		st.WorldShown = true
		return nil
	})
}

// SetSpeech turns narration audio on or off.
func (s *Session) SetSpeech(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(st *models.GameState) error {
		st.TTSEnabled = enabled
		return nil
	})
}

// Speak returns the path of an audio clip for text.
func (s *Session) Speak(ctx context.Context, text string) (string, error) {
	if s.speech == nil {
		return "", speech.ErrSynthesisUnavailable
	}
	return s.speech.GetOrSynthesize(ctx, text)
}

// RollDice rolls an ad-hoc expression. The state is not touched.
func (s *Session) RollDice(expr string) (dice.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dice.Roll(s.rng, expr)
}
