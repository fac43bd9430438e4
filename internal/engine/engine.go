// Package engine turns game events into prompts for the remote generators and
// their replies back into game data.
package engine

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/google/uuid"
	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/models"
	"go.uber.org/zap"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Token ceilings for narrative replies.
const (
	worldTokens     = 1500
	locationTokens  = 1500
	npcTokens       = 1200
	questTokens     = 1200
	narrationTokens = 500
)

// Narrator writes free-form prose.
type Narrator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Adjudicator answers rules questions with JSON.
type Adjudicator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine builds prompts, calls the generators and interprets their replies.
// It is not safe for concurrent use: the random source is shared with the
// caller, which serialises access.
type Engine struct {
	narrator    Narrator
	adjudicator Adjudicator
	rng         dice.Intner
	prompts     *template.Template
	log         *zap.Logger
}

// New creates an Engine. rng drives the locally rolled fallbacks.
func New(narrator Narrator, adjudicator Adjudicator, rng dice.Intner, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	prompts, err := template.New("prompts").
		Funcs(template.FuncMap{"json": toJSON}).
		ParseFS(promptFS, "prompts/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	return &Engine{
		narrator:    narrator,
		adjudicator: adjudicator,
		rng:         rng,
		prompts:     prompts,
		log:         log,
	}, nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (e *Engine) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.prompts.ExecuteTemplate(&buf, name+".txt", data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

func (e *Engine) narrate(ctx context.Context, name string, data any, maxTokens int) (string, error) {
	prompt, err := e.render(name, data)
	if err != nil {
		return "", err
	}
	text, err := e.narrator.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return text, nil
}

// WorldIntro writes the campaign premise.
func (e *Engine) WorldIntro(ctx context.Context) (string, error) {
	return e.narrate(ctx, "world_intro", nil, worldTokens)
}

// GenerateLocation describes a new, unvisited location of the given type.
func (e *Engine) GenerateLocation(ctx context.Context, locationType, worldContext string) (models.Location, error) {
	text, err := e.narrate(ctx, "location", struct{ Type, Context string }{locationType, worldContext}, locationTokens)
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{
		Name:        deriveName(text, "The "+titleCase(locationType)),
		Type:        locationType,
		Description: text,
	}, nil
}

// GenerateNPC introduces a character with the given role at location.
func (e *Engine) GenerateNPC(ctx context.Context, role, location string) (models.NPC, error) {
	text, err := e.narrate(ctx, "npc", struct{ Role, Location string }{role, location}, npcTokens)
	if err != nil {
		return models.NPC{}, err
	}
	return models.NPC{
		Name:        deriveName(text, "The "+titleCase(role)),
		Role:        role,
		Location:    location,
		Description: text,
		Disposition: models.DefaultDisposition,
	}, nil
}

// GenerateQuest writes a new active quest.
func (e *Engine) GenerateQuest(ctx context.Context, questContext string) (models.Quest, error) {
	text, err := e.narrate(ctx, "quest", struct{ Context string }{questContext}, questTokens)
	if err != nil {
		return models.Quest{}, err
	}
	return models.Quest{
		ID:          uuid.NewString(),
		Title:       deriveName(text, "A New Quest"),
		Description: text,
		Status:      models.QuestActive,
		Objectives:  []string{},
	}, nil
}

// Narrate dramatises a single event.
func (e *Engine) Narrate(ctx context.Context, event, eventContext string) (string, error) {
	return e.narrate(ctx, "narrate", struct{ Event, Context string }{event, eventContext}, narrationTokens)
}

// ask sends a rules prompt. The returned error is either a rendering failure
// or the adjudicator's own error.
func (e *Engine) ask(ctx context.Context, name string, data any) (string, error) {
	prompt, err := e.render(name, data)
	if err != nil {
		return "", err
	}
	return e.adjudicator.Generate(ctx, prompt)
}

func (e *Engine) fellBack(op string, err error) {
	e.log.Warn("Using fallback for rules reply", zap.String("operation", op), zap.Error(err))
}

// CreateCharacter asks for starting statistics. Name and class always come
// from the player.
func (e *Engine) CreateCharacter(ctx context.Context, name, class string) Reply[models.Character] {
	raw, err := e.ask(ctx, "character", struct{ Name, Class string }{name, class})
	if err == nil {
		var c models.Character
		if c, err = parseCharacter(raw); err == nil {
			c.Name, c.Class = name, class
			return Reply[models.Character]{Value: c}
		}
	}
	e.fellBack("create_character", err)
	return Reply[models.Character]{Value: DefaultCharacter(name, class), Err: err, Fallback: true}
}

// Adjudicate decides which roll resolves action and what it must beat.
func (e *Engine) Adjudicate(ctx context.Context, action string, character *models.Character, difficulty string) Reply[Adjudication] {
	data := struct {
		Action     string
		Character  *models.Character
		Difficulty string
	}{action, character, difficulty}

	raw, err := e.ask(ctx, "adjudicate", data)
	if err == nil {
		var a Adjudication
		if a, err = parseAdjudication(raw); err == nil {
			return Reply[Adjudication]{Value: a}
		}
	}
	e.fellBack("adjudicate", err)
	return Reply[Adjudication]{Value: DefaultAdjudication(), Err: err, Fallback: true}
}

// GenerateEncounter builds an enemy for a character of the given level.
func (e *Engine) GenerateEncounter(ctx context.Context, encounterType string, level int) Reply[models.Encounter] {
	raw, err := e.ask(ctx, "encounter", struct {
		Type  string
		Level int
	}{encounterType, level})
	if err == nil {
		var enc models.Encounter
		if enc, err = parseEncounter(raw); err == nil {
			return Reply[models.Encounter]{Value: enc}
		}
	}
	e.fellBack("generate_encounter", err)
	return Reply[models.Encounter]{Value: DefaultEncounter(), Err: err, Fallback: true}
}

// CombatRound resolves one exchange of blows. Reported hit points are clamped
// to each side's maximum.
func (e *Engine) CombatRound(ctx context.Context, action string, enemy *models.Encounter, character *models.Character) Reply[CombatOutcome] {
	data := struct {
		Action    string
		Enemy     *models.Encounter
		Character *models.Character
	}{action, enemy, character}

	raw, err := e.ask(ctx, "combat_round", data)
	if err == nil {
		var out CombatOutcome
		if out, err = parseCombatOutcome(raw); err == nil {
			out.PlayerHP = min(out.PlayerHP, character.MaxHP)
			out.EnemyHP = min(out.EnemyHP, enemy.MaxHP)
			return Reply[CombatOutcome]{Value: out}
		}
	}
	e.fellBack("combat_round", err)
	return Reply[CombatOutcome]{Value: FallbackCombatRound(e.rng, enemy, character), Err: err, Fallback: true}
}
