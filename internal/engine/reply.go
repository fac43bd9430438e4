package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/models"
)

// ErrMalformedReply means a rules reply could not be used as-is.
var ErrMalformedReply = errors.New("malformed rules reply")

// Reply carries a structured result. When Fallback is set, Value came from
// the fallback table and Err records why.
type Reply[T any] struct {
	Value    T
	Err      error
	Fallback bool
}

// Adjudication says how an action is resolved.
type Adjudication struct {
	RequiredRoll     string `json:"required_roll"`
	DifficultyClass  int    `json:"difficulty_class"`
	RelevantStat     string `json:"relevant_stat"`
	SuccessThreshold string `json:"success_threshold"`
	SpecialRules     string `json:"special_rules"`
}

// CombatOutcome is the result of one combat round.
type CombatOutcome struct {
	PlayerHit    bool   `json:"player_hit"`
	PlayerDamage int    `json:"player_damage"`
	EnemyDamage  int    `json:"enemy_damage"`
	PlayerHP     int    `json:"player_hp"`
	EnemyHP      int    `json:"enemy_hp"`
	Description  string `json:"description"`
}

// extractObject strips code fences and returns the outermost JSON object.
func extractObject(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedReply)
	}
	return text[start : end+1], nil
}

func decode(raw string, v any) error {
	obj, err := extractObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedReply, field)
}

// Wire shapes use pointers so absent keys can be told apart from zeros.

type characterReply struct {
	Level        *int     `json:"level"`
	HP           *int     `json:"hp"`
	MaxHP        *int     `json:"max_hp"`
	Strength     *int     `json:"strength"`
	Dexterity    *int     `json:"dexterity"`
	Intelligence *int     `json:"intelligence"`
	Charisma     *int     `json:"charisma"`
	Defense      *int     `json:"defense"`
	Abilities    []string `json:"abilities"`
}

func parseCharacter(raw string) (models.Character, error) {
	var r characterReply
	if err := decode(raw, &r); err != nil {
		return models.Character{}, err
	}

	required := []struct {
		name string
		v    *int
	}{
		{"hp", r.HP}, {"max_hp", r.MaxHP},
		{"strength", r.Strength}, {"dexterity", r.Dexterity},
		{"intelligence", r.Intelligence}, {"charisma", r.Charisma},
		{"defense", r.Defense},
	}
	for _, f := range required {
		if f.v == nil {
			return models.Character{}, missing(f.name)
		}
		if *f.v < 0 {
			return models.Character{}, fmt.Errorf("%w: negative %s", ErrMalformedReply, f.name)
		}
	}
	if *r.MaxHP <= 0 || *r.HP <= 0 || *r.HP > *r.MaxHP {
		return models.Character{}, fmt.Errorf("%w: hp %d/%d", ErrMalformedReply, *r.HP, *r.MaxHP)
	}

	level := 1
	if r.Level != nil && *r.Level > 0 {
		level = *r.Level
	}
	abilities := r.Abilities
	if abilities == nil {
		abilities = []string{}
	}
	return models.Character{
		Level:        level,
		HP:           *r.HP,
		MaxHP:        *r.MaxHP,
		Strength:     *r.Strength,
		Dexterity:    *r.Dexterity,
		Intelligence: *r.Intelligence,
		Charisma:     *r.Charisma,
		Defense:      *r.Defense,
		Abilities:    abilities,
	}, nil
}

type adjudicationReply struct {
	RequiredRoll     *string `json:"required_roll"`
	DifficultyClass  *int    `json:"difficulty_class"`
	RelevantStat     string  `json:"relevant_stat"`
	SuccessThreshold string  `json:"success_threshold"`
	SpecialRules     string  `json:"special_rules"`
}

func parseAdjudication(raw string) (Adjudication, error) {
	var r adjudicationReply
	if err := decode(raw, &r); err != nil {
		return Adjudication{}, err
	}
	if r.RequiredRoll == nil {
		return Adjudication{}, missing("required_roll")
	}
	if r.DifficultyClass == nil {
		return Adjudication{}, missing("difficulty_class")
	}
	if _, err := dice.Parse(*r.RequiredRoll); err != nil {
		return Adjudication{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if *r.DifficultyClass <= 0 {
		return Adjudication{}, fmt.Errorf("%w: difficulty class %d", ErrMalformedReply, *r.DifficultyClass)
	}
	return Adjudication{
		RequiredRoll:     strings.TrimSpace(*r.RequiredRoll),
		DifficultyClass:  *r.DifficultyClass,
		RelevantStat:     r.RelevantStat,
		SuccessThreshold: r.SuccessThreshold,
		SpecialRules:     r.SpecialRules,
	}, nil
}

type encounterReply struct {
	Name        *string  `json:"name"`
	Description string   `json:"description"`
	HP          *int     `json:"hp"`
	MaxHP       *int     `json:"max_hp"`
	Attack      *int     `json:"attack"`
	Defense     *int     `json:"defense"`
	Abilities   []string `json:"abilities"`
	Loot        []string `json:"loot"`
}

func parseEncounter(raw string) (models.Encounter, error) {
	var r encounterReply
	if err := decode(raw, &r); err != nil {
		return models.Encounter{}, err
	}
	switch {
	case r.Name == nil || strings.TrimSpace(*r.Name) == "":
		return models.Encounter{}, missing("name")
	case r.HP == nil:
		return models.Encounter{}, missing("hp")
	case r.Attack == nil:
		return models.Encounter{}, missing("attack")
	case r.Defense == nil:
		return models.Encounter{}, missing("defense")
	}
	if *r.HP <= 0 || *r.Attack < 0 || *r.Defense < 0 {
		return models.Encounter{}, fmt.Errorf("%w: hp %d, attack %d, defense %d", ErrMalformedReply, *r.HP, *r.Attack, *r.Defense)
	}

	maxHP := *r.HP
	if r.MaxHP != nil && *r.MaxHP > maxHP {
		maxHP = *r.MaxHP
	}
	enc := models.Encounter{
		Name:        strings.TrimSpace(*r.Name),
		Description: r.Description,
		HP:          *r.HP,
		MaxHP:       maxHP,
		Attack:      *r.Attack,
		Defense:     *r.Defense,
		Abilities:   r.Abilities,
		Loot:        r.Loot,
	}
	if enc.Abilities == nil {
		enc.Abilities = []string{}
	}
	if enc.Loot == nil {
		enc.Loot = []string{}
	}
	return enc, nil
}

type combatReply struct {
	PlayerHit    bool   `json:"player_hit"`
	PlayerDamage int    `json:"player_damage"`
	EnemyDamage  int    `json:"enemy_damage"`
	PlayerHP     *int   `json:"player_hp"`
	EnemyHP      *int   `json:"enemy_hp"`
	Description  string `json:"description"`
}

func parseCombatOutcome(raw string) (CombatOutcome, error) {
	var r combatReply
	if err := decode(raw, &r); err != nil {
		return CombatOutcome{}, err
	}
	if r.PlayerHP == nil {
		return CombatOutcome{}, missing("player_hp")
	}
	if r.EnemyHP == nil {
		return CombatOutcome{}, missing("enemy_hp")
	}
	return CombatOutcome{
		PlayerHit:    r.PlayerHit,
		PlayerDamage: r.PlayerDamage,
		EnemyDamage:  r.EnemyDamage,
		PlayerHP:     *r.PlayerHP,
		EnemyHP:      *r.EnemyHP,
		Description:  r.Description,
	}, nil
}

// deriveName returns the first non-empty line of text without heading or
// emphasis markers, or placeholder when there is none.
func deriveName(text, placeholder string) string {
	for _, line := range strings.Split(text, "\n") {
		if name := strings.Trim(line, "#* \t\r"); name != "" {
			return name
		}
	}
	return placeholder
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
