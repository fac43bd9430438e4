package models

import (
	"errors"
	"fmt"
)

// Quest statuses. A quest only ever moves from active to completed.
const (
	QuestActive    = "active"
	QuestCompleted = "completed"
)

// DefaultDisposition is the disposition every new NPC starts with.
const DefaultDisposition = "neutral"

// ClassPresets are the classes offered at character creation. Any non-empty
// class name is accepted.
var ClassPresets = []string{"Warrior", "Mage", "Rogue", "Cleric", "Ranger", "Paladin"}

// Character is the player character.
type Character struct {
	Name         string   `yaml:"name" json:"name"`
	Class        string   `yaml:"class" json:"class"`
	Level        int      `yaml:"level" json:"level"`
	HP           int      `yaml:"hp" json:"hp"`
	MaxHP        int      `yaml:"max_hp" json:"max_hp"`
	Strength     int      `yaml:"strength" json:"strength"`
	Dexterity    int      `yaml:"dexterity" json:"dexterity"`
	Intelligence int      `yaml:"intelligence" json:"intelligence"`
	Charisma     int      `yaml:"charisma" json:"charisma"`
	Defense      int      `yaml:"defense" json:"defense"`
	Abilities    []string `yaml:"abilities" json:"abilities"`
}

// Location is a place in the world. Only Visited changes after creation.
type Location struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Visited     bool   `yaml:"visited" json:"visited"`
}

// NPC is a non-player character. Location is the name of a Location and is
// not guaranteed to resolve.
type NPC struct {
	Name        string `yaml:"name" json:"name"`
	Role        string `yaml:"role" json:"role"`
	Location    string `yaml:"location" json:"location"`
	Description string `yaml:"description" json:"description"`
	Disposition string `yaml:"disposition" json:"disposition"`
}

// Quest is a generated quest.
type Quest struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Status      string   `yaml:"status" json:"status"`
	Objectives  []string `yaml:"objectives" json:"objectives"`
}

// Encounter is the enemy of the single live combat.
type Encounter struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	HP          int      `yaml:"hp" json:"hp"`
	MaxHP       int      `yaml:"max_hp" json:"max_hp"`
	Attack      int      `yaml:"attack" json:"attack"`
	Defense     int      `yaml:"defense" json:"defense"`
	Abilities   []string `yaml:"abilities" json:"abilities"`
	Loot        []string `yaml:"loot" json:"loot"`
}

// GameState is the whole session record. It is saved and loaded wholesale.
type GameState struct {
	Character        *Character `yaml:"character" json:"character"`
	CurrentLocation  *string    `yaml:"current_location" json:"current_location"`
	Inventory        []string   `yaml:"inventory" json:"inventory"`
	NPCs             []NPC      `yaml:"npcs" json:"npcs"`
	Locations        []Location `yaml:"locations" json:"locations"`
	Quests           []Quest    `yaml:"quests" json:"quests"`
	CombatLog        []string   `yaml:"combat_log" json:"combat_log"`
	StoryLog         []string   `yaml:"story_log" json:"story_log"`
	GameStarted      bool       `yaml:"game_started" json:"game_started"`
	CurrentEncounter *Encounter `yaml:"current_encounter" json:"current_encounter"`
	WorldContext     string     `yaml:"world_context" json:"world_context"`
	TTSEnabled       bool       `yaml:"tts_enabled" json:"tts_enabled"`
	WorldShown       bool       `yaml:"world_shown" json:"world_shown"`
}

var (
	// ErrStartedWithoutCharacter means game_started and character disagree.
	ErrStartedWithoutCharacter = errors.New("game_started must be true exactly when a character exists")
	// ErrEncounterWithoutCharacter means an encounter is live with no living character.
	ErrEncounterWithoutCharacter = errors.New("an encounter requires a character with hp above zero")
)

// NewGameState returns the empty pre-game state.
func NewGameState() *GameState {
	return &GameState{
		Inventory: []string{},
		NPCs:      []NPC{},
		Locations: []Location{},
		Quests:    []Quest{},
		CombatLog: []string{},
		StoryLog:  []string{},
	}
}

// Validate reports the first consistency rule the state breaks.
func (s *GameState) Validate() error {
	if (s.Character != nil) != s.GameStarted {
		return ErrStartedWithoutCharacter
	}
	if s.CurrentEncounter != nil && (s.Character == nil || s.Character.HP <= 0) {
		return ErrEncounterWithoutCharacter
	}
	return nil
}

// Normalize repairs a freshly decoded state: nil slices become empty,
// game_started follows the character and an orphaned encounter is dropped.
func (s *GameState) Normalize() {
	s.Inventory = nonNil(s.Inventory)
	s.CombatLog = nonNil(s.CombatLog)
	s.StoryLog = nonNil(s.StoryLog)
	if s.NPCs == nil {
		s.NPCs = []NPC{}
	}
	if s.Locations == nil {
		s.Locations = []Location{}
	}
	if s.Quests == nil {
		s.Quests = []Quest{}
	}
	for i := range s.Quests {
		s.Quests[i].Objectives = nonNil(s.Quests[i].Objectives)
	}
	if s.Character != nil {
		s.Character.Abilities = nonNil(s.Character.Abilities)
	}
	if s.CurrentEncounter != nil {
		s.CurrentEncounter.Abilities = nonNil(s.CurrentEncounter.Abilities)
		s.CurrentEncounter.Loot = nonNil(s.CurrentEncounter.Loot)
	}

	s.GameStarted = s.Character != nil
	if s.Character == nil {
		s.CurrentEncounter = nil
	}
}

// Clone returns a deep copy.
func (s *GameState) Clone() *GameState {
	c := *s
	if s.Character != nil {
		ch := *s.Character
		ch.Abilities = cloneStrings(s.Character.Abilities)
		c.Character = &ch
	}
	if s.CurrentLocation != nil {
		loc := *s.CurrentLocation
		c.CurrentLocation = &loc
	}
	if s.CurrentEncounter != nil {
		enc := *s.CurrentEncounter
		enc.Abilities = cloneStrings(s.CurrentEncounter.Abilities)
		enc.Loot = cloneStrings(s.CurrentEncounter.Loot)
		c.CurrentEncounter = &enc
	}
	c.Inventory = cloneStrings(s.Inventory)
	c.CombatLog = cloneStrings(s.CombatLog)
	c.StoryLog = cloneStrings(s.StoryLog)
	if s.NPCs != nil {
		c.NPCs = append([]NPC{}, s.NPCs...)
	}
	if s.Locations != nil {
		c.Locations = append([]Location{}, s.Locations...)
	}
	if s.Quests != nil {
		c.Quests = make([]Quest, len(s.Quests))
		for i, q := range s.Quests {
			q.Objectives = cloneStrings(q.Objectives)
			c.Quests[i] = q
		}
	}
	return &c
}

// CurrentLocationName returns the current location name, or "" before the
// game starts.
func (s *GameState) CurrentLocationName() string {
	if s.CurrentLocation == nil {
		return ""
	}
	return *s.CurrentLocation
}

// SetCurrentLocation points the current location at name. The reference is
// by name only.
func (s *GameState) SetCurrentLocation(name string) {
	s.CurrentLocation = &name
}

// LocationByName returns the first location with the given name.
func (s *GameState) LocationByName(name string) (*Location, bool) {
	for i := range s.Locations {
		if s.Locations[i].Name == name {
			return &s.Locations[i], true
		}
	}
	return nil, false
}

// Here resolves the current location. It reports false when the reference is
// unset or dangles.
func (s *GameState) Here() (*Location, bool) {
	if s.CurrentLocation == nil {
		return nil, false
	}
	return s.LocationByName(*s.CurrentLocation)
}

// NPCsAt returns the NPCs whose location reference equals name.
func (s *GameState) NPCsAt(name string) []NPC {
	var out []NPC
	for _, npc := range s.NPCs {
		if npc.Location == name {
			out = append(out, npc)
		}
	}
	return out
}

// QuestByID returns the quest with the given id.
func (s *GameState) QuestByID(id string) (*Quest, bool) {
	for i := range s.Quests {
		if s.Quests[i].ID == id {
			return &s.Quests[i], true
		}
	}
	return nil, false
}

// ActiveQuests returns the quests still in progress.
func (s *GameState) ActiveQuests() []Quest {
	var out []Quest
	for _, q := range s.Quests {
		if q.Status == QuestActive {
			out = append(out, q)
		}
	}
	return out
}

// Complete marks an active quest completed. A completed quest never goes
// back to active.
func (q *Quest) Complete() error {
	if q.Status != QuestActive {
		return fmt.Errorf("quest %q is %s", q.Title, q.Status)
	}
	q.Status = QuestCompleted
	return nil
}

// How many log entries the front ends show.
const (
	StoryLogView  = 20
	CombatLogView = 10
)

// RecentStory returns up to n story entries, newest first.
func (s *GameState) RecentStory(n int) []string {
	return newestFirst(s.StoryLog, n)
}

// RecentCombat returns up to n combat entries, newest first.
func (s *GameState) RecentCombat(n int) []string {
	return newestFirst(s.CombatLog, n)
}

func newestFirst(log []string, n int) []string {
	if n > len(log) {
		n = len(log)
	}
	out := make([]string, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, log[i])
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
