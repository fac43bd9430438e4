package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/engine"
	"github.com/tatianab/voidwalkers/internal/models"
	"go.uber.org/zap"
)

var (
	locationTypes = []string{"ruins", "forest", "cave", "shrine", "dungeon"}
	npcRoles      = []string{"merchant", "wanderer", "cultist", "guard", "mysterious figure"}
)

const (
	startingLocationType = "village"
	defaultDifficulty    = "medium"
)

// Creation is the outcome of CreateCharacter.
type Creation struct {
	Character models.Character
	Premise   string
	Start     models.Location
	// Fallback is set when the stock character was used.
	Fallback bool
}

// CreateCharacter starts a game: it builds the character, writes the world
// premise and the starting village, then places the character there.
func (s *Session) CreateCharacter(ctx context.Context, name, class string) (Creation, error) {
	name, class = strings.TrimSpace(name), strings.TrimSpace(class)
	if name == "" || class == "" {
		return Creation{}, ErrInvalidCharacter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if modeOf(s.state) != ModePreGame {
		return Creation{}, ErrGameInProgress
	}

	char := s.engine.CreateCharacter(ctx, name, class)
	premise, err := s.engine.WorldIntro(ctx)
	if err != nil {
		return Creation{}, fmt.Errorf("write world premise: %w", err)
	}
	start, err := s.engine.GenerateLocation(ctx, startingLocationType, premise)
	if err != nil {
		return Creation{}, fmt.Errorf("generate starting location: %w", err)
	}
	start.Visited = true

	err = s.mutate(func(st *models.GameState) error {
		c := char.Value
		st.Character = &c
		st.WorldContext = premise
		st.GameStarted = true
		st.WorldShown = false
		st.Locations = append(st.Locations, start)
		st.SetCurrentLocation(start.Name)
		st.StoryLog = append(st.StoryLog,
			s.entry("Discovered new location: "+start.Name),
			s.entry(fmt.Sprintf("%s the %s begins their journey", name, class)))
		return nil
	})
	if err != nil {
		return Creation{}, err
	}

	s.log.Info("Character created",
		zap.String("name", name),
		zap.String("class", class),
		zap.Bool("fallback", char.Fallback))
	return Creation{Character: char.Value, Premise: premise, Start: start, Fallback: char.Fallback}, nil
}

// Explore discovers a new location of a random type.
func (s *Session) Explore(ctx context.Context) (models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return models.Location{}, err
	}

	kind := locationTypes[s.rng.Intn(len(locationTypes))]
	loc, err := s.engine.GenerateLocation(ctx, kind, s.state.WorldContext)
	if err != nil {
		return models.Location{}, err
	}

	err = s.mutate(func(st *models.GameState) error {
		st.Locations = append(st.Locations, loc)
		st.StoryLog = append(st.StoryLog, s.entry("Discovered new location: "+loc.Name))
		return nil
	})
	return loc, err
}

// Travel moves the character to a known location.
func (s *Session) Travel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return err
	}
	if _, ok := s.state.LocationByName(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}

	return s.mutate(func(st *models.GameState) error {
		st.SetCurrentLocation(name)
		loc, _ := st.LocationByName(name)
		loc.Visited = true
		st.StoryLog = append(st.StoryLog, s.entry("Traveled to "+name))
		return nil
	})
}

// MeetSomeone introduces a character with a random role at the current
// location.
func (s *Session) MeetSomeone(ctx context.Context) (models.NPC, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return models.NPC{}, err
	}

	role := npcRoles[s.rng.Intn(len(npcRoles))]
	npc, err := s.engine.GenerateNPC(ctx, role, s.state.CurrentLocationName())
	if err != nil {
		return models.NPC{}, err
	}

	err = s.mutate(func(st *models.GameState) error {
		st.NPCs = append(st.NPCs, npc)
		st.StoryLog = append(st.StoryLog, s.entry(fmt.Sprintf("Met %s, a %s", npc.Name, npc.Role)))
		return nil
	})
	return npc, err
}

// GenerateQuest adds a new active quest.
func (s *Session) GenerateQuest(ctx context.Context) (models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return models.Quest{}, err
	}

	questContext := fmt.Sprintf("Character: %s, Location: %s", s.state.Character.Name, s.state.CurrentLocationName())
	quest, err := s.engine.GenerateQuest(ctx, questContext)
	if err != nil {
		return models.Quest{}, err
	}

	err = s.mutate(func(st *models.GameState) error {
		st.Quests = append(st.Quests, quest)
		st.StoryLog = append(st.StoryLog, s.entry("New quest: "+quest.Title))
		return nil
	})
	return quest, err
}

// CompleteQuest marks an active quest completed.
func (s *Session) CompleteQuest(id string) (models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var done models.Quest
	err := s.mutate(func(st *models.GameState) error {
		q, ok := st.QuestByID(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrQuestNotFound, id)
		}
		if err := q.Complete(); err != nil {
			return fmt.Errorf("%w: %v", ErrQuestNotActive, err)
		}
		st.StoryLog = append(st.StoryLog, s.entry("Completed quest: "+q.Title))
		done = *q
		return nil
	})
	return done, err
}

// ActionResult is the outcome of PerformAction.
type ActionResult struct {
	Action       string
	Adjudication engine.Adjudication
	Roll         dice.Result
	Success      bool
	Narration    string
	// Fallback is set when the standard d20 check was used.
	Fallback bool
}

// PerformAction resolves a free-form action: the rules engine picks the roll
// and the difficulty class, the dice decide, and the narrator describes it.
func (s *Session) PerformAction(ctx context.Context, action, difficulty string) (ActionResult, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return ActionResult{}, ErrEmptyAction
	}
	if difficulty = strings.TrimSpace(difficulty); difficulty == "" {
		difficulty = defaultDifficulty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return ActionResult{}, err
	}

	judgment := s.engine.Adjudicate(ctx, action, s.state.Character, difficulty)
	roll, err := dice.Roll(s.rng, judgment.Value.RequiredRoll)
	if err != nil {
		return ActionResult{}, err
	}
	success := roll.Total >= judgment.Value.DifficultyClass

	event := "failed to " + action
	if success {
		event = "successfully " + action
	}
	narration, err := s.engine.Narrate(ctx, event, s.state.CurrentLocationName())
	if err != nil {
		return ActionResult{}, err
	}

	outcome := "Failure"
	if success {
		outcome = "Success"
	}
	err = s.mutate(func(st *models.GameState) error {
		st.StoryLog = append(st.StoryLog, s.entry(action+" - "+outcome))
		return nil
	})
	if err != nil {
		return ActionResult{}, err
	}

	return ActionResult{
		Action:       action,
		Adjudication: judgment.Value,
		Roll:         roll,
		Success:      success,
		Narration:    narration,
		Fallback:     judgment.Fallback,
	}, nil
}
