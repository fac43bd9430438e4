package session

import (
	"context"
	"fmt"

	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/models"
)

const (
	encounterType = "combat"
	fleeCheck     = "1d20"
	fleeTarget    = 10
	guardBonus    = 5
)

// Engagement is the outcome of SeekCombat.
type Engagement struct {
	Encounter models.Encounter
	Narration string
	// Fallback is set when the stock void creature was used.
	Fallback bool
}

// Round is the outcome of one combat action.
type Round struct {
	Description string
	Narration   string
	DamageDealt int
	DamageTaken int
	PlayerHP    int
	EnemyHP     int
	Victory     bool
	Defeat      bool
	Fled        bool
	Loot        []string
	// Fallback is set when the round was resolved locally.
	Fallback bool
}

// SeekCombat starts an encounter, replacing any encounter already underway.
// If the narrator fails the error is returned and no encounter starts.
func (s *Session) SeekCombat(ctx context.Context) (Engagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCharacter(); err != nil {
		return Engagement{}, err
	}

	reply := s.engine.GenerateEncounter(ctx, encounterType, s.state.Character.Level)
	enc := reply.Value
	narration, err := s.engine.Narrate(ctx, "encountered a "+enc.Name, s.state.CurrentLocationName())
	if err != nil {
		return Engagement{}, err
	}

	err = s.mutate(func(st *models.GameState) error {
		st.CurrentEncounter = &enc
		st.CombatLog = append(st.CombatLog, s.entry("Encountered "+enc.Name))
		return nil
	})
	if err != nil {
		return Engagement{}, err
	}
	return Engagement{Encounter: enc, Narration: narration, Fallback: reply.Fallback}, nil
}

func (s *Session) requireCombat() error {
	if err := s.requireCharacter(); err != nil {
		return err
	}
	if s.state.CurrentEncounter == nil {
		return ErrNotInCombat
	}
	return nil
}

// Attack trades blows with the current enemy. A narrator failure is
// returned and the round is not applied.
func (s *Session) Attack(ctx context.Context) (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCombat(); err != nil {
		return Round{}, err
	}

	reply := s.engine.CombatRound(ctx, "attack", s.state.CurrentEncounter, s.state.Character)
	out := reply.Value
	narration, err := s.engine.Narrate(ctx, out.Description, "in combat")
	if err != nil {
		return Round{}, err
	}
	round := Round{
		Description: out.Description,
		Narration:   narration,
		DamageDealt: out.PlayerDamage,
		DamageTaken: out.EnemyDamage,
		Fallback:    reply.Fallback,
	}

	err = s.mutate(func(st *models.GameState) error {
		enemy := st.CurrentEncounter
		st.Character.HP = out.PlayerHP
		enemy.HP = out.EnemyHP
		st.CombatLog = append(st.CombatLog, s.entry(fmt.Sprintf("Attacked %s - dealt %d, took %d", enemy.Name, out.PlayerDamage, out.EnemyDamage)))

		if enemy.HP <= 0 {
			round.Victory = true
			round.Loot = append([]string{}, enemy.Loot...)
			st.Inventory = append(st.Inventory, enemy.Loot...)
			st.CurrentEncounter = nil
			st.CombatLog = append(st.CombatLog, s.entry("Defeated "+enemy.Name))
			// A winning blow never leaves the character dead.
			st.Character.HP = max(st.Character.HP, 1)
		} else {
			s.resolveDefeat(st, &round)
		}
		round.PlayerHP = st.Character.HP
		round.EnemyHP = enemy.HP
		return nil
	})
	if err != nil {
		return Round{}, err
	}
	return round, nil
}

// Defend braces against the enemy, reducing its attack by a guard bonus.
func (s *Session) Defend() (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCombat(); err != nil {
		return Round{}, err
	}

	var round Round
	err := s.mutate(func(st *models.GameState) error {
		enemy := st.CurrentEncounter
		damage := max(0, enemy.Attack-st.Character.Defense-guardBonus)
		st.Character.HP -= damage
		st.CombatLog = append(st.CombatLog, s.entry(fmt.Sprintf("Defended - took %d damage", damage)))

		round.Description = fmt.Sprintf("You raise your guard! Took %d damage.", damage)
		round.DamageTaken = damage
		round.EnemyHP = enemy.HP
		s.resolveDefeat(st, &round)
		round.PlayerHP = st.Character.HP
		return nil
	})
	if err != nil {
		return Round{}, err
	}
	return round, nil
}

// Flee tries to escape: a d20 roll of 10 or more ends the encounter, anything
// less lets the enemy strike.
func (s *Session) Flee() (Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCombat(); err != nil {
		return Round{}, err
	}

	roll, err := dice.Roll(s.rng, fleeCheck)
	if err != nil {
		return Round{}, err
	}

	var round Round
	err = s.mutate(func(st *models.GameState) error {
		enemy := st.CurrentEncounter
		round.EnemyHP = enemy.HP
		if roll.Total >= fleeTarget {
			round.Fled = true
			round.Description = "You successfully fled from combat!"
			st.CurrentEncounter = nil
			st.CombatLog = append(st.CombatLog, s.entry("Fled from combat"))
		} else {
			damage := max(0, enemy.Attack-st.Character.Defense)
			st.Character.HP -= damage
			round.DamageTaken = damage
			round.Description = fmt.Sprintf("Failed to flee! The enemy attacks for %d damage.", damage)
			st.CombatLog = append(st.CombatLog, s.entry(fmt.Sprintf("Failed to flee - took %d damage", damage)))
			s.resolveDefeat(st, &round)
		}
		round.PlayerHP = st.Character.HP
		return nil
	})
	if err != nil {
		return Round{}, err
	}
	return round, nil
}

// resolveDefeat ends the encounter when the character has dropped to zero
// hit points, leaving them on 1.
func (s *Session) resolveDefeat(st *models.GameState, round *Round) {
	if st.Character.HP > 0 {
		return
	}
	st.Character.HP = 1
	st.CurrentEncounter = nil
	st.CombatLog = append(st.CombatLog, s.entry("Defeated in combat"))
	round.Defeat = true
}
