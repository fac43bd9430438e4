package engine

import (
	"github.com/tatianab/voidwalkers/internal/dice"
	"github.com/tatianab/voidwalkers/internal/models"
)

// DefaultCharacter is used when the rules engine cannot build a character.
func DefaultCharacter(name, class string) models.Character {
	return models.Character{
		Name:         name,
		Class:        class,
		Level:        1,
		HP:           30,
		MaxHP:        30,
		Strength:     5,
		Dexterity:    5,
		Intelligence: 5,
		Charisma:     5,
		Defense:      10,
		Abilities:    []string{"Basic Attack", "Defend", "Focus"},
	}
}

// DefaultAdjudication is a plain d20 check against 10.
func DefaultAdjudication() Adjudication {
	return Adjudication{
		RequiredRoll:     "1d20",
		DifficultyClass:  10,
		RelevantStat:     "any",
		SuccessThreshold: "Roll 10+ to succeed",
		SpecialRules:     "Standard check",
	}
}

// DefaultEncounter is the stock void creature.
func DefaultEncounter() models.Encounter {
	return models.Encounter{
		Name:        "Void Creature",
		Description: "A shadowy beast from the void",
		HP:          30,
		MaxHP:       30,
		Attack:      10,
		Defense:     8,
		Abilities:   []string{"Shadow Strike"},
		Loot:        []string{"Void Essence"},
	}
}

// FallbackCombatRound trades blows locally: the player always hits for 5-15
// and takes 3-10 back.
func FallbackCombatRound(rng dice.Intner, enemy *models.Encounter, character *models.Character) CombatOutcome {
	dealt := dice.Between(rng, 5, 15)
	taken := dice.Between(rng, 3, 10)
	return CombatOutcome{
		PlayerHit:    true,
		PlayerDamage: dealt,
		EnemyDamage:  taken,
		PlayerHP:     character.HP - taken,
		EnemyHP:      enemy.HP - dealt,
		Description:  "You exchange blows with the enemy!",
	}
}
