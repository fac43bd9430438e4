package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/voidwalkers/internal/engine"
	"github.com/tatianab/voidwalkers/internal/llm"
	"github.com/tatianab/voidwalkers/internal/models"
)

type fakeNarrator struct {
	reply string
	err   error
}

func (f *fakeNarrator) Generate(context.Context, string, int) (string, error) {
	return f.reply, f.err
}

type fakeAdjudicator struct {
	reply string
	err   error
}

func (f *fakeAdjudicator) Generate(context.Context, string) (string, error) {
	return f.reply, f.err
}

// fixedSource always returns the same value from Intn.
type fixedSource struct{ v int }

func (f *fixedSource) Intn(n int) int { return f.v % n }

var errOffline = fmt.Errorf("%w: connection refused", llm.ErrGeneratorUnreachable)

type harness struct {
	session *Session
	store   *models.Store
	narr    *fakeNarrator
	adj     *fakeAdjudicator
	rng     *fixedSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := models.NewStore(t.TempDir())
	require.NoError(t, err)
	return openHarness(t, store)
}

func openHarness(t *testing.T, store *models.Store) *harness {
	t.Helper()
	h := &harness{
		store: store,
		narr:  &fakeNarrator{reply: "# Emberfall\nA village huddled against the dark."},
		adj:   &fakeAdjudicator{err: errOffline},
		rng:   &fixedSource{},
	}
	eng, err := engine.New(h.narr, h.adj, h.rng, nil)
	require.NoError(t, err)

	h.session, err = Open(Deps{
		Store:  store,
		Engine: eng,
		RNG:    h.rng,
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	_, err := h.session.CreateCharacter(context.Background(), "Kael", "Warrior")
	require.NoError(t, err)
}

// assertSaved checks the default slot holds the live state.
func (h *harness) assertSaved(t *testing.T) {
	t.Helper()
	saved, err := h.store.Load(models.DefaultSlot)
	require.NoError(t, err)
	assert.Equal(t, h.session.State(), saved)
}

func TestOpen_FreshSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.Equal(t, ModePreGame, h.session.Mode())
	assert.Equal(t, models.NewGameState(), h.session.State())

	_, err := h.session.Explore(ctx)
	assert.ErrorIs(t, err, ErrNoCharacter)
	_, err = h.session.SeekCombat(ctx)
	assert.ErrorIs(t, err, ErrNoCharacter)
	_, err = h.session.Attack(ctx)
	assert.ErrorIs(t, err, ErrNoCharacter)
}

func TestOpen_ResumesDefaultSlot(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	resumed := openHarness(t, h.store)
	assert.Equal(t, ModeActive, resumed.session.Mode())
	assert.Equal(t, h.session.State(), resumed.session.State())
}

func TestOpen_ResumesMarkdownProse(t *testing.T) {
	h := newHarness(t)
	h.narr.reply = "\n# Emberfall\n  A village huddled against the dark.\n\tSmoke rises."
	h.start(t)
	h.assertSaved(t)

	resumed := openHarness(t, h.store)
	assert.Equal(t, ModeActive, resumed.session.Mode())
	st := resumed.session.State()
	assert.Equal(t, "Emberfall", st.CurrentLocationName())
	assert.Equal(t, h.narr.reply, st.WorldContext)
}

func TestOpen_CorruptDefaultSlotStartsFresh(t *testing.T) {
	store, err := models.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "game_state.json"), []byte(`{"foo": 1}`), 0o644))

	h := openHarness(t, store)
	assert.Equal(t, ModePreGame, h.session.Mode())
}

func TestCreateCharacter(t *testing.T) {
	h := newHarness(t)

	got, err := h.session.CreateCharacter(context.Background(), "  Kael ", "Warrior")
	require.NoError(t, err)

	assert.True(t, got.Fallback)
	assert.Equal(t, engine.DefaultCharacter("Kael", "Warrior"), got.Character)
	assert.Equal(t, "Emberfall", got.Start.Name)

	st := h.session.State()
	assert.Equal(t, ModeActive, h.session.Mode())
	assert.True(t, st.GameStarted)
	assert.Equal(t, h.narr.reply, st.WorldContext)
	assert.Equal(t, "Emberfall", st.CurrentLocationName())
	here, ok := st.Here()
	require.True(t, ok)
	assert.True(t, here.Visited)
	assert.Equal(t, []string{
		"[12:30:00] Discovered new location: Emberfall",
		"[12:30:00] Kael the Warrior begins their journey",
	}, st.StoryLog)
	h.assertSaved(t)

	_, err = h.session.CreateCharacter(context.Background(), "Again", "Mage")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestCreateCharacter_Rejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.CreateCharacter(context.Background(), " ", "Warrior")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	_, err = h.session.CreateCharacter(context.Background(), "Kael", "")
	assert.ErrorIs(t, err, ErrInvalidCharacter)

	h.narr.err = errOffline
	_, err = h.session.CreateCharacter(context.Background(), "Kael", "Warrior")
	assert.ErrorIs(t, err, llm.ErrGeneratorUnreachable)
	assert.Equal(t, ModePreGame, h.session.Mode())
	_, err = h.store.Load(models.DefaultSlot)
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestExploreAndTravel(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.narr.reply = "The Drowned Crypt\nWater drips from the vaults."

	loc, err := h.session.Explore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ruins", loc.Type)
	assert.False(t, loc.Visited)
	assert.Equal(t, "Emberfall", h.session.State().CurrentLocationName())

	require.NoError(t, h.session.Travel("The Drowned Crypt"))
	st := h.session.State()
	assert.Equal(t, "The Drowned Crypt", st.CurrentLocationName())
	here, _ := st.Here()
	assert.True(t, here.Visited)
	h.assertSaved(t)

	assert.ErrorIs(t, h.session.Travel("Atlantis"), ErrUnknownLocation)
}

func TestMeetSomeone(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.narr.reply = "**Mira Thorne**\nA merchant with ink-stained fingers."

	npc, err := h.session.MeetSomeone(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Mira Thorne", npc.Name)
	assert.Equal(t, "merchant", npc.Role)
	assert.Equal(t, "Emberfall", npc.Location)
	st := h.session.State()
	assert.Len(t, st.NPCsAt("Emberfall"), 1)
	assert.Equal(t, "[12:30:00] Met Mira Thorne, a merchant", st.StoryLog[len(st.StoryLog)-1])
}

func TestQuestLifecycle(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.narr.reply = "## A Debt in Ash\nThe smith wants his hammer back."

	quest, err := h.session.GenerateQuest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A Debt in Ash", quest.Title)
	assert.Len(t, h.session.State().ActiveQuests(), 1)

	done, err := h.session.CompleteQuest(quest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestCompleted, done.Status)
	assert.Empty(t, h.session.State().ActiveQuests())
	h.assertSaved(t)

	_, err = h.session.CompleteQuest(quest.ID)
	assert.ErrorIs(t, err, ErrQuestNotActive)
	_, err = h.session.CompleteQuest("nope")
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestSeekCombat_TwiceWithAdjudicatorOffline(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.narr.reply = "It crawls out of the dark."

	first, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)
	second, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)

	for _, e := range []Engagement{first, second} {
		assert.True(t, e.Fallback)
		assert.Equal(t, engine.DefaultEncounter(), e.Encounter)
		assert.Equal(t, "It crawls out of the dark.", e.Narration)
	}
	st := h.session.State()
	assert.Equal(t, ModeInCombat, h.session.Mode())
	assert.Equal(t, []string{
		"[12:30:00] Encountered Void Creature",
		"[12:30:00] Encountered Void Creature",
	}, st.CombatLog)
	h.assertSaved(t)
}

func TestCombat_NarratorOfflineSurfaces(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	before := h.session.State()
	h.narr.err = errOffline

	_, err := h.session.SeekCombat(context.Background())
	require.ErrorIs(t, err, llm.ErrGeneratorUnreachable)
	assert.Equal(t, before, h.session.State())
	assert.Equal(t, ModeActive, h.session.Mode())

	h.narr.err = nil
	_, err = h.session.SeekCombat(context.Background())
	require.NoError(t, err)
	inCombat := h.session.State()

	h.narr.err = errOffline
	_, err = h.session.Attack(context.Background())
	require.ErrorIs(t, err, llm.ErrGeneratorUnreachable)
	assert.Equal(t, inCombat, h.session.State())
	h.assertSaved(t)
}

func TestAttack_FallbackRound(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)

	round, err := h.session.Attack(context.Background())
	require.NoError(t, err)

	assert.True(t, round.Fallback)
	assert.Equal(t, 5, round.DamageDealt)
	assert.Equal(t, 3, round.DamageTaken)
	assert.Equal(t, 27, round.PlayerHP)
	assert.Equal(t, 25, round.EnemyHP)
	assert.False(t, round.Victory)

	st := h.session.State()
	assert.Equal(t, 27, st.Character.HP)
	assert.Equal(t, 25, st.CurrentEncounter.HP)
	h.assertSaved(t)
}

func TestAttack_Victory(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.session.Mutate(func(st *models.GameState) error {
		st.CurrentEncounter.HP = 3
		return nil
	}))

	round, err := h.session.Attack(context.Background())
	require.NoError(t, err)

	assert.True(t, round.Victory)
	assert.Equal(t, []string{"Void Essence"}, round.Loot)
	st := h.session.State()
	assert.Nil(t, st.CurrentEncounter)
	assert.Equal(t, []string{"Void Essence"}, st.Inventory)
	assert.Equal(t, "[12:30:00] Defeated Void Creature", st.CombatLog[len(st.CombatLog)-1])
	assert.Equal(t, ModeActive, h.session.Mode())
}

func TestAttack_DefeatFloorsHP(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.adj.err = nil
	h.adj.reply = `{"player_hit":false,"player_damage":0,"enemy_damage":40,"player_hp":-10,"enemy_hp":30,"description":"You are overwhelmed."}`
	_, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)

	round, err := h.session.Attack(context.Background())
	require.NoError(t, err)

	assert.True(t, round.Defeat)
	assert.Equal(t, 1, round.PlayerHP)
	st := h.session.State()
	assert.Equal(t, 1, st.Character.HP)
	assert.Nil(t, st.CurrentEncounter)
	assert.Equal(t, "[12:30:00] Defeated in combat", st.CombatLog[len(st.CombatLog)-1])
}

func TestDefend(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_, err := h.session.SeekCombat(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.session.Mutate(func(st *models.GameState) error {
		st.CurrentEncounter.Attack = 18
		return nil
	}))

	round, err := h.session.Defend()
	require.NoError(t, err)

	// 18 attack - 10 defense - 5 guard
	assert.Equal(t, 3, round.DamageTaken)
	assert.Equal(t, 27, h.session.State().Character.HP)
	assert.Equal(t, ModeInCombat, h.session.Mode())
}

func TestFlee(t *testing.T) {
	t.Run("escapes on 10 or more", func(t *testing.T) {
		h := newHarness(t)
		h.start(t)
		_, err := h.session.SeekCombat(context.Background())
		require.NoError(t, err)

		h.rng.v = 9
		round, err := h.session.Flee()
		require.NoError(t, err)
		assert.True(t, round.Fled)
		assert.Equal(t, ModeActive, h.session.Mode())
	})

	t.Run("failure can defeat", func(t *testing.T) {
		h := newHarness(t)
		h.start(t)
		_, err := h.session.SeekCombat(context.Background())
		require.NoError(t, err)
		require.NoError(t, h.session.Mutate(func(st *models.GameState) error {
			st.CurrentEncounter.Attack = 50
			return nil
		}))

		round, err := h.session.Flee()
		require.NoError(t, err)
		assert.False(t, round.Fled)
		assert.Equal(t, 40, round.DamageTaken)
		assert.True(t, round.Defeat)
		assert.Equal(t, 1, h.session.State().Character.HP)
		assert.Equal(t, ModeActive, h.session.Mode())
	})

	t.Run("needs an encounter", func(t *testing.T) {
		h := newHarness(t)
		h.start(t)
		_, err := h.session.Flee()
		assert.ErrorIs(t, err, ErrNotInCombat)
		_, err = h.session.Defend()
		assert.ErrorIs(t, err, ErrNotInCombat)
	})
}

func TestPerformAction(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.adj.err = nil
	h.adj.reply = `{"required_roll":"1d20","difficulty_class":10,"relevant_stat":"dexterity"}`
	h.narr.reply = "The lock clicks open."
	h.rng.v = 9

	res, err := h.session.PerformAction(context.Background(), "pick the lock", "")
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, 10, res.Roll.Total)
	assert.True(t, res.Success)
	assert.Equal(t, "The lock clicks open.", res.Narration)
	st := h.session.State()
	assert.Equal(t, "[12:30:00] pick the lock - Success", st.StoryLog[len(st.StoryLog)-1])

	h.rng.v = 0
	res, err = h.session.PerformAction(context.Background(), "pick the lock", "hard")
	require.NoError(t, err)
	assert.False(t, res.Success)

	_, err = h.session.PerformAction(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyAction)
}

func TestPerformAction_OversizedRollFallsBack(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.adj.err = nil
	h.adj.reply = `{"required_roll":"9999999999999999d20","difficulty_class":10}`
	h.narr.reply = "You try."
	h.rng.v = 9

	res, err := h.session.PerformAction(context.Background(), "lift the boulder", "")
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, "1d20", res.Adjudication.RequiredRoll)
	assert.Len(t, res.Roll.Rolls, 1)
}

func TestPerformAction_NarrationFailureLeavesStateAlone(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	before := h.session.State()
	h.narr.err = errOffline

	_, err := h.session.PerformAction(context.Background(), "climb the wall", "easy")
	assert.True(t, errors.Is(err, llm.ErrGeneratorUnreachable))
	assert.Equal(t, before, h.session.State())
}

func TestSaveAndLoad(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	slot, err := h.session.SaveAs("before the crypt")
	require.NoError(t, err)
	assert.Equal(t, "before_the_crypt", slot)
	snapshot := h.session.State()

	require.NoError(t, h.session.NewGame())
	assert.Equal(t, ModePreGame, h.session.Mode())
	h.assertSaved(t)

	require.NoError(t, h.session.Load(slot))
	assert.Equal(t, snapshot, h.session.State())
	h.assertSaved(t)

	saves, err := h.session.Saves()
	require.NoError(t, err)
	assert.Len(t, saves, 2)
}

func TestLoad_CorruptLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	before := h.session.State()
	require.NoError(t, os.WriteFile(filepath.Join(h.store.Dir(), "broken.json"), []byte("::: not a save :::"), 0o644))

	err := h.session.Load("broken")
	assert.ErrorIs(t, err, models.ErrCorruptSnapshot)
	assert.Equal(t, before, h.session.State())

	err = h.session.Load("missing")
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestFlags(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.NoError(t, h.session.MarkWorldShown())
	require.NoError(t, h.session.SetSpeech(true))
	st := h.session.State()
	assert.True(t, st.WorldShown)
	assert.True(t, st.TTSEnabled)
	h.assertSaved(t)

	require.NoError(t, h.session.NewGame())
	assert.True(t, h.session.State().TTSEnabled)
}

func TestRollDice(t *testing.T) {
	h := newHarness(t)
	h.rng.v = 11

	res, err := h.session.RollDice("1d20+5")
	require.NoError(t, err)
	assert.Equal(t, 17, res.Total)

	_, err = h.session.RollDice("twenty")
	assert.Error(t, err)
	assert.Equal(t, ModePreGame, h.session.Mode())
}
