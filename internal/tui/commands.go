package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
)

const helpText = `/explore            discover a new location
/travel <name>      go to a known location
/meet               meet someone here
/quest              take on a new quest
/complete <n>       complete active quest n
/seek               look for a fight
/attack /defend /flee
/log                recent story entries
/combatlog          recent combat entries
/roll <dice>        roll dice, e.g. /roll 2d6+1
/save <name>        save to a named slot
/load <name>        load a named slot
/saves              list saved games
/speech on|off      toggle narration audio
/new                abandon this game
/quit               leave
Anything else is attempted as an action.`

type command struct {
	name string
	arg  string
}

// parseCommand splits input into a slash command and its argument. Input
// without a leading slash is an action.
func parseCommand(input string) command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{name: "action", arg: input}
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

func (m model) create(name, class string) tea.Cmd {
	return func() tea.Msg {
		c, err := m.session.CreateCharacter(context.Background(), name, class)
		return createdMsg{creation: c, err: err}
	}
}

func (m model) speak(text string) tea.Cmd {
	return func() tea.Msg {
		path, err := m.session.Speak(context.Background(), text)
		return spokenMsg{path: path, err: err}
	}
}

func (m model) run(c command) tea.Cmd {
	sess := m.session
	active := m.state.ActiveQuests()
	return func() tea.Msg {
		return execute(context.Background(), sess, c, active)
	}
}

func execute(ctx context.Context, sess *session.Session, c command, active []models.Quest) outcomeMsg {
	fail := func(err error) outcomeMsg { return outcomeMsg{err: err} }

	switch c.name {
	case "help":
		return outcomeMsg{text: helpText}

	case "action":
		res, err := sess.PerformAction(ctx, c.arg, "")
		if err != nil {
			return fail(err)
		}
		verdict := "Failure!"
		if res.Success {
			verdict = "Success!"
		}
		text := fmt.Sprintf("Roll %s vs DC %d: %v = %d. %s\n\n%s",
			res.Adjudication.RequiredRoll, res.Adjudication.DifficultyClass,
			res.Roll.Rolls, res.Roll.Total, verdict, res.Narration)
		return outcomeMsg{text: text, speak: res.Narration}

	case "explore":
		loc, err := sess.Explore(ctx)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "You discovered: " + loc.Name + "\n\n" + loc.Description, speak: loc.Description}

	case "travel":
		if err := sess.Travel(c.arg); err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "You travel to " + c.arg + "."}

	case "meet":
		npc, err := sess.MeetSomeone(ctx)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "You meet: " + npc.Name + "\n\n" + npc.Description, speak: npc.Description}

	case "quest":
		q, err := sess.GenerateQuest(ctx)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "New quest: " + q.Title + "\n\n" + q.Description, speak: q.Description}

	case "complete":
		n, err := strconv.Atoi(c.arg)
		if err != nil || n < 1 || n > len(active) {
			return fail(fmt.Errorf("%w: pick a number from the quest list", session.ErrQuestNotFound))
		}
		q, err := sess.CompleteQuest(active[n-1].ID)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "Quest completed: " + q.Title}

	case "seek":
		e, err := sess.SeekCombat(ctx)
		if err != nil {
			return fail(err)
		}
		text := fmt.Sprintf("Combat! %s\n\n%s. %s", e.Narration, e.Encounter.Name, e.Encounter.Description)
		return outcomeMsg{text: text, speak: text}

	case "attack":
		rd, err := sess.Attack(ctx)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: describeRound(rd, rd.Narration), speak: rd.Narration}

	case "defend":
		rd, err := sess.Defend()
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: describeRound(rd, rd.Description)}

	case "flee":
		rd, err := sess.Flee()
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: describeRound(rd, rd.Description)}

	case "log":
		return outcomeMsg{text: listEntries(sess.State().RecentStory(models.StoryLogView), "Your story has just begun...")}

	case "combatlog":
		return outcomeMsg{text: listEntries(sess.State().RecentCombat(models.CombatLogView), "No battles yet.")}

	case "roll":
		res, err := sess.RollDice(c.arg)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: fmt.Sprintf("%s: %v %+d = %d", res.Notation, res.Rolls, res.Modifier, res.Total)}

	case "save":
		slot, err := sess.SaveAs(c.arg)
		if err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "Saved as " + slot + "."}

	case "load":
		if err := sess.Load(c.arg); err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "Loaded " + c.arg + "."}

	case "saves":
		saves, err := sess.Saves()
		if err != nil {
			return fail(err)
		}
		if len(saves) == 0 {
			return outcomeMsg{text: "No saved games."}
		}
		var b strings.Builder
		for _, s := range saves {
			fmt.Fprintf(&b, "%s: %s, level %d %s, HP %d/%d, at %s\n", s.Slot, s.Name, s.Level, s.Class, s.HP, s.MaxHP, s.Location)
		}
		return outcomeMsg{text: strings.TrimSuffix(b.String(), "\n")}

	case "speech":
		on := c.arg == "on"
		if !on && c.arg != "off" {
			return fail(fmt.Errorf("usage: /speech on|off"))
		}
		if err := sess.SetSpeech(on); err != nil {
			return fail(err)
		}
		return outcomeMsg{text: "Narration audio " + c.arg + "."}

	case "new":
		if err := sess.NewGame(); err != nil {
			return fail(err)
		}
		return outcomeMsg{}

	default:
		return fail(fmt.Errorf("unknown command /%s, try /help", c.name))
	}
}

func listEntries(entries []string, empty string) string {
	if len(entries) == 0 {
		return empty
	}
	return strings.Join(entries, "\n")
}

func describeRound(rd session.Round, text string) string {
	var b strings.Builder
	b.WriteString(text)
	fmt.Fprintf(&b, "\n\nYou: %d HP. Enemy: %d HP.", rd.PlayerHP, rd.EnemyHP)
	switch {
	case rd.Victory:
		b.WriteString("\nVictory!")
		if len(rd.Loot) > 0 {
			b.WriteString(" Loot: " + strings.Join(rd.Loot, ", "))
		}
	case rd.Defeat:
		b.WriteString("\nYou have been defeated, but you live to fight again.")
	case rd.Fled:
		b.WriteString("\nYou escaped.")
	}
	return b.String()
}
