// Package tui is the terminal front end of a game session.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
)

type screen int

const (
	screenCreate screen = iota
	screenLoading
	screenPlaying
	screenError
)

type model struct {
	screen    screen
	session   *session.Session
	state     *models.GameState
	textInput textinput.Model
	viewport  viewport.Model
	classIdx  int
	err       error
	gameLog   string
	busy      bool
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// NewModel builds the UI for sess. A session that already has a character
// starts on the play screen.
func NewModel(sess *session.Session) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	m := model{
		session:   sess,
		state:     sess.State(),
		textInput: ti,
	}
	if sess.Mode() == session.ModePreGame {
		m.screen = screenCreate
		m.textInput.Placeholder = "Name your character..."
	} else {
		m.enterPlaying()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type createdMsg struct {
	creation session.Creation
	err      error
}

// outcomeMsg reports the result of a command on the play screen.
type outcomeMsg struct {
	text  string
	err   error
	speak string
}

type spokenMsg struct {
	path string
	err  error
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyTab:
			if m.screen == screenCreate {
				m.classIdx = (m.classIdx + 1) % len(models.ClassPresets)
				return m, nil
			}

		case tea.KeyEnter:
			switch m.screen {
			case screenCreate:
				name := strings.TrimSpace(m.textInput.Value())
				if name == "" {
					return m, nil
				}
				m.screen = screenLoading
				return m, m.create(name, models.ClassPresets[m.classIdx])

			case screenError:
				m.err = nil
				m.screen = screenCreate
				return m, nil

			case screenPlaying:
				input := strings.TrimSpace(m.textInput.Value())
				if input == "" || m.busy {
					return m, nil
				}
				m.textInput.Reset()

				c := parseCommand(input)
				if c.name == "quit" {
					return m, tea.Quit
				}
				m.appendLog(userStyle.Width(m.logWidth()).Render("> " + input))
				m.busy = true
				return m, m.run(c)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		if m.screen == screenPlaying {
			m.viewport.SetContent(m.gameLog)
		}

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			m.screen = screenError
			return m, nil
		}
		m.state = m.session.State()
		m.enterPlaying()
		return m, nil

	case outcomeMsg:
		m.busy = false
		m.state = m.session.State()
		if m.session.Mode() == session.ModePreGame {
			m.gameLog = ""
			m.screen = screenCreate
			m.textInput.Placeholder = "Name your character..."
			return m, nil
		}
		if msg.err != nil {
			m.appendLog(errorStyle.Width(m.logWidth()).Render("! " + msg.err.Error()))
			return m, nil
		}
		m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.text))
		if msg.speak != "" && m.state.TTSEnabled {
			return m, m.speak(msg.speak)
		}
		return m, nil

	case spokenMsg:
		if msg.err != nil {
			m.appendLog(helpStyle.Render("(audio unavailable: " + msg.err.Error() + ")"))
		} else {
			m.appendLog(helpStyle.Render("(audio: " + msg.path + ")"))
		}
		return m, nil
	}

	if m.screen == screenCreate || m.screen == screenPlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

// enterPlaying switches to the play screen, showing the premise once.
func (m *model) enterPlaying() {
	m.screen = screenPlaying
	m.gameLog = ""
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.logWidth(), max(m.height-6, 1))
	}
	if !m.state.WorldShown && m.state.WorldContext != "" {
		m.appendLog(gameStyle.Bold(true).Render("Welcome to Voidwalkers"))
		m.appendLog(gameStyle.Width(m.logWidth()).Render(m.state.WorldContext))
		if err := m.session.MarkWorldShown(); err == nil {
			m.state.WorldShown = true
		}
	}
	if here, ok := m.state.Here(); ok {
		m.appendLog(gameStyle.Bold(true).Render("Location: " + here.Name))
		m.appendLog(gameStyle.Width(m.logWidth()).Render(here.Description))
	}
	m.textInput.Placeholder = "What do you do? (/help for commands)"
	m.textInput.Reset()
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var s string

	switch m.screen {
	case screenCreate:
		classes := make([]string, len(models.ClassPresets))
		for i, c := range models.ClassPresets {
			if i == m.classIdx {
				c = titleStyle.Render(c)
			}
			classes[i] = c
		}
		s = fmt.Sprintf(
			"Welcome to Voidwalkers!\n\n%s\n\n%s\n\nClass: %s\n\n%s",
			"Who walks into the void?",
			m.textInput.View(),
			strings.Join(classes, "  "),
			helpStyle.Render("Tab cycles the class, Enter begins the adventure."),
		)

	case screenLoading:
		s = "\n  Creating your character and the world around them... please wait.\n"

	case screenPlaying:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		status := ""
		if m.busy {
			status = helpStyle.Render(" thinking...")
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View()+status,
			"\n"+helpStyle.Render("Type an action, or /help for commands. Esc quits."),
		)

	case screenError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Enter to try again or Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	st := m.state
	if st == nil || st.Character == nil {
		return ""
	}
	c := st.Character

	var b strings.Builder
	b.WriteString(titleStyle.Render("CHARACTER") + "\n")
	fmt.Fprintf(&b, "%s, level %d %s\n", c.Name, c.Level, c.Class)
	fmt.Fprintf(&b, "HP %d/%d  DEF %d\n", c.HP, c.MaxHP, c.Defense)
	fmt.Fprintf(&b, "STR %d DEX %d INT %d CHA %d\n", c.Strength, c.Dexterity, c.Intelligence, c.Charisma)
	if len(c.Abilities) > 0 {
		b.WriteString(strings.Join(c.Abilities, ", ") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("LOCATION") + "\n" + st.CurrentLocationName() + "\n")
	if st.CurrentLocation != nil {
		for _, npc := range st.NPCsAt(*st.CurrentLocation) {
			fmt.Fprintf(&b, "- %s (%s)\n", npc.Name, npc.Role)
		}
	}

	if enc := st.CurrentEncounter; enc != nil {
		b.WriteString("\n" + titleStyle.Render("COMBAT") + "\n")
		fmt.Fprintf(&b, "%s HP %d/%d\n", enc.Name, enc.HP, enc.MaxHP)
	}

	b.WriteString("\n" + titleStyle.Render("INVENTORY") + "\n")
	if len(st.Inventory) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, item := range st.Inventory {
		b.WriteString("- " + item + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("QUESTS") + "\n")
	active := st.ActiveQuests()
	if len(active) == 0 {
		b.WriteString("(none)\n")
	}
	for i, q := range active {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Title)
	}

	return stateStyle.Width(int(float64(m.width) * 0.23)).Height(m.viewport.Height).Render(b.String())
}

// Run starts the terminal UI and blocks until the player quits.
func Run(sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
