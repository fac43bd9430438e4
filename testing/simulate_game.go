package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/voidwalkers/internal/app"
	"github.com/tatianab/voidwalkers/internal/config"
	"github.com/tatianab/voidwalkers/internal/logging"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
	"google.golang.org/api/option"
)

const maxTurns = 10

// Plays a short game with a Gemini "player" choosing every move, printing
// what happens. Saves go to a temporary directory.
func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	dir, err := os.MkdirTemp("", "voidwalkers-sim-")
	if err != nil {
		log.Fatalf("Failed to create save dir: %v", err)
	}
	cfg.SaveDir = dir
	cfg.TTSEnabled = false

	logger, err := logging.New(logging.Config{Level: "warn", Encoding: "console", OutputPath: "stderr"})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	game, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open game: %v", err)
	}
	defer game.Close()
	sess := game.Session

	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	player := playerClient.GenerativeModel(cfg.GeminiModel)

	fmt.Println("--- Step 1: The player names a hero ---")
	name := ask(ctx, player, "You are about to play a dark fantasy tabletop RPG. Invent a name for your hero. Return ONLY the name.", "Nameless")
	class := models.ClassPresets[len(name)%len(models.ClassPresets)]
	fmt.Printf("Player chose: %s the %s\n\n", name, class)

	fmt.Println("--- Step 2: Creating the world ---")
	created, err := sess.CreateCharacter(ctx, name, class)
	if err != nil {
		log.Fatalf("Failed to create character: %v", err)
	}
	fmt.Printf("%s\n\nStarting at: %s\n\n", created.Premise, created.Start.Name)

	for turn := 1; turn <= maxTurns; turn++ {
		fmt.Printf("--- Turn %d ---\n", turn)
		move := nextMove(ctx, player, sess)
		fmt.Printf("Player: %s\n", move)
		fmt.Println(play(ctx, sess, move))

		st := sess.State()
		fmt.Printf("HP %d/%d, location %s, inventory %v\n\n",
			st.Character.HP, st.Character.MaxHP, st.CurrentLocationName(), st.Inventory)
	}
}

func ask(ctx context.Context, model *genai.GenerativeModel, prompt, fallback string) string {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return fallback
	}
	text := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if text == "" {
		return fallback
	}
	return text
}

func nextMove(ctx context.Context, model *genai.GenerativeModel, sess *session.Session) string {
	st := sess.State()
	moves := "explore, meet, quest, seek, or act: <what you do>"
	if sess.Mode() == session.ModeInCombat {
		moves = "attack, defend or flee"
	}
	enemy := "none"
	if st.CurrentEncounter != nil {
		enemy = fmt.Sprintf("%s (%d HP)", st.CurrentEncounter.Name, st.CurrentEncounter.HP)
	}

	prompt := fmt.Sprintf(`You are playing a dark fantasy tabletop RPG.
Location: %s
HP: %d/%d
Enemy: %s
Recent events:
%s

Choose your next move: %s. Return ONLY the move.`,
		st.CurrentLocationName(),
		st.Character.HP, st.Character.MaxHP,
		enemy,
		strings.Join(append(st.RecentStory(5), st.RecentCombat(5)...), "\n"),
		moves,
	)
	return strings.ToLower(ask(ctx, model, prompt, "act: look around"))
}

func play(ctx context.Context, sess *session.Session, move string) string {
	switch {
	case move == "explore":
		loc, err := sess.Explore(ctx)
		return report(loc.Name, err)
	case move == "meet":
		npc, err := sess.MeetSomeone(ctx)
		return report(npc.Name, err)
	case move == "quest":
		q, err := sess.GenerateQuest(ctx)
		return report(q.Title, err)
	case move == "seek":
		e, err := sess.SeekCombat(ctx)
		return report(e.Narration, err)
	case move == "attack":
		rd, err := sess.Attack(ctx)
		return report(rd.Narration, err)
	case move == "defend":
		rd, err := sess.Defend()
		return report(rd.Description, err)
	case move == "flee":
		rd, err := sess.Flee()
		return report(rd.Description, err)
	default:
		action := strings.TrimSpace(strings.TrimPrefix(move, "act:"))
		res, err := sess.PerformAction(ctx, action, "")
		return report(fmt.Sprintf("rolled %d vs DC %d: %s", res.Roll.Total, res.Adjudication.DifficultyClass, res.Narration), err)
	}
}

func report(text string, err error) string {
	if err != nil {
		return "GM error: " + err.Error()
	}
	return "GM: " + text
}
