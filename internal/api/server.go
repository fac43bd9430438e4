// Package api exposes a game session over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tatianab/voidwalkers/internal/models"
	"github.com/tatianab/voidwalkers/internal/session"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// AudioDir is served under /audio/.
	AudioDir string
	// Limiter is optional.
	Limiter *ClientLimiter
	// TrustProxy takes the client address from X-Real-IP or the first
	// X-Forwarded-For hop. Only enable it behind a proxy that sets them.
	TrustProxy bool
}

// Server handles HTTP requests for one session.
type Server struct {
	router  chi.Router
	session *session.Session
	opts    Options
	log     *zap.Logger
}

// NewServer creates a Server.
func NewServer(sess *session.Session, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:  chi.NewRouter(),
		session: sess,
		opts:    opts,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	if s.opts.Limiter != nil {
		s.router.Use(s.rateLimit)
	}
	s.router.Use(middleware.RequestSize(maxBodyBytes))

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Get("/state", s.getState)
		r.Get("/log", s.getLog)
		r.Post("/character", s.createCharacter)
		r.Post("/explore", s.explore)
		r.Post("/travel", s.travel)
		r.Post("/meet", s.meet)
		r.Post("/quests", s.generateQuest)
		r.Post("/quests/{id}/complete", s.completeQuest)
		r.Post("/combat/seek", s.seekCombat)
		r.Post("/combat/attack", s.attack)
		r.Post("/combat/defend", s.defend)
		r.Post("/combat/flee", s.flee)
		r.Post("/action", s.performAction)
		r.Post("/roll", s.roll)
		r.Post("/new-game", s.newGame)
		r.Get("/saves", s.listSaves)
		r.Post("/saves", s.save)
		r.Post("/saves/{name}/load", s.load)
		r.Post("/speech", s.speak)
	})

	s.router.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(s.opts.AudioDir))))
}

// rateLimit rejects clients over their limit with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.Limiter.Allow(clientIP(r)) {
			s.writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to write response",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, data any) {
	s.writeJSON(w, r, http.StatusOK, Response{Success: true, Data: data})
}

// writeError writes an error reply. Internal errors are not described.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	s.writeJSON(w, r, status, Response{Success: false, Error: message})
}

// fail reports an operation error. Upstream failures only name their kind.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	message := err.Error()
	if status >= 500 {
		s.log.Error("Operation failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if kind != nil {
			message = kind.Error()
		}
	}
	s.writeError(w, r, status, message)
}

var errBadBody = errors.New("invalid request body")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errBadBody.Error())
		return false
	}
	return true
}

type stateView struct {
	Mode  string `json:"mode"`
	State any    `json:"state"`
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, stateView{Mode: s.session.Mode().String(), State: s.session.State()})
}

type logView struct {
	Story    []string     `json:"story"`
	Combat   []string     `json:"combat"`
	NPCsHere []models.NPC `json:"npcs_here"`
}

func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	st := s.session.State()
	view := logView{
		Story:    st.RecentStory(models.StoryLogView),
		Combat:   st.RecentCombat(models.CombatLogView),
		NPCsHere: []models.NPC{},
	}
	if st.CurrentLocation != nil {
		view.NPCsHere = append(view.NPCsHere, st.NPCsAt(*st.CurrentLocation)...)
	}
	s.writeData(w, r, view)
}

func (s *Server) createCharacter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Class string `json:"class"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.session.CreateCharacter(r.Context(), req.Name, req.Class)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, Response{Success: true, Data: map[string]any{
		"character": res.Character,
		"premise":   res.Premise,
		"location":  res.Start,
		"fallback":  res.Fallback,
	}})
}

func (s *Server) explore(w http.ResponseWriter, r *http.Request) {
	loc, err := s.session.Explore(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, loc)
}

func (s *Server) travel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.session.Travel(req.Location); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, map[string]string{"current_location": req.Location})
}

func (s *Server) meet(w http.ResponseWriter, r *http.Request) {
	npc, err := s.session.MeetSomeone(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, npc)
}

func (s *Server) generateQuest(w http.ResponseWriter, r *http.Request) {
	quest, err := s.session.GenerateQuest(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, quest)
}

func (s *Server) completeQuest(w http.ResponseWriter, r *http.Request) {
	quest, err := s.session.CompleteQuest(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, quest)
}

type engagementView struct {
	Encounter any    `json:"encounter"`
	Narration string `json:"narration"`
	Fallback  bool   `json:"fallback"`
}

func (s *Server) seekCombat(w http.ResponseWriter, r *http.Request) {
	e, err := s.session.SeekCombat(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, engagementView{Encounter: e.Encounter, Narration: e.Narration, Fallback: e.Fallback})
}

type roundView struct {
	Description string   `json:"description"`
	Narration   string   `json:"narration,omitempty"`
	DamageDealt int      `json:"damage_dealt"`
	DamageTaken int      `json:"damage_taken"`
	PlayerHP    int      `json:"player_hp"`
	EnemyHP     int      `json:"enemy_hp"`
	Victory     bool     `json:"victory"`
	Defeat      bool     `json:"defeat"`
	Fled        bool     `json:"fled"`
	Loot        []string `json:"loot,omitempty"`
	Fallback    bool     `json:"fallback"`
}

func viewRound(rd session.Round) roundView {
	return roundView{
		Description: rd.Description,
		Narration:   rd.Narration,
		DamageDealt: rd.DamageDealt,
		DamageTaken: rd.DamageTaken,
		PlayerHP:    rd.PlayerHP,
		EnemyHP:     rd.EnemyHP,
		Victory:     rd.Victory,
		Defeat:      rd.Defeat,
		Fled:        rd.Fled,
		Loot:        rd.Loot,
		Fallback:    rd.Fallback,
	}
}

func (s *Server) attack(w http.ResponseWriter, r *http.Request) {
	rd, err := s.session.Attack(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, viewRound(rd))
}

func (s *Server) defend(w http.ResponseWriter, r *http.Request) {
	rd, err := s.session.Defend()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, viewRound(rd))
}

func (s *Server) flee(w http.ResponseWriter, r *http.Request) {
	rd, err := s.session.Flee()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, viewRound(rd))
}

func (s *Server) performAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     string `json:"action"`
		Difficulty string `json:"difficulty"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.session.PerformAction(r.Context(), req.Action, req.Difficulty)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, map[string]any{
		"action":       res.Action,
		"adjudication": res.Adjudication,
		"roll":         res.Roll,
		"success":      res.Success,
		"narration":    res.Narration,
		"fallback":     res.Fallback,
	})
}

func (s *Server) roll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.session.RollDice(req.Expression)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, res)
}

func (s *Server) newGame(w http.ResponseWriter, r *http.Request) {
	if err := s.session.NewGame(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getState(w, r)
}

func (s *Server) listSaves(w http.ResponseWriter, r *http.Request) {
	saves, err := s.session.Saves()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, saves)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	slot, err := s.session.SaveAs(req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, Response{Success: true, Data: map[string]string{"slot": slot}})
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Load(chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.getState(w, r)
}

func (s *Server) speak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	path, err := s.session.Speak(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeData(w, r, map[string]string{"url": "/audio/" + filepath.Base(path)})
}
