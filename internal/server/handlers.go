package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lightsout/internal/challenge"
	"lightsout/internal/db"
	"lightsout/internal/events"
	"lightsout/internal/game"
	"lightsout/internal/leaderboard"
	"lightsout/internal/metrics"
	"lightsout/internal/sequence"
	"lightsout/internal/utility"
	"lightsout/internal/validation"
	"lightsout/internal/wshub"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Community string `json:"community,omitempty"`
}

// ensurePlayer resolves the caller's anonymous identity from cookies,
// minting a fresh one on first visit. The id cookie must parse as a
// UUID: players.id and scores.player_id are uuid columns, and a tampered
// value would fail every row of the score batch it lands in.
func (s *Server) ensurePlayer(w http.ResponseWriter, r *http.Request) identity {
	var p identity
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			p.ID = c.Value
			if c, err := r.Cookie("player_name"); err == nil {
				p.Name = c.Value
			}
			if c, err := r.Cookie("player_color"); err == nil {
				p.Color = c.Value
			}
		}
	}
	if c, err := r.Cookie("community"); err == nil {
		p.Community = c.Value
	}

	if p.ID != "" && p.Name != "" {
		return p
	}

	p.ID = uuid.New().String()
	p.Name = utility.RandomRacerName()
	p.Color = utility.RandomColorHex()

	for name, value := range map[string]string{
		"player_id":    p.ID,
		"player_name":  p.Name,
		"player_color": p.Color,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
		})
	}

	if s.DB != nil {
		if err := s.DB.UpsertPlayer(p.ID, p.Name, p.Color, p.Community); err != nil {
			logrus.Warnf("upserting player: %v", err)
		}
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type sessionResponse struct {
	ID         string          `json:"id"`
	Phase      game.Phase      `json:"phase"`
	Difficulty game.Difficulty `json:"difficulty"`
	LightCount int             `json:"lightCount"`
	Challenge  string          `json:"challengeCode,omitempty"`
}

func sessionJSON(sess *game.Session, now time.Time) sessionResponse {
	return sessionResponse{
		ID:         sess.ID,
		Phase:      sess.Phase(now),
		Difficulty: sess.Config.Difficulty,
		LightCount: game.LightCount,
		Challenge:  sess.ChallengeCode,
	}
}

func parseDifficulty(raw string) (game.Difficulty, error) {
	switch game.Difficulty(raw) {
	case "", game.DifficultyStandard:
		return game.DifficultyStandard, nil
	case game.DifficultyEasy:
		return game.DifficultyEasy, nil
	case game.DifficultyHard:
		return game.DifficultyHard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.Sessions.Create(player.ID, game.ConfigForDifficulty(difficulty))
	if err != nil {
		logrus.Errorf("creating session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionJSON(sess, time.Now()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionJSON(sess, time.Now()))
}

type scheduleResponse struct {
	LightsOnMs  [game.LightCount]int64 `json:"lightsOnMs"`
	LightsOutMs int64                  `json:"lightsOutMs"`
}

func (s *Server) handleArmSession(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	player := s.ensurePlayer(w, r)
	if sess.PlayerID != player.ID {
		writeError(w, http.StatusForbidden, "not your session")
		return
	}

	sch, err := sess.Arm(time.Now())
	switch {
	case errors.Is(err, game.ErrAlreadyArmed), errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var resp scheduleResponse
	for i, on := range sch.LightsOn {
		resp.LightsOnMs[i] = on.Milliseconds()
	}
	resp.LightsOutMs = sch.LightsOut.Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

type reactResponse struct {
	ReactionMs          int                `json:"reactionMs"`
	FalseStart          bool               `json:"falseStart"`
	Rating              game.Rating        `json:"rating"`
	Accepted            bool               `json:"accepted"`
	Flagged             bool               `json:"flagged"`
	Driver              *driverJSON        `json:"driverComparison,omitempty"`
	CommunityPercentile float64            `json:"communityPercentile"`
	IsPersonalBest      bool               `json:"isPersonalBest"`
	Challenge           *challengeResponse `json:"challenge,omitempty"`
}

type driverJSON struct {
	DriverID string `json:"driverId"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	DeltaMs  int    `json:"deltaMs"`
	Beat     bool   `json:"beat"`
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	player := s.ensurePlayer(w, r)
	if sess.PlayerID != player.ID {
		writeError(w, http.StatusForbidden, "not your session")
		return
	}

	now := time.Now()
	res, err := sess.React(now)
	switch {
	case errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, "session already finished")
		return
	case errors.Is(err, game.ErrNotArmed):
		writeError(w, http.StatusConflict, "session not armed")
		return
	case errors.Is(err, game.ErrTimedOut):
		writeError(w, http.StatusUnprocessableEntity, "reaction window elapsed")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	vres, err := s.Validator.Validate(r.Context(), validation.Submission{
		PlayerID:   player.ID,
		SessionID:  sess.ID,
		ReactionMs: res.ReactionMs,
		FalseStart: res.FalseStart,
	}, now)
	if err != nil {
		logrus.Errorf("validating submission: %v", err)
		writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	if vres.RateLimit != nil && !vres.RateLimit.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(vres.RateLimit.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "submission rate limit exceeded")
		return
	}

	resp := reactResponse{
		ReactionMs: res.ReactionMs,
		FalseStart: res.FalseStart,
		Rating:     res.Rating,
		Accepted:   vres.Accepted,
		Flagged:    vres.Flagged,
	}
	if res.DriverComparison != nil {
		d := res.DriverComparison
		resp.Driver = &driverJSON{
			DriverID: d.Driver.ID,
			Name:     d.Driver.Name,
			Team:     d.Driver.Team,
			DeltaMs:  d.DeltaMs,
			Beat:     d.Beat,
		}
	}

	switch {
	case !vres.Accepted:
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
	case vres.Flagged:
		metrics.SubmissionsTotal.WithLabelValues("flagged").Inc()
		metrics.FlaggedTotal.Inc()
	default:
		metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	}

	// Only clean, accepted times enter the rankings. Flagged and
	// rejected submissions still go to the durable log for review.
	if vres.Accepted && !vres.Flagged && !res.FalseStart {
		s.indexScore(r, player, res.ReactionMs, now, &resp)
	}

	s.bufferScore(db.ScoreEvent{
		PlayerID:    player.ID,
		SessionID:   sess.ID,
		ReactionMs:  res.ReactionMs,
		Rating:      string(res.Rating),
		Difficulty:  string(sess.Config.Difficulty),
		Community:   player.Community,
		Flagged:     vres.Flagged || !vres.Accepted,
		FlagReasons: vres.Reasons,
		RecordedAt:  now,
	})

	if sess.ChallengeCode != "" {
		// A flagged or rejected time cannot win a duel; it counts as an
		// invalid attempt, same as a jump start.
		invalid := res.FalseStart || !vres.Accepted || vres.Flagged
		snap, err := s.Challenges.SubmitAttempt(sess.ChallengeCode, player.ID, res.ReactionMs, invalid, now)
		switch {
		case err == nil:
			cr := challengeJSON(snap)
			resp.Challenge = &cr
			if snap.Resolved() {
				result := "win"
				if snap.Draw {
					result = "draw"
				}
				metrics.ChallengesResolvedTotal.WithLabelValues(result).Inc()
			}
		case errors.Is(err, challenge.ErrExpired):
			writeError(w, http.StatusGone, "challenge expired")
			return
		case errors.Is(err, challenge.ErrAlreadyPlayed):
			// Session replays are blocked above, so this only happens
			// if the player opened two sessions for one challenge.
			writeError(w, http.StatusConflict, "already played this challenge")
			return
		default:
			logrus.Errorf("submitting challenge attempt: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// indexScore submits a clean time to the ranked boards and fills in the
// rank-derived response fields.
func (s *Server) indexScore(r *http.Request, player identity, reactionMs int, now time.Time, resp *reactResponse) {
	ctx := r.Context()

	scopes := []string{leaderboard.GlobalScope}
	if player.Community != "" {
		scopes = append(scopes, leaderboard.CommunityScope(player.Community))
	}
	for _, scope := range scopes {
		improved, err := s.Boards.Submit(ctx, scope, player.ID, reactionMs, now)
		if err != nil {
			logrus.Errorf("submitting to leaderboard: %v", err)
			continue
		}
		for _, period := range improved {
			select {
			case s.Bus.LeaderboardUpdates <- events.LeaderboardUpdateEvent{
				Scope:      scope,
				Period:     string(period),
				PlayerID:   player.ID,
				ReactionMs: reactionMs,
			}:
			default:
			}
		}
	}

	pct, err := s.Boards.Percentile(ctx, leaderboard.GlobalScope, reactionMs, now)
	if err != nil {
		logrus.Errorf("computing percentile: %v", err)
	} else {
		resp.CommunityPercentile = pct
	}

	if s.DB != nil {
		best, ok, err := s.DB.PersonalBest(player.ID)
		if err != nil {
			logrus.Errorf("reading personal best: %v", err)
		} else if !ok || reactionMs < best {
			resp.IsPersonalBest = true
		}
	}
}

func parsePeriod(raw string) (leaderboard.Period, error) {
	switch leaderboard.Period(raw) {
	case "", leaderboard.PeriodAllTime:
		return leaderboard.PeriodAllTime, nil
	case leaderboard.PeriodDaily:
		return leaderboard.PeriodDaily, nil
	case leaderboard.PeriodWeekly:
		return leaderboard.PeriodWeekly, nil
	default:
		return "", fmt.Errorf("unknown period %q", raw)
	}
}

func scopeFromQuery(r *http.Request) string {
	if community := r.URL.Query().Get("community"); community != "" {
		return leaderboard.CommunityScope(community)
	}
	return leaderboard.GlobalScope
}

type rankedEntry struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"playerId"`
	Name       string `json:"name,omitempty"`
	ReactionMs int    `json:"reactionMs"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			n = v
		}
	}

	entries, err := s.Boards.Top(r.Context(), scopeFromQuery(r), period, n, time.Now())
	if err != nil {
		logrus.Errorf("reading leaderboard: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	ranked := make([]rankedEntry, 0, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.PlayerID)
		ranked = append(ranked, rankedEntry{Rank: e.Rank, PlayerID: e.PlayerID, ReactionMs: e.ReactionMs})
	}
	if s.DB != nil {
		if names, err := s.DB.GetPlayerNames(ids); err == nil {
			for i := range ranked {
				ranked[i].Name = names[ranked[i].PlayerID]
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period":  period,
		"entries": ranked,
	})
}

func (s *Server) handleMyRank(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)
	period, err := parsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rank, ok, err := s.Boards.Rank(r.Context(), scopeFromQuery(r), period, player.ID, time.Now())
	if err != nil {
		logrus.Errorf("reading rank: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read rank")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period": period,
		"ranked": ok,
		"rank":   rank,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)

	resp := map[string]any{"player": player}
	if s.DB != nil {
		if stats, err := s.DB.GetPlayerStats(player.ID); err == nil {
			resp["stats"] = map[string]any{
				"attempts":    stats.Attempts,
				"bestMs":      stats.BestMs,
				"avgMs":       stats.AvgMs,
				"falseStarts": stats.FalseStarts,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "stats require a database")
		return
	}
	id := chi.URLParam(r, "id")
	stats, err := s.DB.GetPlayerStats(id)
	if err != nil {
		logrus.Errorf("reading player stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playerId":    id,
		"attempts":    stats.Attempts,
		"bestMs":      stats.BestMs,
		"avgMs":       stats.AvgMs,
		"falseStarts": stats.FalseStarts,
	})
}

type challengeResponse struct {
	Code       string          `json:"code"`
	Status     string          `json:"status"`
	Difficulty game.Difficulty `json:"difficulty"`
	CreatorID  string          `json:"creatorId"`
	AcceptorID string          `json:"acceptorId,omitempty"`
	WinnerID   string          `json:"winnerId,omitempty"`
	Draw       bool            `json:"draw,omitempty"`
	SeedHash   string          `json:"seedHash"`
	Seed       string          `json:"seed,omitempty"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// challengeJSON exposes the seed hash up front and reveals the seed
// itself only after both sides have played, so either player can verify
// the shared timing was fixed at creation.
func challengeJSON(c challenge.Challenge) challengeResponse {
	resp := challengeResponse{
		Code:       c.Code,
		Status:     string(c.Status),
		Difficulty: c.Difficulty,
		CreatorID:  c.CreatorID,
		AcceptorID: c.AcceptorID,
		WinnerID:   c.WinnerID,
		Draw:       c.Draw,
		SeedHash:   sequence.HashSeed(c.Seed),
		ExpiresAt:  c.ExpiresAt,
	}
	if c.Resolved() {
		resp.Seed = c.Seed
	}
	return resp
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)

	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.Challenges.Create(player.ID, difficulty)
	if err != nil {
		logrus.Errorf("creating challenge: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create challenge")
		return
	}
	writeJSON(w, http.StatusCreated, challengeJSON(c))
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	c, ok := s.Challenges.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	writeJSON(w, http.StatusOK, challengeJSON(c))
}

func (s *Server) handleAcceptChallenge(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)
	code := strings.ToUpper(chi.URLParam(r, "code"))

	c, err := s.Challenges.Accept(code, player.ID)
	switch {
	case errors.Is(err, challenge.ErrNotFound):
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	case errors.Is(err, challenge.ErrExpired):
		writeError(w, http.StatusGone, "challenge expired")
		return
	case errors.Is(err, challenge.ErrSelfAccept):
		writeError(w, http.StatusBadRequest, "cannot accept your own challenge")
		return
	case errors.Is(err, challenge.ErrAlreadyAccepted):
		writeError(w, http.StatusConflict, "challenge already accepted")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.Challenges.Hub(code).BroadcastExcept(player.ID, wshub.ServerMessage{
		Type:     "accept",
		PlayerID: player.ID,
		Name:     player.Name,
	})
	writeJSON(w, http.StatusOK, challengeJSON(c))
}

// handlePlayChallenge opens a session bound to the challenge seed, so
// both sides face the exact same lights timing.
func (s *Server) handlePlayChallenge(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)
	code := strings.ToUpper(chi.URLParam(r, "code"))

	c, ok := s.Challenges.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	if c.Status == challenge.StatusExpired || time.Now().After(c.ExpiresAt) {
		writeError(w, http.StatusGone, "challenge expired")
		return
	}
	if player.ID != c.CreatorID && player.ID != c.AcceptorID {
		writeError(w, http.StatusForbidden, "accept the challenge first")
		return
	}
	played := (player.ID == c.CreatorID && c.CreatorAttempt != nil) ||
		(player.ID == c.AcceptorID && c.AcceptorAttempt != nil)
	if played {
		writeError(w, http.StatusConflict, "already played this challenge")
		return
	}

	sess := s.Sessions.CreateWithSeed(player.ID, game.ConfigForDifficulty(c.Difficulty), c.Seed, 0, c.Code)
	writeJSON(w, http.StatusCreated, sessionJSON(sess, time.Now()))
}

// handleChallengeSocket joins the live challenge room over WebSocket.
func (s *Server) handleChallengeSocket(w http.ResponseWriter, r *http.Request) {
	player := s.ensurePlayer(w, r)
	code := strings.ToUpper(chi.URLParam(r, "code"))

	c, ok := s.Challenges.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	if player.ID != c.CreatorID && player.ID != c.AcceptorID {
		writeError(w, http.StatusForbidden, "not part of this challenge")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logrus.Errorf("accepting websocket: %v", err)
		return
	}

	hub := s.Challenges.Hub(code)
	client := &wshub.Client{
		PlayerID: player.ID,
		Name:     player.Name,
		Conn:     conn,
		Send:     make(chan []byte, 16),
	}
	hub.Register(client)
	metrics.ConnectedClients.Inc()
	hub.BroadcastExcept(player.ID, wshub.ServerMessage{
		Type:     "join",
		PlayerID: player.ID,
		Name:     player.Name,
	})

	ctx := r.Context()
	go client.WritePump(ctx)

	// Reads only keep the connection alive; state changes arrive
	// through the REST handlers.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	hub.Unregister(player.ID)
	metrics.ConnectedClients.Dec()
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := s.Broadcaster.Subscribe()
	defer s.Broadcaster.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "db_error",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
