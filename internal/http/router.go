package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whatlove/getinthegame/internal/repository"
	"github.com/whatlove/getinthegame/internal/session"
	"github.com/whatlove/getinthegame/internal/ws"
)

// Router wires the session command/query API to HTTP.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	store    *session.Store
	archive  repository.MatchArchive
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 30
	rateLimitCommand   = 120
	rateLimitQuery     = 240
	rateLimitStream    = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, store *session.Store, archive repository.MatchArchive, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		store:   store,
		archive: archive,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("/players", r.audit(r.withRateLimit(rateLimitRegister, rateWindowDefault, r.handlePlayers)))
	r.mux.HandleFunc("/players/", r.audit(r.withRateLimit(rateLimitCommand, rateWindowDefault, r.handlePlayerSubroutes)))
	r.mux.HandleFunc("/teams/available", r.audit(r.withRateLimit(rateLimitQuery, rateWindowDefault, r.handleAvailableTeams)))
	r.mux.HandleFunc("/teams/", r.audit(r.withRateLimit(rateLimitCommand, rateWindowDefault, r.handleTeamSubroutes)))
	r.mux.HandleFunc("/courts/", r.audit(r.withRateLimit(rateLimitCommand, rateWindowDefault, r.handleCourtSubroutes)))
	r.mux.HandleFunc("/session/", r.audit(r.withRateLimit(rateLimitCommand, rateWindowDefault, r.handleSession)))
	r.mux.HandleFunc("/session/stream", r.audit(r.withRateLimit(rateLimitStream, rateWindowRealtime, r.handleSessionStream)))
	r.mux.HandleFunc("/matches", r.audit(r.withRateLimit(rateLimitQuery, rateWindowDefault, r.handleMatches)))
	r.mux.HandleFunc("/matches/archive", r.audit(r.withRateLimit(rateLimitQuery, rateWindowDefault, r.handleMatchArchive)))
	r.mux.HandleFunc("/ws/session", r.audit(r.withRateLimit(rateLimitStream, rateWindowRealtime, r.handleSessionWS)))
}

func (r *Router) handlePlayers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name string `json:"name"`
		Pin  string `json:"pin"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	player, err := r.store.RegisterPlayer(req.Context(), payload.Name, payload.Pin)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (r *Router) handlePlayerSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/players/")
	parts := strings.Split(trimmed, "/")
	playerID, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	switch {
	case len(parts) == 1:
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		if err := r.store.RemovePlayer(req.Context(), playerID); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "verify-pin":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		pin, ok := r.decodePin(w, req)
		if !ok {
			return
		}
		valid, err := r.store.VerifyPin(req.Context(), playerID, pin)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})

	case len(parts) == 2 && parts[1] == "team":
		if req.Method != http.MethodDelete {
			r.methodNotAllowed(w)
			return
		}
		pin, ok := r.decodePin(w, req)
		if !ok {
			return
		}
		if !r.gatePin(w, req, playerID, pin) {
			return
		}
		if err := r.store.RemovePlayerFromTeam(req.Context(), playerID); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		r.notFound(w)
	}
}

func (r *Router) handleAvailableTeams(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	teams := make([]any, 0)
	snapshot := r.store.Snapshot()
	for team := range r.store.AvailableTeams() {
		teams = append(teams, map[string]any{
			"id":         team.ID,
			"name":       team.Name(),
			"color":      team.Color,
			"order":      team.Order,
			"roster":     team.Roster,
			"open_spots": team.OpenSpots(snapshot.PlayersPerTeam),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"teams":            teams,
		"players_per_team": snapshot.PlayersPerTeam,
	})
}

func (r *Router) handleTeamSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/teams/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		r.notFound(w)
		return
	}
	teamID, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}

	switch parts[1] {
	case "players":
		var payload struct {
			PlayerID uuid.UUID `json:"player_id"`
			Pin      string    `json:"pin"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !r.gatePin(w, req, payload.PlayerID, payload.Pin) {
			return
		}
		if err := r.store.AddPlayerToTeam(req.Context(), payload.PlayerID, teamID); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "score":
		var payload struct {
			Score int `json:"score"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := r.store.RecordScore(req.Context(), teamID, payload.Score); err != nil {
			writeCommandError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "exit":
		if err := r.store.RequestCourtExit(req.Context(), teamID); err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, r.store.Snapshot())

	default:
		r.notFound(w)
	}
}

func (r *Router) handleCourtSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/courts/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		r.notFound(w)
		return
	}
	court, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid court number")
		return
	}
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}

	switch parts[1] {
	case "enter":
		var payload struct {
			TeamID uuid.UUID `json:"team_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		res, err := r.store.RequestCourtEntry(req.Context(), payload.TeamID, court)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		r.writeEntryResult(w, res)

	case "resolve-full":
		var payload struct {
			BumpedTeamID  uuid.UUID `json:"bumped_team_id"`
			WaitingTeamID uuid.UUID `json:"waiting_team_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		res, err := r.store.ResolveCourtFull(req.Context(), payload.BumpedTeamID, court, payload.WaitingTeamID)
		if err != nil {
			writeCommandError(w, err)
			return
		}
		r.writeEntryResult(w, res)

	default:
		r.notFound(w)
	}
}

// writeEntryResult answers 200 for a placement and 202 when the request is
// parked behind an advisory the caller still has to act on.
func (r *Router) writeEntryResult(w http.ResponseWriter, res session.EntryResult) {
	status := http.StatusOK
	if !res.Placed {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/session/snapshot":
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, r.store.Snapshot())

	case "/session/players-per-team":
		if req.Method != http.MethodPut {
			r.methodNotAllowed(w)
			return
		}
		var payload struct {
			PlayersPerTeam int `json:"players_per_team"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		applied := r.store.SetPlayersPerTeam(req.Context(), payload.PlayersPerTeam)
		writeJSON(w, http.StatusOK, map[string]int{"players_per_team": applied})

	case "/session/dismiss-order-violation":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		r.store.DismissOrderViolation(req.Context())
		w.WriteHeader(http.StatusNoContent)

	case "/session/dismiss-court-full":
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		r.store.DismissCourtFull(req.Context())
		w.WriteHeader(http.StatusNoContent)

	default:
		r.notFound(w)
	}
}

func (r *Router) handleMatches(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.store.Matches())
}

func (r *Router) handleMatchArchive(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	records, err := r.archive.ListMatches(req.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (r *Router) handleSessionWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	if payload, err := json.Marshal(r.store.Snapshot()); err == nil {
		_ = client.Send(payload)
	}
	r.hub.Register(client)
	go func() {
		defer func() {
			r.hub.Unregister(client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleSessionStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	if payload, err := json.Marshal(r.store.Snapshot()); err == nil {
		_ = client.Send(payload)
	}
	r.hub.Register(client)
	defer func() {
		r.hub.Unregister(client)
		client.Close()
	}()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-heartbeat.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := map[string]string{"session": "ok"}
	status := http.StatusOK
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			components["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components["database"] = "ok"
		}
	}
	writeJSON(w, status, map[string]any{
		"status":     http.StatusText(status),
		"components": components,
	})
}

// decodePin reads the {pin} body shared by the PIN-gated routes.
func (r *Router) decodePin(w http.ResponseWriter, req *http.Request) (string, bool) {
	var payload struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	return payload.Pin, true
}

// gatePin enforces the player's PIN before membership changes.
func (r *Router) gatePin(w http.ResponseWriter, req *http.Request, playerID uuid.UUID, pin string) bool {
	valid, err := r.store.VerifyPin(req.Context(), playerID, pin)
	if err != nil {
		writeCommandError(w, err)
		return false
	}
	if !valid {
		writeCommandError(w, session.ErrPinMismatch)
		return false
	}
	return true
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
