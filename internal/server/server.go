package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bloodbridge/internal/app"
	"bloodbridge/internal/ratelimit"
	"bloodbridge/internal/util"
	"bloodbridge/pkg/domain"
	"bloodbridge/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RedisAddr     string
	RedisPassword string

	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
	RequestRateLimitPerMinute  int
	SOSRateLimitPerMinute      int
}

// Server exposes the HTTP API.
type Server struct {
	app *app.App
	mux *http.ServeMux

	registerLimiter *ratelimit.RouteLimiter
	loginLimiter    *ratelimit.RouteLimiter
	requestLimiter  *ratelimit.RouteLimiter
	sosLimiter      *ratelimit.RouteLimiter
}

// New constructs the server with routes configured. The limiter backend
// connects only when at least one limit is above zero; a zero limit
// disables limiting for that route.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	var limits *ratelimit.Client
	if cfg.RegisterRateLimitPerMinute > 0 || cfg.LoginRateLimitPerMinute > 0 ||
		cfg.RequestRateLimitPerMinute > 0 || cfg.SOSRateLimitPerMinute > 0 {
		var err error
		limits, err = ratelimit.NewClient(cfg.RedisAddr, cfg.RedisPassword, "bloodbridge:ratelimit")
		if err != nil {
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
	}
	s.registerLimiter = limits.PerMinute("register", cfg.RegisterRateLimitPerMinute)
	s.loginLimiter = limits.PerMinute("login", cfg.LoginRateLimitPerMinute)
	s.requestLimiter = limits.PerMinute("request", cfg.RequestRateLimitPerMinute)
	s.sosLimiter = limits.PerMinute("sos", cfg.SOSRateLimitPerMinute)
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return withRequestID(withAccessLog(withSecurityHeaders(withCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/blood-facts", s.handleBloodFact)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/users/me/stats", s.authenticated(s.handleMyStats))

	// blood requests
	s.mux.Handle("/api/requests", s.authenticated(s.handleRequests))
	s.mux.Handle("/api/requests/compatible", s.authenticated(s.handleCompatibleRequests))
	s.mux.Handle("/api/requests/mine", s.authenticated(s.handleMyRequests))
	s.mux.Handle("/api/requests/donations", s.authenticated(s.handleMyDonations))
	s.mux.Handle("/api/requests/", s.authenticated(s.handleRequestAction))

	// emergency alerts
	s.mux.Handle("/api/alerts", s.authenticated(s.handleAlerts))
	s.mux.Handle("/api/alerts/", s.authenticated(s.handleAlertAction))

	// community
	s.mux.Handle("/api/leaderboard", s.authenticated(s.handleLeaderboard))
	s.mux.Handle("/api/inventory", s.authenticated(s.handleInventory))
	s.mux.Handle("/api/camps", s.authenticated(s.handleCamps))
	s.mux.Handle("/api/camps/", s.authenticated(s.handleCampAction))
	s.mux.Handle("/api/activity", s.authenticated(s.handleActivity))
	s.mux.Handle("/api/realtime", s.authenticated(s.handleRealtime))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBloodFact serves a rotating donation fact. Public, no auth.
func (s *Server) handleBloodFact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fact": app.RandomBloodFact()})
}

// auth wrapper
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.app.TouchPresence(user.ID)
		next(w, r, user)
	})
}

// auth handlers

type registerRequest struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	BloodType string `json:"bloodType"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := s.app.Register(req.FullName, req.Email, req.Phone, req.Password, req.BloodType); err != nil {
		writeAppError(w, r, err)
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		slog.Warn("logout failed", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats(user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// request handlers

type createRequestRequest struct {
	BloodType    string `json:"bloodType"`
	Location     string `json:"location"`
	Quantity     int    `json:"quantity"`
	Urgency      string `json:"urgency"`
	ContactPhone string `json:"contactPhone"`
	Notes        string `json:"notes"`
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		if !s.allowRate(w, r, s.requestLimiter, "too many blood requests") {
			return
		}
		var req createRequestRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := s.app.CreateRequest(user.ID, app.CreateRequestInput{
			BloodType:    req.BloodType,
			Location:     req.Location,
			Quantity:     req.Quantity,
			Urgency:      req.Urgency,
			ContactPhone: req.ContactPhone,
			Notes:        req.Notes,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		requests, err := s.app.AllRequests()
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": requests, "count": len(requests)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCompatibleRequests(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	requests, err := s.app.CompatibleRequests(user.BloodType)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": requests, "count": len(requests)})
}

func (s *Server) handleMyRequests(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	requests, err := s.app.RequestsByRequester(user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": requests, "count": len(requests)})
}

func (s *Server) handleMyDonations(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	donations, err := s.app.DonationsByDonor(user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": donations, "count": len(donations)})
}

// handleRequestAction routes /api/requests/{id}/{accept|confirm|cancel}.
func (s *Server) handleRequestAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, action, ok := splitAction(r.URL.Path, "/api/requests/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var (
		updated domain.BloodRequest
		err     error
	)
	switch action {
	case "accept":
		updated, err = s.app.AcceptRequest(id, user.ID)
	case "confirm":
		updated, err = s.app.ConfirmDonation(id, user.ID)
	case "cancel":
		updated, err = s.app.CancelRequest(id, user.ID)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// alert handlers

type raiseAlertRequest struct {
	BloodType    string `json:"bloodType"`
	Location     string `json:"location"`
	Hospital     string `json:"hospital"`
	ContactPhone string `json:"contactPhone"`
	Details      string `json:"details"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		if !s.allowRate(w, r, s.sosLimiter, "too many SOS alerts") {
			return
		}
		var req raiseAlertRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		alert, err := s.app.RaiseAlert(user.ID, app.RaiseAlertInput{
			BloodType:    req.BloodType,
			Location:     req.Location,
			Hospital:     req.Hospital,
			ContactPhone: req.ContactPhone,
			Details:      req.Details,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, alert)
	case http.MethodGet:
		alerts, err := s.app.ActiveAlerts(user)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": alerts, "count": len(alerts)})
	default:
		methodNotAllowed(w)
	}
}

// handleAlertAction routes /api/alerts/{id}/{respond|deactivate}.
func (s *Server) handleAlertAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, action, ok := splitAction(r.URL.Path, "/api/alerts/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var (
		alert domain.EmergencyAlert
		err   error
	)
	switch action {
	case "respond":
		alert, err = s.app.RespondToAlert(id, user.ID)
	case "deactivate":
		alert, err = s.app.DeactivateAlert(id, user.ID)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// community handlers

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.Leaderboard()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	snapshot, err := s.app.InventorySnapshot()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCamps(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	camps, err := s.app.ListCamps(user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": camps, "count": len(camps)})
}

// handleCampAction routes /api/camps/{id}/register.
func (s *Server) handleCampAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, action, ok := splitAction(r.URL.Path, "/api/camps/")
	if !ok || action != "register" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	camp, err := s.app.RegisterForCamp(id, user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, camp)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	feed, err := s.app.RecentActivity(50)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": feed, "count": len(feed)})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	snapshot, err := s.app.RealtimeSnapshot()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// helpers

// splitAction parses "{prefix}{id}/{action}" paths.
func splitAction(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors to HTTP statuses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrPermission), errors.Is(err, app.ErrSelfAction):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrInvalidState), errors.Is(err, app.ErrAlreadyResponded),
		errors.Is(err, app.ErrEmailAlreadyExists), errors.Is(err, app.ErrPhoneAlreadyExists),
		errors.Is(err, store.ErrCampFull), errors.Is(err, store.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.RouteLimiter, msg string) bool {
	if limiter.AllowIP(clientIP(r)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
