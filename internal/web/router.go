// Package web implements the HTTP API: account endpoints proxied to the
// token service, the command endpoint that runs CLI-style commands, and the
// SSE event stream.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gregdefoy/zettl/internal/auth"
	"github.com/gregdefoy/zettl/internal/llm"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/nutrition"
)

// sessionCookie carries the JWT for browser clients.
const sessionCookie = "zettl_token"

// Deps wires the router's collaborators.
type Deps struct {
	Service     *notes.Service
	Helper      *llm.Helper // nil disables model-backed commands
	Tracker     *nutrition.Tracker
	Auth        *auth.Client   // nil when no token service is configured
	Verifier    *auth.Verifier // nil when auth is disabled
	Broker      *Broker
	Logger      *slog.Logger
	RequireAuth bool
}

// NewRouter builds the /api router.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	runner := newCommandRunner(d.Service, d.Helper, d.Tracker, d.Broker)

	r := chi.NewRouter()

	// Account endpoints are reachable without a session.
	r.Post("/login", d.handleLogin)
	r.Post("/register", d.handleRegister)
	r.Post("/logout", d.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(d.requireAuth)
		r.Post("/command", d.handleCommand(runner))
		r.Post("/generate-api-key", d.proxyAccount("/generate-api-key"))
		r.Get("/list-api-keys", d.proxyAccount("/list-api-keys"))
		if d.Broker != nil {
			r.Get("/events", d.Broker.ServeHTTP)
		}

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", d.handleListConversations)
			r.Post("/", d.handleCreateConversation)
			r.Get("/{id}", d.handleGetConversation)
			r.Patch("/{id}", d.handleRenameConversation)
			r.Delete("/{id}", d.handleDeleteConversation)
			r.Get("/{id}/messages", d.handleGetMessages)
			r.Post("/{id}/messages", d.handleAppendMessage)
		})
	})

	return r
}

// requireAuth admits requests carrying a valid Bearer JWT, session cookie or
// X-API-Key. With auth disabled it is a no-op.
func (d Deps) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}

		if token := bearerToken(r); token != "" && d.Verifier != nil {
			if _, err := d.Verifier.Verify(token); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		if cookie, err := r.Cookie(sessionCookie); err == nil && d.Verifier != nil {
			if _, err := d.Verifier.Verify(cookie.Value); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		if key := r.Header.Get("X-API-Key"); key != "" && d.Auth != nil {
			if _, err := d.Auth.ValidateKey(r.Context(), key); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// handleLogin proxies the credentials to the token service and, on success,
// stores the returned JWT in a session cookie.
func (d Deps) handleLogin(w http.ResponseWriter, r *http.Request) {
	status, body, err := d.forwardAccount(r.Context(), r, "/login")
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}

	if status == http.StatusOK {
		var resp struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(body, &resp) == nil && resp.Token != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    resp.Token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	relayJSON(w, status, body)
}

func (d Deps) handleRegister(w http.ResponseWriter, r *http.Request) {
	status, body, err := d.forwardAccount(r.Context(), r, "/register")
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	relayJSON(w, status, body)
}

func (d Deps) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// proxyAccount forwards an authenticated account request to the token
// service verbatim.
func (d Deps) proxyAccount(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := d.forwardAccount(r.Context(), r, path)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
			return
		}
		relayJSON(w, status, body)
	}
}

func (d Deps) forwardAccount(ctx context.Context, r *http.Request, path string) (int, []byte, error) {
	if d.Auth == nil {
		return http.StatusNotImplemented, []byte(`{"error":"no token service configured"}`), nil
	}

	header := http.Header{}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	if a := r.Header.Get("Authorization"); a != "" {
		header.Set("Authorization", a)
	} else if cookie, err := r.Cookie(sessionCookie); err == nil {
		header.Set("Authorization", "Bearer "+cookie.Value)
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		header.Set("X-API-Key", key)
	}

	return d.Auth.Forward(ctx, r.Method, path, r.Body, header)
}

func relayJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// handleCommand runs one CLI-style command line and returns its output as
// HTML.
func (d Deps) handleCommand(runner *commandRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Command string `json:"command"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}

		html, err := runner.Run(r.Context(), req.Command)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"output": html})
	}
}
