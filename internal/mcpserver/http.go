package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gregdefoy/zettl/internal/auth"
)

// HTTPHandler exposes the MCP server over HTTP: the streamable MCP transport
// at the mount root, plus plain REST routes for clients that do not speak
// JSON-RPC (GET /tools lists the tools, POST /tool/{name} invokes one with a
// JSON arguments body). With requireAuth set, requests must carry a Bearer
// JWT the verifier accepts or an X-API-Key the token service validates;
// GET /health stays open either way.
func HTTPHandler(s *Server, verifier *auth.Verifier, authClient *auth.Client, requireAuth bool) http.Handler {
	transport := server.NewStreamableHTTPServer(s.mcp)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		if requireAuth {
			r.Use(requireMCPAuth(verifier, authClient))
		}
		r.Get("/tools", s.handleListTools)
		r.Post("/tool/{name}", s.handleCallTool)
		r.Handle("/", transport)
	})

	return r
}

func requireMCPAuth(verifier *auth.Verifier, authClient *auth.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" && verifier != nil {
				if _, err := verifier.Verify(token); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			if key := r.Header.Get("X-API-Key"); key != "" && authClient != nil {
				if _, err := authClient.ValidateKey(r.Context(), key); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
		})
	}
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.relayRPC(w, r, []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	args := json.RawMessage(`{}`)
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if !json.Valid(body) {
			http.Error(w, `{"error":"arguments must be a JSON object"}`, http.StatusBadRequest)
			return
		}
		args = body
	}

	req := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":%q,"arguments":%s}}`,
		chi.URLParam(r, "name"), args)
	s.relayRPC(w, r, []byte(req))
}

// relayRPC feeds one JSON-RPC message to the MCP server and writes the
// result (or the JSON-RPC error) back as plain JSON.
func (s *Server) relayRPC(w http.ResponseWriter, r *http.Request, message []byte) {
	resp := s.mcp.HandleMessage(r.Context(), message)

	raw, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if len(envelope.Error) > 0 && string(envelope.Error) != "null" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(envelope.Error)
		return
	}
	_, _ = w.Write(envelope.Result)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
