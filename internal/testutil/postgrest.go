// Package testutil provides an in-memory PostgREST lookalike for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Rest is a minimal in-memory PostgREST stand-in covering the filter grammar
// the application uses: eq, ilike, gte, lt, in.(...), order, limit, select.
type Rest struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	srv    *httptest.Server

	lastAuth string
}

// NewRest starts a fake PostgREST server with empty notes, tags, links,
// conversations and messages tables. It is shut down with the test.
func NewRest(t *testing.T) *Rest {
	t.Helper()
	f := &Rest{tables: map[string][]map[string]any{
		"notes":         {},
		"tags":          {},
		"links":         {},
		"conversations": {},
		"messages":      {},
	}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// URL returns the server's base URL.
func (f *Rest) URL() string { return f.srv.URL }

// Insert adds a row to a table directly, bypassing HTTP.
func (f *Rest) Insert(table string, row map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], row)
}

// Count returns the number of rows in a table.
func (f *Rest) Count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

// Clear empties a table.
func (f *Rest) Clear(table string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = nil
}

// LastAuth returns the Authorization header of the most recent request.
func (f *Rest) LastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *Rest) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAuth = r.Header.Get("Authorization")
	table := strings.Trim(r.URL.Path, "/")
	rows, ok := f.tables[table]
	if !ok {
		http.Error(w, `{"message":"relation does not exist"}`, http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	matches, rest := splitRows(rows, q)

	switch r.Method {
	case http.MethodGet:
		writeRows(w, project(ordered(matches, q), q))
	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.tables[table] = append(rows, row)
		w.WriteHeader(http.StatusCreated)
		writeRows(w, []map[string]any{row})
	case http.MethodPatch:
		var changes map[string]any
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, row := range matches {
			for k, v := range changes {
				row[k] = v
			}
		}
		writeRows(w, matches)
	case http.MethodDelete:
		f.tables[table] = rest
		writeRows(w, matches)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func splitRows(rows []map[string]any, q map[string][]string) (matches, rest []map[string]any) {
	for _, row := range rows {
		if rowMatches(row, q) {
			matches = append(matches, row)
		} else {
			rest = append(rest, row)
		}
	}
	return matches, rest
}

func rowMatches(row map[string]any, q map[string][]string) bool {
	for col, filters := range q {
		if col == "order" || col == "limit" || col == "select" {
			continue
		}
		val, _ := row[col].(string)
		for _, filter := range filters {
			op, arg, _ := strings.Cut(filter, ".")
			switch op {
			case "eq":
				if val != arg {
					return false
				}
			case "ilike":
				needle := strings.ToLower(strings.Trim(arg, "*"))
				if !strings.Contains(strings.ToLower(val), needle) {
					return false
				}
			case "gte":
				if val < arg {
					return false
				}
			case "lt":
				if val >= arg {
					return false
				}
			case "in":
				set := strings.Trim(arg, "()")
				found := false
				for _, candidate := range strings.Split(set, ",") {
					if val == candidate {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

func ordered(rows []map[string]any, q map[string][]string) []map[string]any {
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	if specs, ok := q["order"]; ok && len(specs) > 0 {
		col, dir, _ := strings.Cut(specs[0], ".")
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := out[i][col].(string)
			b, _ := out[j][col].(string)
			if dir == "desc" {
				return a > b
			}
			return a < b
		})
	}
	if limits, ok := q["limit"]; ok && len(limits) > 0 {
		if n, err := strconv.Atoi(limits[0]); err == nil && n < len(out) {
			out = out[:n]
		}
	}
	return out
}

func project(rows []map[string]any, q map[string][]string) []map[string]any {
	sel, ok := q["select"]
	if !ok || len(sel) == 0 {
		return rows
	}
	cols := strings.Split(sel[0], ",")
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		p := make(map[string]any, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				p[c] = v
			}
		}
		out = append(out, p)
	}
	return out
}

func writeRows(w http.ResponseWriter, rows []map[string]any) {
	if rows == nil {
		rows = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
