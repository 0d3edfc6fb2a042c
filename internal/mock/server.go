package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/state"
)

// Server serves the REST API over a Store. Every mutation is written back to
// the state file before the response is sent.
type Server struct {
	Store Store
	// Token, when set, is required as a bearer token on every request.
	Token string
	// Latency is added before each response so loading states are visible.
	Latency time.Duration
	Log     *slog.Logger

	mu    sync.Mutex
	state *state.State
}

func NewServer(store Store, log *slog.Logger) (*Server, error) {
	st, err := store.Ensure()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{Store: store, Log: log, state: st}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", s.listUsers)
	mux.HandleFunc("POST /users/create", s.createUser)
	mux.HandleFunc("PUT /users/{id}", s.updateUser)
	mux.HandleFunc("DELETE /users/{id}", s.deleteKind(entity.KindUsers))

	mux.HandleFunc("POST /projects", s.listProjects)
	mux.HandleFunc("POST /projects/create", s.createProject)
	mux.HandleFunc("POST /projects/check", s.checkProject)
	mux.HandleFunc("PUT /projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /projects/{id}", s.deleteKind(entity.KindProjects))

	mux.HandleFunc("POST /agents", s.listAgents)
	mux.HandleFunc("POST /agents/create", s.createAgent)
	mux.HandleFunc("PUT /agents/{id}", s.updateAgent)
	mux.HandleFunc("DELETE /agents/{id}", s.deleteKind(entity.KindAgents))

	mux.HandleFunc("POST /analysis", s.startAnalysis)
	mux.HandleFunc("GET /analysis/{id}/status", s.analysisStatus)
	return s.middleware(mux)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			s.Log.Warn("mock request rejected", "method", r.Method, "path", r.URL.Path)
			return
		}
		if s.Latency > 0 {
			select {
			case <-time.After(s.Latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
		s.Log.Debug("mock request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-Id"),
			"elapsed", time.Since(start),
		)
	})
}

var errSave = errors.New("save state")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

// writeFailure maps a domain error onto a status code. Field validation
// failures carry the per-field messages alongside the summary.
func writeFailure(w http.ResponseWriter, err error) {
	var fe entity.FieldErrors
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": fe.Error(), "errors": map[string]string(fe)})
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func decode(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// read runs fn under the lock without persisting.
func (s *Server) read(fn func(*state.State) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// mutate runs fn under the lock and saves the state if fn succeeded.
func (s *Server) mutate(fn func(*state.State) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := fn(s.state)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(s.state); err != nil {
		s.Log.Error("mock state save failed", "path", s.Store.Path, "err", err)
		return nil, fmt.Errorf("%w: %v", errSave, err)
	}
	return out, nil
}

func (s *Server) respond(w http.ResponseWriter, status int, out any, err error) {
	if err != nil {
		if errors.Is(err, errSave) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, status, out)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, fn func(*state.State, ListParams) (any, error)) {
	var p ListParams
	if err := decode(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.read(func(st *state.State) (any, error) { return fn(st, p) })
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, func(st *state.State, p ListParams) (any, error) { return ListUsers(st, p), nil })
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, func(st *state.State, p ListParams) (any, error) { return ListProjects(st, p), nil })
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, func(st *state.State, p ListParams) (any, error) { return ListAgents(st, p) })
}

// mutation decodes a body of type B, applies fn and answers {id, message}.
func mutation[B any](s *Server, w http.ResponseWriter, r *http.Request, status int, msg string, fn func(*state.State, B) (string, error)) {
	var body B
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.mutate(func(st *state.State) (any, error) {
		id, err := fn(st, body)
		if err != nil {
			return nil, err
		}
		return entity.MutationResult{ID: id, Message: msg}, nil
	})
	s.respond(w, status, out, err)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	mutation(s, w, r, http.StatusCreated, "User created", func(st *state.State, in entity.UserCreate) (string, error) {
		u, err := CreateUser(st, in)
		if err != nil {
			return "", err
		}
		return u.ID, nil
	})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mutation(s, w, r, http.StatusOK, "User updated", func(st *state.State, in entity.UserUpdate) (string, error) {
		_, err := UpdateUser(st, id, in)
		return id, err
	})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	mutation(s, w, r, http.StatusCreated, "Project created", func(st *state.State, in entity.ProjectCreate) (string, error) {
		p, err := CreateProject(st, in)
		if err != nil {
			return "", err
		}
		return p.ID, nil
	})
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mutation(s, w, r, http.StatusOK, "Project updated", func(st *state.State, in entity.ProjectUpdate) (string, error) {
		_, err := UpdateProject(st, id, in)
		return id, err
	})
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	mutation(s, w, r, http.StatusCreated, "Agent created", func(st *state.State, in entity.AgentCreate) (string, error) {
		a, err := CreateAgent(st, in)
		if err != nil {
			return "", err
		}
		return a.ID, nil
	})
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	mutation(s, w, r, http.StatusOK, "Agent updated", func(st *state.State, in entity.AgentUpdate) (string, error) {
		_, err := UpdateAgent(st, id, in)
		return id, err
	})
}

func (s *Server) deleteKind(kind entity.Kind) http.HandlerFunc {
	msg := strings.ToUpper(string(kind[:1])) + strings.TrimSuffix(string(kind[1:]), "s") + " deleted"
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		out, err := s.mutate(func(st *state.State) (any, error) {
			if err := Delete(st, kind, id); err != nil {
				return nil, err
			}
			return entity.MutationResult{ID: id, Message: msg}, nil
		})
		s.respond(w, http.StatusOK, out, err)
	}
}

func (s *Server) checkProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.read(func(st *state.State) (any, error) { return CheckProject(st, body.URL) })
	s.respond(w, http.StatusOK, out, err)
}

func (s *Server) startAnalysis(w http.ResponseWriter, r *http.Request) {
	mutation(s, w, r, http.StatusCreated, "Analysis started", func(st *state.State, in entity.AnalysisCreate) (string, error) {
		run, err := StartAnalysis(st, in)
		if err != nil {
			return "", err
		}
		s.Log.Info("mock analysis started", "run_id", run.ID, "agent_id", run.AgentID, "fail_at", run.FailAt)
		return run.ID, nil
	})
}

func (s *Server) analysisStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	out, err := s.mutate(func(st *state.State) (any, error) {
		status, err := PollAnalysis(st, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "status": status}, nil
	})
	s.respond(w, http.StatusOK, out, err)
}
