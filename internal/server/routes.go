package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/todo-api/internal/domain"
	"github.com/Tomlord1122/todo-api/internal/schema"
	"github.com/Tomlord1122/todo-api/internal/service"
)

const msgTodoNotFound = "Todo not found"

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(limitBody)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)

	r.Route("/todos", func(r chi.Router) {
		r.Post("/", s.createTodoHandler)
		r.Get("/", s.listTodosHandler)
		r.Get("/{id}", s.getTodoByIDHandler)
		r.Put("/{id}", s.updateTodoHandler)
		r.Delete("/{id}", s.deleteTodoHandler)
	})

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Todo API is running!"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	skip, skipErr := queryInt(r, "skip", service.DefaultListSkip)
	limit, limitErr := queryInt(r, "limit", service.DefaultListLimit)
	if skipErr != "" || limitErr != "" {
		respondWithValidationError(w, domain.NewValidationError(nonEmpty(skipErr, limitErr)...))
		return
	}

	todos, err := s.todoService.ListTodos(r.Context(), service.ListTodosRequest{Skip: skip, Limit: limit})
	if err != nil {
		s.respondWithServiceError(w, r, err, "Error fetching todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	todo, err := s.todoService.GetTodoByID(r.Context(), id)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Error fetching todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest
	if !s.decodeBody(w, r, schema.CreateTodo, &req, "Error creating todo") {
		return
	}

	todo, err := s.todoService.CreateTodo(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Error creating todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if !s.decodeBody(w, r, schema.UpdateTodo, &req, "Error updating todo") {
		return
	}

	todo, err := s.todoService.UpdateTodo(r.Context(), id, req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Error updating todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if _, err := s.todoService.DeleteTodo(r.Context(), id); err != nil {
		s.respondWithServiceError(w, r, err, "Error deleting todo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

// decodeBody reads the request body and decodes it into dst through sc,
// writing the error response itself when that fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, sc *schema.Schema, dst any, context string) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := sc.Decode(body, dst); err != nil {
		s.logger.Debug("request body rejected", "schema", sc.Name(), "err", err,
			"request_id", middleware.GetReqID(r.Context()))
		s.respondWithServiceError(w, r, err, context)
		return false
	}
	return true
}

// respondWithServiceError maps the domain error taxonomy onto HTTP statuses.
// Database error text is logged but never written to the response.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, context string) {
	var validationErr *domain.ValidationError
	var storeErr *domain.StoreError

	switch {
	case errors.As(err, &validationErr):
		respondWithValidationError(w, validationErr)
	case errors.Is(err, domain.ErrTodoNotFound):
		respondWithError(w, http.StatusNotFound, msgTodoNotFound)
	case errors.As(err, &storeErr):
		s.logger.Error(context, "err", err, "request_id", middleware.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, context+": database operation failed")
	default:
		s.logger.Error(context, "err", err, "request_id", middleware.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, context+": unexpected error")
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 63)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return 0, false
	}
	return uint(id), true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		} else {
			respondWithError(w, http.StatusBadRequest, "Request body could not be read")
		}
		return nil, false
	}
	return body, true
}

// queryInt returns the integer value of a query parameter, def when it is
// absent, or a problem message when it is not a non-negative integer.
func queryInt(r *http.Request, name string, def int) (int, string) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, name + ": must be a non-negative integer"
	}
	return n, ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func respondWithValidationError(w http.ResponseWriter, err *domain.ValidationError) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": strings.Join(err.Problems, "; "),
		"errors": err.Problems,
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"detail": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
