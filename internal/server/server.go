package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tomlord1122/todo-api/internal/config"
	"github.com/Tomlord1122/todo-api/internal/database"
	"github.com/Tomlord1122/todo-api/internal/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	todoService    service.TodoService
	db             database.Service
	logger         *log.Logger
	allowedOrigins []string
}

// NewServer wires the handlers to their dependencies and returns an
// http.Server listening on the configured address.
func NewServer(cfg *config.Config, todoService service.TodoService, dbService database.Service, logger *log.Logger) *http.Server {
	appServer := &Server{
		todoService:    todoService,
		db:             dbService,
		logger:         logger.WithPrefix("http"),
		allowedOrigins: cfg.CORS.AllowedOrigins,
	}

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
