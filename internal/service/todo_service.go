package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tomlord1122/todo-api/internal/domain"
	"github.com/Tomlord1122/todo-api/internal/repository"
)

// Paging defaults applied when the client omits skip or limit.
const (
	DefaultListSkip  = 0
	DefaultListLimit = 100
)

// CreateTodoRequest holds the data needed to create a new todo.
type CreateTodoRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Completed   bool            `json:"completed"`
	Priority    domain.Priority `json:"priority"`
}

// UpdateTodoRequest holds the data for updating an existing todo.
// Using pointers allows distinguishing between a field being omitted
// vs. being set to its zero value (e.g., setting Completed to false).
// Description can also be cleared with an explicit null.
type UpdateTodoRequest struct {
	Title       *string               `json:"title"`
	Description domain.NullableString `json:"description"`
	Completed   *bool                 `json:"completed"`
	Priority    *domain.Priority      `json:"priority"`
}

// ListTodosRequest carries offset/limit paging.
type ListTodosRequest struct {
	Skip  int
	Limit int
}

// TodoResponse is the standard representation of a Todo returned by the service.
type TodoResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Completed   bool            `json:"completed"`
	Priority    domain.Priority `json:"priority"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// TodoService defines the operations for managing todos.
type TodoService interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error)
	GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error)
	ListTodos(ctx context.Context, req ListTodosRequest) ([]TodoResponse, error)
	// UpdateTodo applies a partial update: only fields present in req change.
	UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error)
	// DeleteTodo removes the todo and returns it as it was.
	DeleteTodo(ctx context.Context, id uint) (*TodoResponse, error)
}

// todoService implements TodoService on top of a TodoRepository.
type todoService struct {
	repo   repository.TodoRepository
	logger *log.Logger
}

func NewTodoService(repo repository.TodoRepository, logger *log.Logger) TodoService {
	return &todoService{
		repo:   repo,
		logger: logger.WithPrefix("todo-service"),
	}
}

func (s *todoService) CreateTodo(ctx context.Context, req CreateTodoRequest) (*TodoResponse, error) {
	var problems []string
	if strings.TrimSpace(req.Title) == "" {
		problems = append(problems, "title: must not be blank")
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.DefaultPriority
	}
	if !priority.Valid() {
		problems = append(problems, fmt.Sprintf("priority: %q is not one of low, medium, high", priority))
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	newTodo := &domain.Todo{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    priority,
	}

	if err := s.repo.Create(ctx, newTodo); err != nil {
		s.logger.Error("create todo failed", "err", err)
		return nil, fmt.Errorf("create todo: %w", err)
	}

	s.logger.Debug("todo created", "id", newTodo.ID)
	return toResponse(newTodo), nil
}

func (s *todoService) GetTodoByID(ctx context.Context, id uint) (*TodoResponse, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logFailure("get todo failed", id, err)
		return nil, fmt.Errorf("get todo %d: %w", id, err)
	}
	return toResponse(todo), nil
}

func (s *todoService) ListTodos(ctx context.Context, req ListTodosRequest) ([]TodoResponse, error) {
	var problems []string
	if req.Skip < 0 {
		problems = append(problems, "skip: must be >= 0")
	}
	if req.Limit < 0 {
		problems = append(problems, "limit: must be >= 0")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	todos, err := s.repo.List(ctx, req.Skip, req.Limit)
	if err != nil {
		s.logger.Error("list todos failed", "err", err)
		return nil, fmt.Errorf("list todos: %w", err)
	}

	responses := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		responses = append(responses, *toResponse(&todos[i]))
	}
	return responses, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, id uint, req UpdateTodoRequest) (*TodoResponse, error) {
	var problems []string
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		problems = append(problems, "title: must not be blank")
	}
	if req.Priority != nil && !req.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("priority: %q is not one of low, medium, high", *req.Priority))
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	changes := domain.TodoChanges{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
	}

	if changes.Empty() {
		s.logger.Debug("no field changes, refreshing updated_at only", "id", id)
	}

	updated, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		s.logFailure("update todo failed", id, err)
		return nil, fmt.Errorf("update todo %d: %w", id, err)
	}
	return toResponse(updated), nil
}

func (s *todoService) DeleteTodo(ctx context.Context, id uint) (*TodoResponse, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logFailure("delete todo failed", id, err)
		return nil, fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.logger.Debug("todo deleted", "id", id)
	return toResponse(deleted), nil
}

// logFailure logs store failures; a missing todo is an expected outcome.
func (s *todoService) logFailure(msg string, id uint, err error) {
	if errors.Is(err, domain.ErrTodoNotFound) {
		return
	}
	s.logger.Error(msg, "id", id, "err", err)
}

func toResponse(todo *domain.Todo) *TodoResponse {
	return &TodoResponse{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		Priority:    todo.Priority,
		CreatedAt:   formatTime(todo.CreatedAt),
		UpdatedAt:   formatTime(todo.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
