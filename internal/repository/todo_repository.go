package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-api/internal/domain"
)

// TodoRepository defines the interface for todo data operations.
// Every method runs on its own GORM session bound to ctx; absent rows are
// reported as domain.ErrTodoNotFound and database failures as
// *domain.StoreError.
type TodoRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.Todo, error)
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	Create(ctx context.Context, todo *domain.Todo) error
	Update(ctx context.Context, id uint, changes domain.TodoChanges) (*domain.Todo, error)
	Delete(ctx context.Context, id uint) (*domain.Todo, error)
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

// List returns todos in insertion order, skipping offset rows and
// returning at most limit.
func (r *gormTodoRepository) List(ctx context.Context, offset, limit int) ([]domain.Todo, error) {
	todos := make([]domain.Todo, 0)
	result := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&todos)
	if result.Error != nil {
		return nil, &domain.StoreError{Op: "listing todos", Err: result.Error}
	}
	return todos, nil
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	return findByID(r.db.WithContext(ctx), id, "fetching todo")
}

// Create inserts todo and fills in its id and timestamps.
func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return &domain.StoreError{Op: "creating todo", Err: err}
	}
	return nil
}

// Update applies the set fields of changes and always refreshes
// updated_at, then reloads the row in the same transaction.
func (r *gormTodoRepository) Update(ctx context.Context, id uint, changes domain.TodoChanges) (*domain.Todo, error) {
	var updated *domain.Todo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByID(tx, id, "updating todo")
		if err != nil {
			return err
		}

		fields := changeSet(changes)
		fields["updated_at"] = nextUpdatedAt(tx, existing.UpdatedAt)

		if err := tx.Model(&domain.Todo{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return &domain.StoreError{Op: "updating todo", Err: err}
		}

		updated, err = findByID(tx, id, "updating todo")
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the row and returns it as it was before deletion.
func (r *gormTodoRepository) Delete(ctx context.Context, id uint) (*domain.Todo, error) {
	var deleted *domain.Todo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByID(tx, id, "deleting todo")
		if err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&domain.Todo{})
		if result.Error != nil {
			return &domain.StoreError{Op: "deleting todo", Err: result.Error}
		}
		if result.RowsAffected == 0 {
			return domain.ErrTodoNotFound
		}

		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func findByID(db *gorm.DB, id uint, op string) (*domain.Todo, error) {
	var todo domain.Todo
	if err := db.Where("id = ?", id).First(&todo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	return &todo, nil
}

// changeSet converts changes into a column map. A map is used instead of a
// struct so that false and empty values are written.
func changeSet(changes domain.TodoChanges) map[string]any {
	fields := make(map[string]any, 5)
	if changes.Title != nil {
		fields["title"] = *changes.Title
	}
	if changes.Description.Set {
		if changes.Description.Value == nil {
			fields["description"] = nil
		} else {
			fields["description"] = *changes.Description.Value
		}
	}
	if changes.Completed != nil {
		fields["completed"] = *changes.Completed
	}
	if changes.Priority != nil {
		fields["priority"] = string(*changes.Priority)
	}
	return fields
}

// nextUpdatedAt returns the session clock, nudged forward if needed so that
// updated_at strictly advances even when the clock has not ticked since the
// previous write.
func nextUpdatedAt(db *gorm.DB, previous time.Time) time.Time {
	now := db.NowFunc()
	if !now.After(previous) {
		now = previous.Add(time.Millisecond)
	}
	return now
}
