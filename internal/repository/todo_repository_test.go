package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-api/internal/config"
	"github.com/Tomlord1122/todo-api/internal/database"
	"github.com/Tomlord1122/todo-api/internal/domain"
	"github.com/Tomlord1122/todo-api/internal/logging"
)

func setupRepo(t *testing.T) TodoRepository {
	t.Helper()
	svc, err := database.New(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todos.db"),
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.Migrate())
	return NewGormTodoRepository(svc.GetDB())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func createTodo(t *testing.T, repo TodoRepository, title string) *domain.Todo {
	t.Helper()
	todo := &domain.Todo{Title: title, Priority: domain.DefaultPriority}
	require.NoError(t, repo.Create(context.Background(), todo))
	return todo
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	repo := setupRepo(t)

	first := createTodo(t, repo, "first")
	second := createTodo(t, repo, "second")

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.False(t, first.UpdatedAt.Before(first.CreatedAt))
}

func TestFindByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := &domain.Todo{
		Title:       "Buy milk",
		Description: strPtr("2 litres"),
		Completed:   true,
		Priority:    domain.PriorityHigh,
	}
	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Buy milk", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "2 litres", *got.Description)
	assert.True(t, got.Completed)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))

	_, err = repo.FindByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestListOffsetLimit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createTodo(t, repo, fmt.Sprintf("todo %d", i))
	}

	tests := []struct {
		name      string
		offset    int
		limit     int
		wantTitle []string
	}{
		{"all", 0, 100, []string{"todo 0", "todo 1", "todo 2", "todo 3", "todo 4"}},
		{"first page", 0, 2, []string{"todo 0", "todo 1"}},
		{"second page", 2, 2, []string{"todo 2", "todo 3"}},
		{"past the end", 10, 2, []string{}},
		{"zero limit", 0, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos, err := repo.List(ctx, tt.offset, tt.limit)
			require.NoError(t, err)
			titles := make([]string, 0, len(todos))
			for _, todo := range todos {
				titles = append(titles, todo.Title)
			}
			assert.Equal(t, tt.wantTitle, titles)
		})
	}
}

func TestUpdatePartial(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := createTodo(t, repo, "Write report")

	updated, err := repo.Update(ctx, created.ID, domain.TodoChanges{Completed: boolPtr(true)})
	require.NoError(t, err)

	assert.Equal(t, "Write report", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, domain.PriorityMedium, updated.Priority)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "created_at must not change")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updated_at must advance")

	// Setting a field back to its zero value is written, not skipped.
	updated, err = repo.Update(ctx, created.ID, domain.TodoChanges{Completed: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Completed)
}

func TestUpdateDescription(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := &domain.Todo{Title: "notes", Description: strPtr("old"), Priority: domain.PriorityLow}
	require.NoError(t, repo.Create(ctx, created))

	updated, err := repo.Update(ctx, created.ID, domain.TodoChanges{Description: domain.NewNullableString(strPtr("new"))})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "new", *updated.Description)

	updated, err = repo.Update(ctx, created.ID, domain.TodoChanges{Completed: boolPtr(true)})
	require.NoError(t, err)
	require.NotNil(t, updated.Description, "an unset description must be left alone")
	assert.Equal(t, "new", *updated.Description)

	updated, err = repo.Update(ctx, created.ID, domain.TodoChanges{Description: domain.NewNullableString(nil)})
	require.NoError(t, err)
	assert.Nil(t, updated.Description)

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)
}

func TestUpdateWithoutChangesRefreshesUpdatedAt(t *testing.T) {
	repo := setupRepo(t)
	created := createTodo(t, repo, "noop")

	updated, err := repo.Update(context.Background(), created.ID, domain.TodoChanges{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, "noop", updated.Title)
}

func TestUpdateMissing(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Update(context.Background(), 42, domain.TodoChanges{Title: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	keep := createTodo(t, repo, "keep")
	gone := createTodo(t, repo, "gone")

	deleted, err := repo.Delete(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, gone.ID, deleted.ID)
	assert.Equal(t, "gone", deleted.Title)

	_, err = repo.FindByID(ctx, gone.ID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)

	_, err = repo.Delete(ctx, gone.ID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)

	todos, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, keep.ID, todos[0].ID)
}

func TestIDsAreNotReused(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	first := createTodo(t, repo, "a")
	second := createTodo(t, repo, "b")

	_, err := repo.Delete(ctx, second.ID)
	require.NoError(t, err)

	third := createTodo(t, repo, "c")
	assert.NotEqual(t, first.ID, third.ID)
	assert.NotEqual(t, second.ID, third.ID)
}

func TestStoreErrorOnClosedDatabase(t *testing.T) {
	svc, err := database.New(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todos.db"),
	}, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, svc.Migrate())
	repo := NewGormTodoRepository(svc.GetDB())
	require.NoError(t, svc.Close())

	err = repo.Create(context.Background(), &domain.Todo{Title: "x", Priority: domain.PriorityLow})
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "creating todo", storeErr.Op)

	_, err = repo.FindByID(context.Background(), 1)
	require.ErrorAs(t, err, &storeErr)
	assert.NotErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestConcurrentCreates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Create(ctx, &domain.Todo{Title: fmt.Sprintf("t%d", i), Priority: domain.PriorityLow})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	todos, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, todos, n)
}

func TestConcurrentUpdatesAndDeletes(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const n = 40
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, createTodo(t, repo, fmt.Sprintf("t%d", i)).ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*5)
	for i, id := range ids {
		if i%2 == 0 {
			for j := 0; j < 4; j++ {
				wg.Add(1)
				go func(id uint) {
					defer wg.Done()
					_, err := repo.Update(ctx, id, domain.TodoChanges{Completed: boolPtr(true)})
					errs <- err
				}(id)
			}
			continue
		}
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := repo.Delete(ctx, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	todos, err := repo.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, todos, n/2)
	for _, todo := range todos {
		assert.True(t, todo.Completed, "todo %d", todo.ID)
	}
}
