package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-api/internal/domain"
)

type payload struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Completed   *bool            `json:"completed"`
	Priority    *domain.Priority `json:"priority"`
}

func TestCreateTodoDecode(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantProblem string
		check       func(t *testing.T, p payload)
	}{
		{
			name: "title only",
			body: `{"title":"Buy milk"}`,
			check: func(t *testing.T, p payload) {
				require.NotNil(t, p.Title)
				assert.Equal(t, "Buy milk", *p.Title)
				assert.Nil(t, p.Completed)
				assert.Nil(t, p.Priority)
			},
		},
		{
			name: "all fields",
			body: `{"title":"Ship","description":"release 1.0","completed":true,"priority":"high"}`,
			check: func(t *testing.T, p payload) {
				require.NotNil(t, p.Priority)
				assert.Equal(t, domain.PriorityHigh, *p.Priority)
				require.NotNil(t, p.Completed)
				assert.True(t, *p.Completed)
				require.NotNil(t, p.Description)
				assert.Equal(t, "release 1.0", *p.Description)
			},
		},
		{
			name: "unknown fields are ignored",
			body: `{"title":"Buy milk","owner":"someone","tags":["a"]}`,
			check: func(t *testing.T, p payload) {
				require.NotNil(t, p.Title)
				assert.Equal(t, "Buy milk", *p.Title)
			},
		},
		{
			name: "null description",
			body: `{"title":"x","description":null}`,
			check: func(t *testing.T, p payload) {
				assert.Nil(t, p.Description)
			},
		},
		{name: "missing title", body: `{"completed":true}`, wantProblem: "title"},
		{name: "empty title", body: `{"title":""}`, wantProblem: "title"},
		{name: "numeric title", body: `{"title":7}`, wantProblem: "title"},
		{name: "bad priority", body: `{"title":"x","priority":"urgent"}`, wantProblem: "priority"},
		{name: "string completed", body: `{"title":"x","completed":"yes"}`, wantProblem: "completed"},
		{name: "array body", body: `[{"title":"x"}]`, wantProblem: "object"},
		{name: "empty body", body: "  ", wantProblem: "must not be empty"},
		{name: "malformed json", body: `{"title":`, wantProblem: "badly-formed"},
		{name: "trailing data", body: `{"title":"a"}{"title":"b"}`, wantProblem: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := CreateTodo.Decode([]byte(tt.body), &p)

			if tt.wantProblem == "" {
				require.NoError(t, err)
				tt.check(t, p)
				return
			}

			require.Error(t, err)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %T", err)
			require.NotEmpty(t, ve.Problems)
			assert.Contains(t, strings.Join(ve.Problems, "; "), tt.wantProblem)
		})
	}
}

func TestUpdateTodoDecode(t *testing.T) {
	t.Run("empty object is a valid partial update", func(t *testing.T) {
		var p payload
		require.NoError(t, UpdateTodo.Decode([]byte(`{}`), &p))
		assert.Nil(t, p.Title)
		assert.Nil(t, p.Completed)
	})

	t.Run("completed only", func(t *testing.T) {
		var p payload
		require.NoError(t, UpdateTodo.Decode([]byte(`{"completed":false}`), &p))
		require.NotNil(t, p.Completed)
		assert.False(t, *p.Completed)
		assert.Nil(t, p.Title)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		var p payload
		err := UpdateTodo.Decode([]byte(`{"title":""}`), &p)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Error(), "title")
	})

	t.Run("multiple problems reported", func(t *testing.T) {
		var p payload
		err := UpdateTodo.Decode([]byte(`{"completed":1,"priority":"none"}`), &p)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.GreaterOrEqual(t, len(ve.Problems), 2)
	})
}

func TestSchemaNames(t *testing.T) {
	assert.Equal(t, "create_todo.json", CreateTodo.Name())
	assert.Equal(t, "update_todo.json", UpdateTodo.Name())
}
