// Package schema validates request payloads against embedded JSON Schema
// documents before they are decoded into request structs.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Tomlord1122/todo-api/internal/domain"
)

//go:embed create_todo.json
var createTodoJSON string

//go:embed update_todo.json
var updateTodoJSON string

// Compiled schemas for the todo payloads.
var (
	CreateTodo = mustCompile("create_todo.json", createTodoJSON)
	UpdateTodo = mustCompile("update_todo.json", updateTodoJSON)
)

// Schema is a compiled payload schema.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

func mustCompile(name, doc string) *Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return &Schema{name: name, compiled: compiled}
}

// Name returns the resource name the schema was compiled from.
func (s *Schema) Name() string {
	return s.name
}

// Decode validates body against the schema and, if it conforms, unmarshals
// it into dst. All failures are returned as *domain.ValidationError.
// Properties the schema does not declare are accepted and ignored.
func (s *Schema) Decode(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.NewValidationError("request body must not be empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return domain.NewValidationError(describeSyntaxError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.NewValidationError("request body must contain a single JSON object")
	}

	if err := s.compiled.Validate(doc); err != nil {
		return domain.NewValidationError(problems(err)...)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return domain.NewValidationError(describeSyntaxError(err))
	}
	return nil
}

func describeSyntaxError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("request body contains badly-formed JSON (at position %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "request body contains badly-formed JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("request body contains an invalid value for the %q field", typeErr.Field)
	default:
		return fmt.Sprintf("request body could not be decoded: %v", err)
	}
}

// problems flattens a validation error into one message per leaf cause.
func problems(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	collect(&out, ve)
	return out
}

func collect(out *[]string, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		if field := pointerToPath(ve.InstanceLocation); field != "" {
			*out = append(*out, field+": "+ve.Message)
		} else {
			*out = append(*out, ve.Message)
		}
		return
	}
	for _, cause := range ve.Causes {
		collect(out, cause)
	}
}

func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	return strings.ReplaceAll(ptr, "/", ".")
}
