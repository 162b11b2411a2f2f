// Package todos keeps a task list as a single JSON array in the storage
// engine.
package todos

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/flowmesh/localstore/internal/storage/store"
	"github.com/google/uuid"
)

// StorageKey is the logical key the task list is stored under
const StorageKey = "todos_list"

// listSchema describes the stored task list
const listSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "text", "completed"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"text": {"type": "string", "minLength": 1},
			"completed": {"type": "boolean"}
		},
		"additionalProperties": false
	}
}`

// Todo is a single task
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// EmptyTextError indicates a task with no text after trimming
type EmptyTextError struct{}

func (EmptyTextError) Error() string {
	return "task text cannot be empty"
}

// NotFoundError indicates no task has the given id
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// List is the task list. Mutations are serialized within one List; writers
// in other processes are not coordinated.
type List struct {
	store *store.Store
	mu    sync.Mutex
}

// New registers the task list schema on s and returns the list
func New(s *store.Store) (*List, error) {
	if err := s.RegisterSchema(StorageKey, []byte(listSchema)); err != nil {
		return nil, fmt.Errorf("failed to register task list schema: %w", err)
	}
	return &List{store: s}, nil
}

// List returns all tasks, newest first
func (l *List) List(ctx context.Context) ([]Todo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Add creates a task from text and puts it at the front of the list
func (l *List) Add(ctx context.Context, text string) (Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Todo{}, EmptyTextError{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	todos, err := l.load(ctx)
	if err != nil {
		return Todo{}, err
	}

	todo := Todo{ID: uuid.NewString(), Text: text}
	if err := l.save(ctx, append([]Todo{todo}, todos...)); err != nil {
		return Todo{}, err
	}
	return todo, nil
}

// Toggle flips the completed flag of the task with id
func (l *List) Toggle(ctx context.Context, id string) (Todo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	todos, err := l.load(ctx)
	if err != nil {
		return Todo{}, err
	}

	for i := range todos {
		if todos[i].ID == id {
			todos[i].Completed = !todos[i].Completed
			if err := l.save(ctx, todos); err != nil {
				return Todo{}, err
			}
			return todos[i], nil
		}
	}
	return Todo{}, NotFoundError{ID: id}
}

// Delete removes the task with id
func (l *List) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	todos, err := l.load(ctx)
	if err != nil {
		return err
	}

	kept := todos[:0]
	for _, todo := range todos {
		if todo.ID != id {
			kept = append(kept, todo)
		}
	}
	if len(kept) == len(todos) {
		return NotFoundError{ID: id}
	}
	return l.save(ctx, kept)
}

func (l *List) load(ctx context.Context) ([]Todo, error) {
	todos, found, err := store.GetAs[[]Todo](ctx, l.store, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if !found || todos == nil {
		return []Todo{}, nil
	}
	return todos, nil
}

func (l *List) save(ctx context.Context, todos []Todo) error {
	if err := l.store.Put(ctx, StorageKey, todos, store.DefaultPutOptions()); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}
