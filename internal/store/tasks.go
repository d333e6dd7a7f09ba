// Package store holds the client-side state the CLI and review console
// render from: claimed tasks and tags, the signed-in user, and the
// notification feed. Every holder is safe for concurrent use.
package store

import (
	"context"
	"sync"

	"reviewdesk/internal/logging"
	"reviewdesk/internal/types"
	"reviewdesk/internal/workflow"
)

// Identified is any task with an id.
type Identified interface {
	TaskID() int64
}

// TaskSource lists the caller's claimed tasks. *workflow.Client satisfies it.
type TaskSource[T any] interface {
	GetMyTasks(ctx context.Context) (*workflow.TasksResponse[T], error)
}

// TagSource lists the review tag vocabulary. *api.Client satisfies it.
type TagSource interface {
	Tags(ctx context.Context) ([]types.Tag, error)
}

// TaskStore holds the claimed-task list and the active tags.
type TaskStore[T Identified] struct {
	mu      sync.RWMutex
	tasks   []T
	tags    []types.Tag
	loading bool

	source TaskSource[T]
	tagSrc TagSource
}

// NewTaskStore creates a task store. tags may be nil when the queue has no
// tag vocabulary.
func NewTaskStore[T Identified](source TaskSource[T], tags TagSource) *TaskStore[T] {
	return &TaskStore[T]{source: source, tagSrc: tags}
}

// FetchMyTasks replaces the task list with the server's.
func (s *TaskStore[T]) FetchMyTasks(ctx context.Context) (*workflow.TasksResponse[T], error) {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.source.GetMyTasks(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks = append([]T(nil), res.Tasks...)
	s.mu.Unlock()
	return res, nil
}

// FetchTags replaces the tag vocabulary.
func (s *TaskStore[T]) FetchTags(ctx context.Context) ([]types.Tag, error) {
	if s.tagSrc == nil {
		return nil, nil
	}
	tags, err := s.tagSrc.Tags(ctx)
	if err != nil {
		logging.StoreWarn("Failed to fetch tags: %v", err)
		return nil, err
	}
	s.mu.Lock()
	s.tags = tags
	s.mu.Unlock()
	return tags, nil
}

// RemoveTask drops the task with id from the list, after it was submitted
// or returned. It reports whether the task was present.
func (s *TaskStore[T]) RemoveTask(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.TaskID() == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Tasks returns a copy of the task list.
func (s *TaskStore[T]) Tasks() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.tasks...)
}

// Tags returns a copy of the tag vocabulary.
func (s *TaskStore[T]) Tags() []types.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Tag(nil), s.tags...)
}

// Loading reports whether FetchMyTasks is in flight.
func (s *TaskStore[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *TaskStore[T]) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
