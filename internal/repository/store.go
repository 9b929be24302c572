package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the task and completion repositories over one database
// handle. Transaction yields a store scoped to a single transaction so
// multi-table mutations (toggle, cascade delete) apply atomically.
type Store struct {
	db          *gorm.DB
	Tasks       *TaskRepository
	Completions *CompletionRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Tasks:       NewTaskRepository(db),
		Completions: NewCompletionRepository(db),
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(NewStore(txDB))
	})
}
