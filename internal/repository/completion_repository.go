package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"one-percent/internal/model"
)

// CompletionRepository manages the durable per-period completion log.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Insert(ctx context.Context, record *model.CompletionRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

// FindForPeriod returns the completion record for the given task and period
// key, or nil when none exists.
func (r *CompletionRepository) FindForPeriod(ctx context.Context, taskID uint, periodKey time.Time) (*model.CompletionRecord, error) {
	var record model.CompletionRecord
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND period_key = ?", taskID, periodKey).
		First(&record).Error
	switch {
	case err == nil:
		return &record, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("find completion: %w", err)
	}
}

func (r *CompletionRepository) DeleteForPeriod(ctx context.Context, taskID uint, periodKey time.Time) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND period_key = ?", taskID, periodKey).
		Delete(&model.CompletionRecord{}).Error; err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (r *CompletionRepository) DeleteForTask(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Delete(&model.CompletionRecord{}).Error; err != nil {
		return fmt.Errorf("delete completions for task: %w", err)
	}
	return nil
}

func (r *CompletionRepository) ListAll(ctx context.Context) ([]model.CompletionRecord, error) {
	var records []model.CompletionRecord
	if err := r.db.WithContext(ctx).Order("period_key DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *CompletionRepository) Clear(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").
		Delete(&model.CompletionRecord{}).Error; err != nil {
		return fmt.Errorf("clear completions: %w", err)
	}
	return nil
}
