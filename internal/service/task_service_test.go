package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"one-percent/internal/period"
)

func TestTaskService_AddTask_Validation(t *testing.T) {
	tests := []struct {
		name       string
		taskName   string
		isPriority bool
		hour       *int
		minute     *int
		wantErr    error
	}{
		{
			name:       "valid priority task",
			taskName:   "Read 10 pages",
			isPriority: true,
		},
		{
			name:     "valid normal task",
			taskName: "Buy a bulb",
		},
		{
			name:       "valid task with reminder",
			taskName:   "Meditate",
			isPriority: true,
			hour:       intPtr(9),
			minute:     intPtr(0),
		},
		{
			name:       "empty name",
			taskName:   "   ",
			isPriority: true,
			wantErr:    ErrEmptyName,
		},
		{
			name:       "hour without minute",
			taskName:   "Meditate",
			isPriority: true,
			hour:       intPtr(9),
			wantErr:    ErrInvalidReminderConfig,
		},
		{
			name:       "minute without hour",
			taskName:   "Meditate",
			isPriority: true,
			minute:     intPtr(30),
			wantErr:    ErrInvalidReminderConfig,
		},
		{
			name:     "reminder on normal task",
			taskName: "Meditate",
			hour:     intPtr(9),
			minute:   intPtr(0),
			wantErr:  ErrInvalidReminderConfig,
		},
		{
			name:       "hour out of range",
			taskName:   "Meditate",
			isPriority: true,
			hour:       intPtr(24),
			minute:     intPtr(0),
			wantErr:    ErrInvalidReminderConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, period.Midnight)
			ctx := context.Background()

			task, err := env.tasks.AddTask(ctx, tt.taskName, tt.isPriority, tt.hour, tt.minute)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				// Nothing may be persisted on rejection.
				all, listErr := env.store.Tasks.ListAll(ctx)
				require.NoError(t, listErr)
				assert.Empty(t, all)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, task)
			assert.NotZero(t, task.ID)
			assert.Equal(t, tt.hour != nil, task.ReminderEnabled)
		})
	}
}

func TestTaskService_AddTask_ArmsReminder(t *testing.T) {
	env := newTestEnv(t, period.Midnight)

	task, err := env.tasks.AddTask(context.Background(), "Meditate", true, intPtr(9), intPtr(0))
	require.NoError(t, err)

	assert.True(t, env.reminders.Armed(task.ID))
}

func TestTaskService_ToggleCompletion_PriorityKeepsOneRecord(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()
	now := time.Date(2025, time.January, 10, 15, 0, 0, 0, time.UTC)
	env.tasks.now = at(now)
	key := period.Midnight.KeyFor(now)

	task, err := env.tasks.AddTask(ctx, "Read", true, nil, nil)
	require.NoError(t, err)

	// on -> off -> on within the same period leaves exactly one record.
	toggled, err := env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)
	require.NotNil(t, toggled.CompletedAt)

	record, err := env.store.Completions.FindForPeriod(ctx, task.ID, key)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Read", record.TaskName)

	toggled, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsCompleted)
	assert.Nil(t, toggled.CompletedAt)

	record, err = env.store.Completions.FindForPeriod(ctx, task.ID, key)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)

	records, err := env.store.Completions.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTaskService_ToggleCompletion_AfterForceReset(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()
	now := time.Date(2025, time.January, 10, 15, 0, 0, 0, time.UTC)
	env.tasks.now = at(now)
	env.reset.now = at(now)
	key := period.Midnight.KeyFor(now)

	task, err := env.tasks.AddTask(ctx, "Read", true, nil, nil)
	require.NoError(t, err)
	_, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)

	// Force reset clears the flag but keeps the current-period record.
	require.NoError(t, env.reset.ForceReset(ctx))
	record, err := env.store.Completions.FindForPeriod(ctx, task.ID, key)
	require.NoError(t, err)
	require.NotNil(t, record)

	// Re-completing in the same period must succeed and keep one record.
	toggled, err := env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	records, err := env.store.Completions.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTaskService_ToggleCompletion_NormalSkipsRecords(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()

	task, err := env.tasks.AddTask(ctx, "Buy a bulb", false, nil, nil)
	require.NoError(t, err)

	toggled, err := env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)
	require.NotNil(t, toggled.CompletedAt)

	records, err := env.store.Completions.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	toggled, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsCompleted)
	assert.Nil(t, toggled.CompletedAt)
}

func TestTaskService_ToggleCompletion_UnknownTask(t *testing.T) {
	env := newTestEnv(t, period.Midnight)

	_, err := env.tasks.ToggleCompletion(context.Background(), 404)

	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_DeleteTask_CascadesAndCancels(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()

	task, err := env.tasks.AddTask(ctx, "Meditate", true, intPtr(9), intPtr(0))
	require.NoError(t, err)
	_, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, env.reminders.Armed(task.ID))

	require.NoError(t, env.tasks.DeleteTask(ctx, task.ID))

	assert.False(t, env.reminders.Armed(task.ID))
	assert.Contains(t, env.notifier.withdrawn, task.ID)

	_, err = env.tasks.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	records, err := env.store.Completions.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTaskService_UpdateTask_ReArmsOrCancels(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()

	task, err := env.tasks.AddTask(ctx, "Meditate", true, intPtr(9), intPtr(0))
	require.NoError(t, err)
	require.True(t, env.reminders.Armed(task.ID))

	task.ReminderEnabled = false
	task.ReminderHour = nil
	task.ReminderMinute = nil
	require.NoError(t, env.tasks.UpdateTask(ctx, task))
	assert.False(t, env.reminders.Armed(task.ID))

	task.ReminderEnabled = true
	task.ReminderHour = intPtr(7)
	task.ReminderMinute = intPtr(30)
	require.NoError(t, env.tasks.UpdateTask(ctx, task))
	assert.True(t, env.reminders.Armed(task.ID))
}

func TestTaskService_ClearCompletionHistory(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()

	task, err := env.tasks.AddTask(ctx, "Read", true, nil, nil)
	require.NoError(t, err)
	_, err = env.tasks.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, env.tasks.ClearCompletionHistory(ctx))

	records, err := env.store.Completions.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// The task's current completion flag is not part of the history wipe.
	current, err := env.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, current.IsCompleted)
}

func TestTaskService_DeleteAllTasks(t *testing.T) {
	env := newTestEnv(t, period.Midnight)
	ctx := context.Background()

	first, err := env.tasks.AddTask(ctx, "Meditate", true, intPtr(9), intPtr(0))
	require.NoError(t, err)
	_, err = env.tasks.AddTask(ctx, "Buy a bulb", false, nil, nil)
	require.NoError(t, err)

	require.NoError(t, env.tasks.DeleteAllTasks(ctx))

	all, err := env.store.Tasks.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.False(t, env.reminders.Armed(first.ID))
}
