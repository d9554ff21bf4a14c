package repository

import (
	"context"
	"fmt"

	"wolf-tap/internal/model"
)

const (
	taskColumns     = `id, title, description, type, icon, icon_color, target, reward, is_active, created_at`
	userTaskColumns = `id, user_id, task_id, progress, is_completed, claimed_reward, updated_at`
)

// TaskRepository persists task definitions and user progress rows.
type TaskRepository struct {
	db Querier
}

// NewTaskRepository creates a new TaskRepository instance.
func NewTaskRepository(db Querier) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Type, &t.Icon, &t.IconColor,
		&t.Target, &t.Reward, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanUserTask(row rowScanner) (*model.UserTask, error) {
	var ut model.UserTask
	if err := row.Scan(&ut.ID, &ut.UserID, &ut.TaskID, &ut.Progress, &ut.IsCompleted,
		&ut.ClaimedReward, &ut.UpdatedAt); err != nil {
		return nil, err
	}
	return &ut, nil
}

// Create inserts a task definition.
func (r *TaskRepository) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	query := `
		INSERT INTO tasks (title, description, type, icon, icon_color, target, reward, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + taskColumns
	created, err := scanTask(r.db.QueryRow(ctx, query,
		t.Title, t.Description, t.Type, t.Icon, t.IconColor, t.Target, t.Reward, t.IsActive))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// Update overwrites a task definition.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, type = $4, icon = $5, icon_color = $6,
			target = $7, reward = $8, is_active = $9
		WHERE id = $1
		RETURNING ` + taskColumns
	updated, err := scanTask(r.db.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Type, t.Icon, t.IconColor, t.Target, t.Reward, t.IsActive))
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, "update task")
	}
	return updated, nil
}

// Get retrieves a task definition.
func (r *TaskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, "get task")
	}
	return t, nil
}

// List returns task definitions ordered by id.
func (r *TaskRepository) List(ctx context.Context, activeOnly bool) ([]*model.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE is_active OR NOT $1 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetProgress returns the (user, task) progress row, or ErrProgressNotFound.
func (r *TaskRepository) GetProgress(ctx context.Context, userID, taskID int64) (*model.UserTask, error) {
	ut, err := scanUserTask(r.db.QueryRow(ctx,
		`SELECT `+userTaskColumns+` FROM user_tasks WHERE user_id = $1 AND task_id = $2`, userID, taskID))
	if err != nil {
		return nil, notFound(err, ErrProgressNotFound, "get task progress")
	}
	return ut, nil
}

// UpsertProgress writes the (user, task) row, creating it on first contact.
func (r *TaskRepository) UpsertProgress(ctx context.Context, ut *model.UserTask) (*model.UserTask, error) {
	query := `
		INSERT INTO user_tasks (user_id, task_id, progress, is_completed, claimed_reward, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, task_id)
		DO UPDATE SET progress = EXCLUDED.progress, is_completed = EXCLUDED.is_completed,
			claimed_reward = EXCLUDED.claimed_reward, updated_at = NOW()
		RETURNING ` + userTaskColumns
	saved, err := scanUserTask(r.db.QueryRow(ctx, query,
		ut.UserID, ut.TaskID, ut.Progress, ut.IsCompleted, ut.ClaimedReward))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert task progress: %w", err)
	}
	return saved, nil
}

// ListProgress returns every progress row of a user.
func (r *TaskRepository) ListProgress(ctx context.Context, userID int64) ([]*model.UserTask, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userTaskColumns+` FROM user_tasks WHERE user_id = $1 ORDER BY task_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task progress: %w", err)
	}
	defer rows.Close()

	var out []*model.UserTask
	for rows.Next() {
		ut, err := scanUserTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task progress: %w", err)
		}
		out = append(out, ut)
	}
	return out, rows.Err()
}
