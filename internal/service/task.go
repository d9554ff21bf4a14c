package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/repository"
)

// ProgressUpdate either sets progress to Value or adds Value to it.
type ProgressUpdate struct {
	Value     int
	Increment bool
}

// apply returns the new raw progress for current. Increments saturate at
// math.MaxInt.
func (p ProgressUpdate) apply(current int) int {
	if p.Increment {
		if p.Value > 0 && current > math.MaxInt-p.Value {
			return math.MaxInt
		}
		return current + p.Value
	}
	return p.Value
}

func clampProgress(v, target int) int {
	if v < 0 {
		return 0
	}
	if v > target {
		return target
	}
	return v
}

// applyTaskProgress is the pure progress transition. Claimed rows are frozen.
func applyTaskProgress(ut model.UserTask, target int, upd ProgressUpdate) model.UserTask {
	if ut.ClaimedReward {
		return ut
	}
	ut.Progress = clampProgress(upd.apply(ut.Progress), target)
	ut.IsCompleted = ut.Progress >= target
	return ut
}

// TaskView is a task definition joined with the caller's progress.
type TaskView struct {
	*model.Task
	Progress      int  `json:"progress"`
	IsCompleted   bool `json:"isCompleted"`
	ClaimedReward bool `json:"claimedReward"`
}

// TaskClaim is the result of a successful task claim.
type TaskClaim struct {
	Reward     int64 `json:"reward"`
	NewBalance int64 `json:"newBalance"`
}

// TaskService runs the task progress engine.
type TaskService struct {
	*Engine
}

// NewTaskService creates a new TaskService instance.
func NewTaskService(engine *Engine) *TaskService {
	return &TaskService{Engine: engine}
}

// ListForUser returns the active tasks with userID's progress.
func (s *TaskService) ListForUser(ctx context.Context, userID int64) ([]TaskView, error) {
	tasks, err := s.store.Tasks().List(ctx, true)
	if err != nil {
		return nil, translate(err, "list tasks")
	}
	rows, err := s.store.Tasks().ListProgress(ctx, userID)
	if err != nil {
		return nil, translate(err, "list task progress")
	}
	byTask := make(map[int64]*model.UserTask, len(rows))
	for _, r := range rows {
		byTask[r.TaskID] = r
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := TaskView{Task: t}
		if r, ok := byTask[t.ID]; ok {
			v.Progress, v.IsCompleted, v.ClaimedReward = r.Progress, r.IsCompleted, r.ClaimedReward
		}
		views = append(views, v)
	}
	return views, nil
}

// RecordProgress updates userID's progress on taskID, creating the row on
// first contact.
func (s *TaskService) RecordProgress(ctx context.Context, userID, taskID int64, upd ProgressUpdate) (*model.UserTask, error) {
	var saved *model.UserTask
	err := s.mutate(ctx, userID, func(acc *account) error {
		task, err := acc.tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return translate(err, "get task")
		}
		if !task.IsActive {
			return ErrTaskNotFound
		}

		current, err := acc.tx.Tasks().GetProgress(ctx, userID, taskID)
		if errors.Is(err, repository.ErrProgressNotFound) {
			current = &model.UserTask{UserID: userID, TaskID: taskID}
		} else if err != nil {
			return err
		}

		next := applyTaskProgress(*current, task.Target, upd)
		if current.ID != 0 && next == *current {
			saved = current
			return nil
		}
		saved, err = acc.tx.Tasks().UpsertProgress(ctx, &next)
		return err
	})
	logOutcome(err, "task_progress", userID)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ClaimReward credits the task reward once. Any unmet precondition fails
// with ErrTaskNotClaimable and changes nothing.
func (s *TaskService) ClaimReward(ctx context.Context, userID, taskID int64) (*TaskClaim, error) {
	var claim *TaskClaim
	err := s.mutate(ctx, userID, func(acc *account) error {
		task, err := acc.tx.Tasks().Get(ctx, taskID)
		if err != nil {
			if errors.Is(err, repository.ErrTaskNotFound) {
				return ErrTaskNotClaimable
			}
			return err
		}
		progress, err := acc.tx.Tasks().GetProgress(ctx, userID, taskID)
		if err != nil {
			if errors.Is(err, repository.ErrProgressNotFound) {
				return ErrTaskNotClaimable
			}
			return err
		}
		if !progress.IsCompleted || progress.ClaimedReward {
			return ErrTaskNotClaimable
		}

		if task.Reward > 0 {
			if _, err := acc.post(ctx, task.Reward, model.TxTypeTaskReward, model.TxStatusCompleted,
				fmt.Sprintf("Task reward: %s", task.Title)); err != nil {
				return err
			}
		}
		progress.ClaimedReward = true
		if _, err := acc.tx.Tasks().UpsertProgress(ctx, progress); err != nil {
			return err
		}
		claim = &TaskClaim{Reward: task.Reward, NewBalance: acc.user.Coins}
		return nil
	})
	metrics.Claim("task", err)
	logOutcome(err, "task_claim", userID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", userID).Int64("task_id", taskID).Int64("reward", claim.Reward).Msg("Task reward claimed")
	return claim, nil
}

// ListAll returns every task definition, active or not.
func (s *TaskService) ListAll(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.store.Tasks().List(ctx, false)
	return tasks, translate(err, "list tasks")
}

func validateTask(t *model.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !t.Type.Valid():
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, t.Type)
	case t.Target < 1:
		return fmt.Errorf("%w: target must be positive", ErrInvalidInput)
	case t.Reward < 0:
		return fmt.Errorf("%w: reward cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Create adds a task definition.
func (s *TaskService) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	if err := validateTask(t); err != nil {
		return nil, err
	}
	created, err := s.store.Tasks().Create(ctx, t)
	if err != nil {
		return nil, translate(err, "create task")
	}
	log.Info().Int64("task_id", created.ID).Str("title", created.Title).Msg("Task created")
	return created, nil
}

// Update overwrites a task definition. Setting IsActive false deactivates it.
func (s *TaskService) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	if err := validateTask(t); err != nil {
		return nil, err
	}
	updated, err := s.store.Tasks().Update(ctx, t)
	return updated, translate(err, "update task")
}

// Deactivate hides a task from users. Existing progress is kept.
func (s *TaskService) Deactivate(ctx context.Context, taskID int64) (*model.Task, error) {
	t, err := s.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return nil, translate(err, "get task")
	}
	if !t.IsActive {
		return t, nil
	}
	t.IsActive = false
	updated, err := s.store.Tasks().Update(ctx, t)
	if err != nil {
		return nil, translate(err, "deactivate task")
	}
	log.Info().Int64("task_id", taskID).Msg("Task deactivated")
	return updated, nil
}
