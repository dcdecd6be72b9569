package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskforge/taskforge-be/internal/apperr"
	"github.com/taskforge/taskforge-be/internal/models"
)

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	CreateTask(ctx context.Context, ownerID, description string, completed bool) (models.Task, error)
	ListTasks(ctx context.Context, ownerID string, opts TaskListOptions) ([]models.Task, error)
	GetTask(ctx context.Context, ownerID, id string) (models.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (models.Task, error)
	DeleteTask(ctx context.Context, ownerID, id string) (models.Task, error)
}

// TaskListOptions are the composable refinements for listing tasks. A zero
// Completed pointer or negative Limit means "no constraint".
type TaskListOptions struct {
	Completed *bool
	Limit     int
	Skip      int
	SortBy    string // "field:asc" or "field:desc"
}

// taskSortColumns maps the exposed sort field names to their columns.
var taskSortColumns = map[string]string{
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// taskUpdatableFields is the allowed key set for task PATCH requests.
var taskUpdatableFields = map[string]bool{
	"description": true,
	"completed":   true,
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// CreateTask creates a task owned by the given user.
func (s *TaskService) CreateTask(ctx context.Context, ownerID, description string, completed bool) (models.Task, error) {
	if err := models.ValidateDescription(description); err != nil {
		return models.Task{}, err
	}

	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks(id, description, completed, owner_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)",
		task.ID, task.Description, task.Completed, task.OwnerID, toMillis(task.CreatedAt), toMillis(task.UpdatedAt))
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks returns the requester's tasks, refined by the given options. All
// refinements compose via conjunction on a single owner-scoped query.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, opts TaskListOptions) ([]models.Task, error) {
	orderClause := "created_at ASC"
	if opts.SortBy != "" {
		column, direction, err := parseSortBy(opts.SortBy)
		if err != nil {
			return nil, err
		}
		orderClause = column + " " + direction
	}

	query := "SELECT id, description, completed, owner_id, created_at, updated_at FROM tasks WHERE owner_id = ?"
	args := []any{ownerID}
	if opts.Completed != nil {
		query += " AND completed = ?"
		args = append(args, *opts.Completed)
	}
	query += " ORDER BY " + orderClause

	// SQLite requires a LIMIT clause before OFFSET; -1 means unlimited.
	if opts.Limit >= 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Skip > 0 {
		query += " LIMIT -1"
	}
	if opts.Skip > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Skip)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetTask returns the task only if it exists and belongs to the requester.
// A foreign task and a missing task are the same not-found outcome; the
// single (id, owner) predicate keeps the two cases on one code path.
func (s *TaskService) GetTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, description, completed, owner_id, created_at, updated_at FROM tasks WHERE id = ? AND owner_id = ?",
		id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, apperr.ErrNotFound("task not found")
		}
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update with the same ownership scoping as
// GetTask. Unknown keys reject the whole request before any write.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (models.Task, error) {
	for key := range fields {
		if !taskUpdatableFields[key] {
			return models.Task{}, apperr.ErrValidation(fmt.Sprintf("invalid update field: %s", key))
		}
	}

	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return models.Task{}, err
	}

	if raw, ok := fields["description"]; ok {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			return models.Task{}, apperr.ErrValidation("description must be a string")
		}
		if err := models.ValidateDescription(description); err != nil {
			return models.Task{}, err
		}
		task.Description = description
	}
	if raw, ok := fields["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return models.Task{}, apperr.ErrValidation("completed must be a boolean")
		}
		task.Completed = completed
	}

	task.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"UPDATE tasks SET description = ?, completed = ?, updated_at = ? WHERE id = ? AND owner_id = ?",
		task.Description, task.Completed, toMillis(task.UpdatedAt), task.ID, ownerID)
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes the task with the same ownership scoping as GetTask and
// returns the deleted record.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return models.Task{}, err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return models.Task{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, apperr.ErrNotFound("task not found")
	}
	return task, nil
}

// parseSortBy validates a "field:direction" refinement against the exposed
// sort fields. A bare field name sorts ascending.
func parseSortBy(sortBy string) (column, direction string, err error) {
	parts := strings.SplitN(sortBy, ":", 2)

	column, ok := taskSortColumns[parts[0]]
	if !ok {
		return "", "", apperr.ErrValidation(fmt.Sprintf("invalid sort field: %s", parts[0]))
	}

	direction = "ASC"
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
			direction = "ASC"
		case "desc":
			direction = "DESC"
		default:
			return "", "", apperr.ErrValidation(fmt.Sprintf("invalid sort direction: %s", parts[1]))
		}
	}
	return column, direction, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var task models.Task
	var createdAt, updatedAt int64
	err := row.Scan(&task.ID, &task.Description, &task.Completed, &task.OwnerID, &createdAt, &updatedAt)
	if err != nil {
		return models.Task{}, err
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}
