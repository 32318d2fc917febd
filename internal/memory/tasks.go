package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zoonderkins/augment-lite/internal/errors"
)

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

// Task is one tracked work item.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// TaskStats summarizes a project's tasks by status.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// Tasks is the per-project task store.
type Tasks struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenTasks opens (or creates) the task database.
func OpenTasks(path string) (*Tasks, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create task directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open task database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			priority INTEGER NOT NULL DEFAULT 0,
			parent_id INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize task schema: %w", err)
	}

	return &Tasks{db: db}, nil
}

func validStatus(status string) bool {
	switch status {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Add creates a task and returns its id.
func (t *Tasks) Add(projectName, title, description string, priority int, parentID *int64) (int64, error) {
	if title == "" {
		return 0, errors.New(errors.CodeInvalidInput, "task title must not be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().Unix()
	res, err := t.db.Exec(`
		INSERT INTO tasks (project, title, description, status, priority, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		projectName, title, description, TaskPending, priority, parentID, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Get returns one task, or nil if unknown.
func (t *Tasks) Get(projectName string, id int64) (*Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(projectName, id)
}

func (t *Tasks) get(projectName string, id int64) (*Task, error) {
	var task Task
	err := t.db.QueryRow(`
		SELECT id, title, description, status, priority, parent_id, created_at, updated_at
		FROM tasks WHERE project = ? AND id = ?`, projectName, id).
		Scan(&task.ID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.ParentID, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks, optionally filtered by status, priority first.
func (t *Tasks) List(projectName, status string) ([]*Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	query := `SELECT id, title, description, status, priority, parent_id, created_at, updated_at
		FROM tasks WHERE project = ?`
	args := []any{projectName}
	if status != "" {
		if !validStatus(status) {
			return nil, errors.New(errors.CodeInvalidInput, "invalid task status %q", status)
		}
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY priority DESC, id ASC`

	rows, err := t.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var task Task
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.ParentID, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// Update patches the given fields; nil fields stay unchanged.
// Returns the updated task, or nil if unknown.
func (t *Tasks) Update(projectName string, id int64, title, description, status *string, priority *int) (*Task, error) {
	if status != nil && !validStatus(*status) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid task status %q", *status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.get(projectName, id)
	if err != nil || task == nil {
		return nil, err
	}

	if title != nil {
		task.Title = *title
	}
	if description != nil {
		task.Description = *description
	}
	if status != nil {
		task.Status = *status
	}
	if priority != nil {
		task.Priority = *priority
	}
	task.UpdatedAt = time.Now().Unix()

	_, err = t.db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, updated_at = ?
		WHERE project = ? AND id = ?`,
		task.Title, task.Description, task.Status, task.Priority, task.UpdatedAt,
		projectName, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task, optionally cascading to subtasks.
func (t *Tasks) Delete(projectName string, id int64, deleteSubtasks bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if deleteSubtasks {
		if _, err := t.db.Exec(
			`DELETE FROM tasks WHERE project = ? AND parent_id = ?`, projectName, id); err != nil {
			return false, err
		}
	}
	res, err := t.db.Exec(`DELETE FROM tasks WHERE project = ? AND id = ?`, projectName, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Current returns the most recently updated in-progress task, or nil.
func (t *Tasks) Current(projectName string) (*Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var task Task
	err := t.db.QueryRow(`
		SELECT id, title, description, status, priority, parent_id, created_at, updated_at
		FROM tasks WHERE project = ? AND status = ?
		ORDER BY updated_at DESC LIMIT 1`, projectName, TaskInProgress).
		Scan(&task.ID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.ParentID, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Resume marks a task in_progress and returns it, or nil if unknown.
func (t *Tasks) Resume(projectName string, id int64) (*Task, error) {
	status := TaskInProgress
	return t.Update(projectName, id, nil, nil, &status, nil)
}

// Stats returns the per-status counts for a project.
func (t *Tasks) Stats(projectName string) (*TaskStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.db.Query(`
		SELECT status, COUNT(*) FROM tasks WHERE project = ? GROUP BY status`, projectName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &TaskStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch status {
		case TaskPending:
			stats.Pending = count
		case TaskInProgress:
			stats.InProgress = count
		case TaskCompleted:
			stats.Completed = count
		case TaskCancelled:
			stats.Cancelled = count
		}
	}
	return stats, rows.Err()
}

// Close closes the database.
func (t *Tasks) Close() error {
	return t.db.Close()
}
