package deletion

import (
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(task *Task) error {
	return r.db.Create(task).Error
}

// GetByIDAndUser scopes the lookup to the owner, other users' tasks
// stay invisible.
func (r *Repo) GetByIDAndUser(id, userID int64) (*Task, error) {
	var task Task
	err := r.db.
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).
		Error
	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *Repo) GetPending(limit int) ([]Task, error) {
	var tasks []Task
	err := r.db.
		Where("status = ?", StatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&tasks).
		Error
	if err != nil {
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}

	return tasks, nil
}

func (r *Repo) CountPending() (int64, error) {
	var count int64
	err := r.db.
		Model(&Task{}).
		Where("status = ?", StatusPending).
		Count(&count).
		Error

	return count, err
}

// MarkProcessed moves a pending task into a terminal status. The
// conditional update keyed on the pending status makes the transition
// atomic: a task already finished by a racing worker is left alone and
// reported as not transitioned.
func (r *Repo) MarkProcessed(id int64, to Status) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("status %q is not terminal", to)
	}

	res := r.db.
		Model(&Task{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("mark task %d %s: %w", id, to, res.Error)
	}

	return res.RowsAffected > 0, nil
}
