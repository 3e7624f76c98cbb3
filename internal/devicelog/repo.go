package devicelog

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// UpsertDevice creates the device on first contact and refreshes its
// caption and type afterwards, matching gpodder's device update call.
func (r *Repo) UpsertDevice(device *Device) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"caption", "type", "updated_at"}),
		}).
		Create(device).
		Error
}

func (r *Repo) GetDevices(userID int64) ([]Device, error) {
	var devices []Device
	err := r.db.
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&devices).
		Error
	if err != nil {
		return nil, fmt.Errorf("get devices: %d: %w", userID, err)
	}

	return devices, nil
}

func (r *Repo) GetDeviceByName(userID int64, name string) (*Device, error) {
	var device Device
	err := r.db.
		Where("user_id = ? AND name = ?", userID, name).
		First(&device).
		Error
	if err != nil {
		return nil, err
	}

	return &device, nil
}

func (r *Repo) AppendChange(change *Change) error {
	return r.db.Create(change).Error
}

// AppendChangesBatch writes the whole batch in one transaction so a
// concurrent reader never observes a partial upload.
func (r *Repo) AppendChangesBatch(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range changes {
			if err := tx.Create(&changes[i]).Error; err != nil {
				return fmt.Errorf("append change: %w", err)
			}
		}

		return nil
	})
}

// GetChangesSince returns log rows strictly newer than since, in
// insertion order.
func (r *Repo) GetChangesSince(userID, deviceID int64, since time.Time) ([]Change, error) {
	var changes []Change
	err := r.db.
		Where("user_id = ? AND device_id = ? AND timestamp > ?", userID, deviceID, since).
		Order("id ASC").
		Find(&changes).
		Error
	if err != nil {
		return nil, fmt.Errorf("get changes: %w", err)
	}

	return changes, nil
}

func (r *Repo) CountSubscribed(userID, deviceID int64) (int64, error) {
	var count int64
	err := r.db.
		Model(&Change{}).
		Where("user_id = ? AND device_id = ? AND action = ?", userID, deviceID, ActionSubscribe).
		Distinct("podcast").
		Count(&count).
		Error

	return count, err
}
