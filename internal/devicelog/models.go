package devicelog

import (
	"time"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeLaptop  DeviceType = "laptop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeServer  DeviceType = "server"
	DeviceTypeOther   DeviceType = "other"
)

type Device struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"index:idx_devices_user_name,unique"`
	Name   string `gorm:"index:idx_devices_user_name,unique"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Caption string
	Type    DeviceType
}

type DeviceView struct {
	Name          string     `json:"id"`
	Caption       string     `json:"caption"`
	Type          DeviceType `json:"type"`
	Subscriptions int64      `json:"subscriptions"`
}

// Change is one append-only row of the per-device action log. Rows are
// never updated or deleted.
type Change struct {
	ID       int64 `gorm:"primaryKey"`
	UserID   int64 `gorm:"index:idx_changes_user_device"`
	DeviceID int64 `gorm:"index:idx_changes_user_device"`

	Podcast   string
	Action    string
	Timestamp time.Time
}

func (c *Change) TableName() string {
	return "device_changes"
}

// Changes is the delta a device pulls on sync: every podcast it should
// add and remove, in log order, plus the cutoff for its next request.
type Changes struct {
	Add       []string `json:"add"`
	Remove    []string `json:"remove"`
	Timestamp int64    `json:"timestamp"`
}
