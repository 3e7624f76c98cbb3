package devicelog

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrValidation     = errors.New("validation failed")
)

type DataProvider interface {
	UpsertDevice(*Device) error
	GetDevices(userID int64) ([]Device, error)
	GetDeviceByName(userID int64, name string) (*Device, error)
	AppendChange(*Change) error
	AppendChangesBatch([]Change) error
	GetChangesSince(userID, deviceID int64, since time.Time) ([]Change, error)
	CountSubscribed(userID, deviceID int64) (int64, error)
}

type Service struct {
	repo DataProvider
}

func NewService(r DataProvider) *Service {
	return &Service{
		repo: r,
	}
}

func (s *Service) UpdateDevice(userID int64, name, caption string, typ DeviceType) error {
	if name == "" {
		return ErrValidation
	}

	if typ == "" {
		typ = DeviceTypeOther
	}

	return s.repo.UpsertDevice(&Device{
		UserID:  userID,
		Name:    name,
		Caption: caption,
		Type:    typ,
	})
}

func (s *Service) ListDevices(userID int64) ([]DeviceView, error) {
	devices, err := s.repo.GetDevices(userID)
	if err != nil {
		return nil, err
	}

	views := make([]DeviceView, 0, len(devices))
	for _, device := range devices {
		count, err := s.repo.CountSubscribed(userID, device.ID)
		if err != nil {
			return nil, fmt.Errorf("count subscriptions: %w", err)
		}

		views = append(views, DeviceView{
			Name:          device.Name,
			Caption:       device.Caption,
			Type:          device.Type,
			Subscriptions: count,
		})
	}

	return views, nil
}

// RecordChange appends one action to the device log. Existing rows are
// never touched.
func (s *Service) RecordChange(userID int64, deviceName string, ts time.Time, action, podcast string) error {
	if action != ActionSubscribe && action != ActionUnsubscribe {
		return ErrValidation
	}

	device, err := s.deviceByName(userID, deviceName)
	if err != nil {
		return err
	}

	return s.repo.AppendChange(&Change{
		UserID:    userID,
		DeviceID:  device.ID,
		Podcast:   podcast,
		Action:    action,
		Timestamp: ts,
	})
}

// ChangesSince projects the device log onto add/remove lists. Rows
// strictly newer than since are kept in log order, without
// deduplication: a podcast subscribed and unsubscribed after the
// cutoff shows up in both lists. The returned timestamp is the newest
// one seen, so feeding it back yields an empty delta.
func (s *Service) ChangesSince(userID int64, deviceName string, sinceEpoch int64) (Changes, error) {
	device, err := s.deviceByName(userID, deviceName)
	if err != nil {
		return Changes{}, err
	}

	since := time.Unix(sinceEpoch, 0).UTC()

	rows, err := s.repo.GetChangesSince(userID, device.ID, since)
	if err != nil {
		return Changes{}, err
	}

	changes := Changes{
		Add:       make([]string, 0, len(rows)),
		Remove:    make([]string, 0),
		Timestamp: sinceEpoch,
	}

	for _, row := range rows {
		switch row.Action {
		case ActionSubscribe:
			changes.Add = append(changes.Add, row.Podcast)
		case ActionUnsubscribe:
			changes.Remove = append(changes.Remove, row.Podcast)
		}

		if ts := row.Timestamp.Unix(); ts > changes.Timestamp {
			changes.Timestamp = ts
		}
	}

	return changes, nil
}

// UploadChanges appends one row per add and per remove, all sharing a
// single timestamp, in one transaction. It returns that timestamp.
func (s *Service) UploadChanges(userID int64, deviceName string, adds, removes []string) (int64, error) {
	for _, u := range adds {
		if slices.Contains(removes, u) {
			return 0, ErrValidation
		}
	}

	device, err := s.deviceByName(userID, deviceName)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Truncate(time.Second)

	batch := make([]Change, 0, len(adds)+len(removes))
	for _, podcast := range adds {
		batch = append(batch, Change{
			UserID:    userID,
			DeviceID:  device.ID,
			Podcast:   podcast,
			Action:    ActionSubscribe,
			Timestamp: now,
		})
	}
	for _, podcast := range removes {
		batch = append(batch, Change{
			UserID:    userID,
			DeviceID:  device.ID,
			Podcast:   podcast,
			Action:    ActionUnsubscribe,
			Timestamp: now,
		})
	}

	if err := s.repo.AppendChangesBatch(batch); err != nil {
		return 0, fmt.Errorf("append batch: %w", err)
	}

	return now.Unix(), nil
}

func (s *Service) deviceByName(userID int64, name string) (*Device, error) {
	device, err := s.repo.GetDeviceByName(userID, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	return device, nil
}
