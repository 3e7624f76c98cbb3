package devicelog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeLogRepo struct {
	devices []Device
	changes []Change

	failBatchAfter int // -1 disables the failure injection
	nextDeviceID   int64
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{
		failBatchAfter: -1,
		nextDeviceID:   1,
	}
}

func (f *fakeLogRepo) UpsertDevice(device *Device) error {
	for i := range f.devices {
		if f.devices[i].UserID == device.UserID && f.devices[i].Name == device.Name {
			f.devices[i].Caption = device.Caption
			f.devices[i].Type = device.Type

			return nil
		}
	}

	device.ID = f.nextDeviceID
	f.nextDeviceID++
	f.devices = append(f.devices, *device)

	return nil
}

func (f *fakeLogRepo) GetDevices(userID int64) ([]Device, error) {
	var devices []Device
	for _, device := range f.devices {
		if device.UserID == userID {
			devices = append(devices, device)
		}
	}

	return devices, nil
}

func (f *fakeLogRepo) GetDeviceByName(userID int64, name string) (*Device, error) {
	for _, device := range f.devices {
		if device.UserID == userID && device.Name == name {
			d := device

			return &d, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLogRepo) AppendChange(change *Change) error {
	f.changes = append(f.changes, *change)

	return nil
}

// AppendChangesBatch mirrors the transactional repo: on injected
// failure nothing is kept.
func (f *fakeLogRepo) AppendChangesBatch(changes []Change) error {
	if f.failBatchAfter >= 0 && len(changes) > f.failBatchAfter {
		return errors.New("constraint violation")
	}

	f.changes = append(f.changes, changes...)

	return nil
}

func (f *fakeLogRepo) GetChangesSince(userID, deviceID int64, since time.Time) ([]Change, error) {
	var rows []Change
	for _, change := range f.changes {
		if change.UserID == userID && change.DeviceID == deviceID && change.Timestamp.After(since) {
			rows = append(rows, change)
		}
	}

	return rows, nil
}

func (f *fakeLogRepo) CountSubscribed(userID, deviceID int64) (int64, error) {
	seen := make(map[string]struct{})
	for _, change := range f.changes {
		if change.UserID == userID && change.DeviceID == deviceID && change.Action == ActionSubscribe {
			seen[change.Podcast] = struct{}{}
		}
	}

	return int64(len(seen)), nil
}

func setupDevice(t *testing.T, service *Service) {
	t.Helper()

	require.NoError(t, service.UpdateDevice(7, "phone", "My phone", DeviceTypeMobile))
}

func TestUnitUploadAndReadBack(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	ts, err := service.UploadChanges(7, "phone",
		[]string{"http://a.example/feed.rss", "http://b.example/feed.rss"},
		[]string{"http://c.example/feed.rss"},
	)
	require.NoError(t, err)

	changes, err := service.ChangesSince(7, "phone", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a.example/feed.rss", "http://b.example/feed.rss"}, changes.Add)
	require.Equal(t, []string{"http://c.example/feed.rss"}, changes.Remove)
	require.Equal(t, ts, changes.Timestamp)
}

func TestUnitChangesSinceBoundary(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	_, err := service.UploadChanges(7, "phone", []string{"http://a.example/feed.rss"}, nil)
	require.NoError(t, err)

	first, err := service.ChangesSince(7, "phone", 0)
	require.NoError(t, err)
	require.Len(t, first.Add, 1)

	// re-querying with the returned cutoff yields an empty delta
	second, err := service.ChangesSince(7, "phone", first.Timestamp)
	require.NoError(t, err)
	require.Empty(t, second.Add)
	require.Empty(t, second.Remove)
	require.Equal(t, first.Timestamp, second.Timestamp)
}

func TestUnitChangesSinceNoDeduplication(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, service.RecordChange(7, "phone", base, ActionSubscribe, "http://a.example/feed.rss"))
	require.NoError(t, service.RecordChange(7, "phone", base.Add(time.Minute), ActionUnsubscribe, "http://a.example/feed.rss"))

	changes, err := service.ChangesSince(7, "phone", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a.example/feed.rss"}, changes.Add)
	require.Equal(t, []string{"http://a.example/feed.rss"}, changes.Remove)
}

func TestUnitUploadAtomicity(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	repo.failBatchAfter = 1

	_, err := service.UploadChanges(7, "phone",
		[]string{"http://a.example/feed.rss"},
		[]string{"http://b.example/feed.rss"},
	)
	require.Error(t, err)

	changes, err := service.ChangesSince(7, "phone", 0)
	require.NoError(t, err)
	require.Empty(t, changes.Add)
	require.Empty(t, changes.Remove)
}

func TestUnitUploadSharesOneTimestamp(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	_, err := service.UploadChanges(7, "phone",
		[]string{"http://a.example/feed.rss"},
		[]string{"http://b.example/feed.rss"},
	)
	require.NoError(t, err)
	require.Len(t, repo.changes, 2)
	require.Equal(t, repo.changes[0].Timestamp, repo.changes[1].Timestamp)
}

func TestUnitUploadRejectsOverlap(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	_, err := service.UploadChanges(7, "phone",
		[]string{"http://a.example/feed.rss"},
		[]string{"http://a.example/feed.rss"},
	)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUnitUnknownDevice(t *testing.T) {
	service := NewService(newFakeLogRepo())

	_, err := service.ChangesSince(7, "ghost", 0)
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestUnitRecordChangeRejectsUnknownAction(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	err := service.RecordChange(7, "phone", time.Now(), "archive", "http://a.example/feed.rss")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUnitListDevices(t *testing.T) {
	repo := newFakeLogRepo()
	service := NewService(repo)
	setupDevice(t, service)

	_, err := service.UploadChanges(7, "phone", []string{"http://a.example/feed.rss"}, nil)
	require.NoError(t, err)

	devices, err := service.ListDevices(7)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "phone", devices[0].Name)
	require.Equal(t, DeviceTypeMobile, devices[0].Type)
	require.Equal(t, int64(1), devices[0].Subscriptions)
}
