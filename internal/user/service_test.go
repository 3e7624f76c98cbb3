package user

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[int64]*User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[int64]*User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) Create(u *User) error {
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = u

	return nil
}

func (f *fakeUserRepo) Update(u User) error {
	f.users[u.ID] = &u

	return nil
}

func (f *fakeUserRepo) GetByID(id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	return u, nil
}

func (f *fakeUserRepo) GetByUsername(username string) (*User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (f *fakeSessionRepo) Create(s *Session) error {
	f.sessions[s.Token] = s

	return nil
}

func (f *fakeSessionRepo) GetByToken(token uuid.UUID) (*Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	return s, nil
}

func (f *fakeSessionRepo) Delete(token uuid.UUID) error {
	delete(f.sessions, token)

	return nil
}

func (f *fakeSessionRepo) DeleteAllByUserID(userID int64) error {
	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
		}
	}

	return nil
}

func TestUnitRegisterAndLogin(t *testing.T) {
	service := NewService(newFakeUserRepo(), newFakeSessionRepo())

	u, err := service.Register("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	require.NotEqual(t, "s3cret", u.PasswordHash)

	session, err := service.Login("alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, u.ID, session.UserID)
	require.True(t, session.Expires.After(time.Now()))

	resolved, err := service.GetBySessionToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID, resolved.ID)
}

func TestUnitRegisterDuplicateUsername(t *testing.T) {
	service := NewService(newFakeUserRepo(), newFakeSessionRepo())

	_, err := service.Register("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = service.Register("alice", "other@example.com", "s3cret")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUnitLoginInvalidCredentials(t *testing.T) {
	service := NewService(newFakeUserRepo(), newFakeSessionRepo())

	_, err := service.Register("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	for name, attempt := range map[string]struct {
		username string
		password string
	}{
		"wrong password": {username: "alice", password: "wrong"},
		"unknown user":   {username: "bob", password: "s3cret"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := service.Login(attempt.username, attempt.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestUnitExpiredSessionRejected(t *testing.T) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	service := NewService(users, sessions)

	u, err := service.Register("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token := uuid.New()
	require.NoError(t, sessions.Create(&Session{
		Token:   token,
		UserID:  u.ID,
		Expires: time.Now().Add(-time.Minute),
	}))

	_, err = service.GetBySessionToken(token)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUnitLogoutInvalidatesToken(t *testing.T) {
	service := NewService(newFakeUserRepo(), newFakeSessionRepo())

	_, err := service.Register("alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	session, err := service.Login("alice", "s3cret")
	require.NoError(t, err)

	require.NoError(t, service.Logout(session.Token))

	_, err = service.GetBySessionToken(session.Token)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
