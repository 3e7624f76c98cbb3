package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("user already exists")
)

type DataProvider interface {
	Create(*User) error
	Update(User) error
	GetByID(int64) (*User, error)
	GetByUsername(string) (*User, error)
}

type SessionProvider interface {
	Create(*Session) error
	GetByToken(uuid.UUID) (*Session, error)
	Delete(uuid.UUID) error
	DeleteAllByUserID(int64) error
}

type Service struct {
	repo     DataProvider
	sessions SessionProvider
}

func NewService(r DataProvider, sr SessionProvider) *Service {
	return &Service{
		repo:     r,
		sessions: sr,
	}
}

func (s *Service) GetByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetByUsername(username string) (*User, error) {
	return s.repo.GetByUsername(username)
}

func (s *Service) Register(username, email, password string) (*User, error) {
	_, err := s.repo.GetByUsername(username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err == nil {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(&u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &u, nil
}

// Login verifies the password and issues a fresh session token.
func (s *Service) Login(username, password string) (*Session, error) {
	u, err := s.repo.GetByUsername(username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := Session{
		Token:   uuid.New(),
		UserID:  u.ID,
		Expires: time.Now().Add(sessionTTL),
	}
	if err := s.sessions.Create(&session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

func (s *Service) Logout(token uuid.UUID) error {
	return s.sessions.Delete(token)
}

// GetBySessionToken resolves a session token to its user. Expired and
// unknown tokens both come back as gorm.ErrRecordNotFound so the
// middleware treats them the same.
func (s *Service) GetBySessionToken(token uuid.UUID) (*User, error) {
	session, err := s.sessions.GetByToken(token)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		return nil, gorm.ErrRecordNotFound
	}

	return s.repo.GetByID(session.UserID)
}
