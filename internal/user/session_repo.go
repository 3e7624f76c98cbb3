package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(session *Session) error {
	return r.db.Create(&session).Error
}

func (r *SessionRepo) GetByToken(token uuid.UUID) (*Session, error) {
	session := Session{Token: token}
	request := r.db.Take(&session)
	if err := request.Error; err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepo) Delete(token uuid.UUID) error {
	return r.db.Delete(&Session{Token: token}).Error
}

func (r *SessionRepo) DeleteAllByUserID(userID int64) error {
	return r.db.Where("user_id = ?", userID).Delete(&Session{}).Error
}
