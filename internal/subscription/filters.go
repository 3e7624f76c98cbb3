package subscription

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Filter interface {
	Apply(*gorm.DB) *gorm.DB
}

type PageFilter struct {
	Offset int
	Limit  int
}

func (f PageFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(f.Offset).Limit(f.Limit)
}

type UserIDFilter struct {
	ID int64
}

func (f UserIDFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", f.ID)
}

// ChangedBeforeFilter reproduces the protocol's historical "since"
// filter: rows whose created, updated or deleted timestamp lies before
// the cutoff. Note the direction: older than the cutoff, not changed
// after it.
type ChangedBeforeFilter struct {
	Since time.Time
}

func (f ChangedBeforeFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(
		"created < @since OR updated < @since OR deleted < @since",
		sql.Named("since", f.Since),
	)
}

type OrderByCreatedDescFilter struct{}

func (f OrderByCreatedDescFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created DESC")
}
