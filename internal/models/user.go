package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // needed for pq.StringArray
	"gorm.io/gorm"
)

// User is the durable record behind an anonymous identity. The engine only
// ever sees the anonymous UUID; this row carries reputation and ban state.
type User struct {
	ID string `gorm:"primaryKey" json:"id"` // anonymous UUID
	// Interests last declared at enrollment, kept for operator visibility.
	Interests pq.StringArray `gorm:"type:text[]"`
	// ReputationScore decreases when confirmed reports land against the user.
	ReputationScore int
	IsBlocked       bool
	// BlockEndTime is a unix timestamp; zero means no timed block.
	BlockEndTime int64
	BlockLevel   int
	LastBanDate  int64
}

// BeforeCreate is a GORM hook that assigns a fresh anonymous UUID
// when the ID has not been set by the caller.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
