package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"       json:"email"`
	Username     string    `gorm:"uniqueIndex;not null"       json:"username"`
	PasswordHash string    `gorm:"not null"                   json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Correction struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	UserID        uint      `gorm:"index;not null"                           json:"user_id"`
	User          *User     `gorm:"constraint:OnDelete:CASCADE"              json:"-"`
	OriginalText  string    `gorm:"type:text;not null"                       json:"original_text"`
	CorrectedText string    `gorm:"type:text;not null"                       json:"corrected_text"`
	Language      string    `gorm:"size:16"                                  json:"language"`
	CreatedAt     time.Time `gorm:"index"                                    json:"created_at"`
}

func All() []any {
	return []any{&User{}, &Correction{}}
}
