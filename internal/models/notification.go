package models

import "time"

// Notification is a message delivered to a user, typically when one of
// their submissions has been graded.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
