package domain

import "time"

// Ambient per-user records. None of these have dependents of their own;
// the deletion orchestrator clears them first.

// UserPreference stores arbitrary key/value settings per user.
type UserPreference struct {
	ID     uint   `gorm:"primaryKey"`
	UserID uint   `gorm:"index;not null"`
	Key    string `gorm:"not null"`
	Value  string
}

// SearchLog records a search a user ran.
type SearchLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Query     string `gorm:"not null"`
	CreatedAt time.Time
}

// SecurityEvent records login failures, fraud flags and similar.
type SecurityEvent struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Kind      string `gorm:"not null"`
	Detail    string
	CreatedAt time.Time
}

// RateLimitViolation records a throttled request.
type RateLimitViolation struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Endpoint  string `gorm:"not null"`
	CreatedAt time.Time
}

// VerificationToken is a pending email/phone verification code.
type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Channel   string `gorm:"not null"` // email or phone
	Token     string `gorm:"not null"`
	ExpiresAt time.Time
}

// ChatRoom groups messages between a customer and a vendor.
type ChatRoom struct {
	ID          uint `gorm:"primaryKey"`
	CreatedByID uint `gorm:"index;not null"` // User who opened the room
	CreatedAt   time.Time
}

// ChatMember links a user to a room.
type ChatMember struct {
	ID     uint `gorm:"primaryKey"`
	RoomID uint `gorm:"index;not null"`
	UserID uint `gorm:"index;not null"`
}

// ChatMessage is a single message in a room.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    uint   `gorm:"index;not null"`
	SenderID  uint   `gorm:"index;not null"`
	Body      string `gorm:"not null"`
	CreatedAt time.Time
}
