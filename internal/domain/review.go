package domain

import "time"

// Review Model. Votes and responses hang off a review and must be
// removed before the review itself.
type Review struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    uint  `gorm:"index;not null"` // Author
	ProductID *uint `gorm:"index"`          // Optional product target
	VendorID  *uint `gorm:"index"`          // Optional vendor target
	OrderID   *uint `gorm:"index"`          // Optional originating order
	Rating    int   `gorm:"not null"`
	Comment   string
	Votes     []ReviewVote     `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	Responses []ReviewResponse `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// ReviewVote records a helpful/unhelpful vote on a review.
type ReviewVote struct {
	ID       uint `gorm:"primaryKey"`
	ReviewID uint `gorm:"index;not null"`
	UserID   uint `gorm:"index;not null"`
	Value    int  `gorm:"not null"` // +1 or -1
}

// ReviewResponse is a vendor's reply to a review.
type ReviewResponse struct {
	ID        uint   `gorm:"primaryKey"`
	ReviewID  uint   `gorm:"index;not null"`
	UserID    uint   `gorm:"index;not null"` // Responding user (vendor side)
	Body      string `gorm:"not null"`
	CreatedAt time.Time
}
