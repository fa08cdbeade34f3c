package models

import (
	"regexp"
	"time"
)

// Employee is a person shifts are scheduled for.
type Employee struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Color     string    `gorm:"not null" json:"color"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Shift is a work period of one employee on one date. Published shifts live
// in the remote store; pending ones only in the local queue.
type Shift struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"not null" json:"title"`
	Date          string     `gorm:"index;not null" json:"date"`
	StartTime     string     `gorm:"not null" json:"startTime"`
	EndTime       string     `gorm:"not null" json:"endTime"`
	EmployeeID    string     `gorm:"index;not null" json:"userId"`
	SendEmail     bool       `gorm:"not null" json:"sendEmail"`
	GoogleEventID *string    `json:"googleEventId"`
	CreatedAt     time.Time  `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt     *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty"`
	IsPending     bool       `gorm:"-" json:"isPending"`
}

// Published reports whether the shift is mirrored in the external calendar.
func (s Shift) Published() bool {
	return s.GoogleEventID != nil && *s.GoogleEventID != ""
}

// EventID returns the external calendar id or "".
func (s Shift) EventID() string {
	if s.GoogleEventID == nil {
		return ""
	}
	return *s.GoogleEventID
}

// StringPtr is a helper for the optional fields above.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail is the simple address check applied to employees and the admin.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
