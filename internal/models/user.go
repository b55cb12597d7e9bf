// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultImageURL is the avatar shown until a user picks their own.
	DefaultImageURL = "/static/images/default-pic.png"
	// DefaultHeaderImageURL is the profile banner shown until a user picks their own.
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"

	MaxUsernameLength = 30
	MaxBioLength      = 140
	MaxLocationLength = 30
)

// User represents a Warbler account.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"unique;not null" json:"username"`
	Email          string    `gorm:"unique;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `gorm:"not null" json:"image_url"`
	HeaderImageURL string    `gorm:"not null" json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeSave fills blank image URLs with the defaults.
func (u *User) BeforeSave(_ *gorm.DB) error {
	u.ApplyImageDefaults()
	return nil
}

// ApplyImageDefaults resets blank image URLs to the stock pictures.
func (u *User) ApplyImageDefaults() {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
}
