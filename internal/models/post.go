// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post represents an entry written by a user, optionally filed under a group.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	// ImageURL is not persisted; filled from the blob store when rendering.
	ImageURL string `gorm:"-" json:"image_url,omitempty"`
}

// BeforeSave refuses to persist a post without text.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	if strings.TrimSpace(p.Text) == "" {
		return NewFieldError("text", "This field is required.")
	}
	return nil
}
