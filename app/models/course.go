package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Course is a catalog entry with tier-gated content.
type Course struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          string    `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	Title         string    `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=3,max=255"`
	Description   string    `gorm:"type:text" json:"description"`
	Content       string    `gorm:"type:longtext" json:"content,omitempty"`
	Difficulty    string    `gorm:"type:varchar(20);not null;default:'beginner';index" json:"difficulty" validate:"oneof=beginner intermediate advanced"`
	RequiredTier  string    `gorm:"type:varchar(20);not null;default:'free';index" json:"required_tier" validate:"oneof=free pro premium"`
	ThumbnailURL  string    `gorm:"type:varchar(255)" json:"thumbnail_url"`
	VideoURL      string    `gorm:"type:varchar(255)" json:"video_url"`
	ResourcesJSON string    `gorm:"column:resources;type:longtext" json:"-"`
	ViewCount     int64     `gorm:"default:0" json:"view_count"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Course) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// CourseResource is a downloadable attachment (PDF, slides, code).
type CourseResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Resources decodes the stored resource list; a broken or empty column
// yields an empty slice rather than an error.
func (c *Course) Resources() []CourseResource {
	if c.ResourcesJSON == "" {
		return nil
	}
	var out []CourseResource
	if err := json.Unmarshal([]byte(c.ResourcesJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetResources encodes and stores the resource list.
func (c *Course) SetResources(resources []CourseResource) error {
	if len(resources) == 0 {
		c.ResourcesJSON = ""
		return nil
	}
	raw, err := json.Marshal(resources)
	if err != nil {
		return err
	}
	c.ResourcesJSON = string(raw)
	return nil
}
