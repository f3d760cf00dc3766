package models

import (
	"time"
)

type VersionStatus string

const (
	VersionDraft     VersionStatus = "draft"
	VersionPublished VersionStatus = "published"
)

// TestTemplate is the top-level authoring unit. Structure lives on its
// versions, never on the template itself.
type TestTemplate struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Description *string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Versions []TemplateVersion `json:"versions,omitempty" gorm:"foreignKey:TemplateID"`

	// Statistics (computed)
	VersionCount int `json:"version_count" gorm:"-"`
}

// TemplateVersion is the unit of locking: structural mutations are only
// legal while Status == draft. Publishing is one-way.
type TemplateVersion struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	TemplateID uint          `json:"template_id" gorm:"not null;index;uniqueIndex:idx_template_version_number"`
	Version    int           `json:"version" gorm:"not null;uniqueIndex:idx_template_version_number"`
	Status     VersionStatus `json:"status" gorm:"not null;default:draft;index"`
	Notes      *string       `json:"notes" gorm:"type:text"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Template  *TestTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
	Questions []Question    `json:"questions,omitempty" gorm:"foreignKey:VersionID"`

	// Statistics (computed)
	QuestionCount int `json:"question_count" gorm:"-"`
}

func (v *TemplateVersion) IsDraft() bool {
	return v.Status == VersionDraft
}

func (v *TemplateVersion) IsPublished() bool {
	return v.Status == VersionPublished
}
