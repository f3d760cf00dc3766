package models

import (
	"time"
)

type TestStatus string

const (
	TestActive TestStatus = "active"
	TestClosed TestStatus = "closed"
)

// Period is an application window. Tests reference it; a period with tests
// cannot be deleted.
type Period struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:120;uniqueIndex" validate:"required,max=120"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Statistics (computed)
	TestCount int `json:"test_count" gorm:"-"`
}

// Test binds a published template version to a period behind an access
// code. Students reach it only through the code.
type Test struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	VersionID  uint       `json:"version_id" gorm:"not null;index"`
	PeriodID   uint       `json:"period_id" gorm:"not null;index"`
	AccessCode string     `json:"access_code" gorm:"not null;size:40;uniqueIndex" validate:"required,max=40"`
	Status     TestStatus `json:"status" gorm:"not null;default:active;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Version *TemplateVersion `json:"version,omitempty" gorm:"foreignKey:VersionID"`
	Period  *Period          `json:"period,omitempty" gorm:"foreignKey:PeriodID"`
}

func (t *Test) IsActive() bool {
	return t.Status == TestActive
}
