package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student is keyed by national ID; the public flow upserts it on first
// contact with any test.
type Student struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	DocumentID string  `json:"document_id" gorm:"not null;size:20;uniqueIndex" validate:"required,max=20"`
	FirstName  string  `json:"first_name" gorm:"not null;size:120" validate:"required,max=120"`
	LastName   string  `json:"last_name" gorm:"not null;size:120" validate:"required,max=120"`
	Email      *string `json:"email" gorm:"size:200" validate:"omitempty,email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TestAssignment tracks one student's run of one test. Completed is
// one-way; a completed assignment rejects start and submit.
type TestAssignment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	TestID    uint `json:"test_id" gorm:"not null;index;uniqueIndex:idx_assignment_test_student"`
	StudentID uint `json:"student_id" gorm:"not null;index;uniqueIndex:idx_assignment_test_student"`

	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test    *Test    `json:"test,omitempty" gorm:"foreignKey:TestID"`
	Student *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Answers []TestAnswer `json:"answers,omitempty" gorm:"foreignKey:AssignmentID"`
}

// TestAnswer holds one question's response. Value is JSON: a string for
// single-valued types, a string array for multiple_choice.
type TestAnswer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssignmentID uint `json:"assignment_id" gorm:"not null;index"`
	QuestionID   uint `json:"question_id" gorm:"not null;index"`

	Value datatypes.JSON `json:"value" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Assignment *TestAssignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Question   *Question       `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}
