package models

import (
	"time"
)

type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeDate           QuestionType = "date"
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeLikert         QuestionType = "likert"
	TypeGrouped        QuestionType = "grouped"
	TypeGroupedChild   QuestionType = "grouped_child"
)

// AllQuestionTypes lists every accepted question type, in display order.
var AllQuestionTypes = []QuestionType{
	TypeText, TypeDate, TypeSingleChoice, TypeMultipleChoice,
	TypeLikert, TypeGrouped, TypeGroupedChild,
}

func (t QuestionType) Valid() bool {
	for _, qt := range AllQuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// HasOptions reports whether rows of this type may own answer options.
// Free-text and date inputs never do; grouped parents group children, not
// options.
func (t QuestionType) HasOptions() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeLikert, TypeGroupedChild:
		return true
	}
	return false
}

// Question is a row in an ordered scope: roots order within their version
// (ParentID nil), children within their grouped parent. Order is dense 1..N
// per scope after every committed mutation.
type Question struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	VersionID uint         `json:"version_id" gorm:"not null;index"`
	ParentID  *uint        `json:"parent_id" gorm:"index"`
	Type      QuestionType `json:"type" gorm:"not null;size:30;index" validate:"required"`
	Text      string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Section   *string      `json:"section" gorm:"size:120"`
	Required  bool         `json:"required" gorm:"not null;default:true"`
	Order     int          `json:"order" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Version  *TemplateVersion `json:"version,omitempty" gorm:"foreignKey:VersionID"`
	Parent   *Question        `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []Question       `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Options  []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

func (q *Question) IsRoot() bool {
	return q.ParentID == nil
}

// QuestionOption is an ordered answer choice. Same density invariant as
// questions, scoped by QuestionID.
type QuestionOption struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	QuestionID uint    `json:"question_id" gorm:"not null;index"`
	Label      string  `json:"label" gorm:"not null;size:200" validate:"required,max=200"`
	Value      *string `json:"value" gorm:"size:50"`
	Order      int     `json:"order" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}
