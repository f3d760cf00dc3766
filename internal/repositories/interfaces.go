package repositories

import (
	"time"

	"github.com/evalhub/survey-builder-service/internal/models"
)

// ===== SCOPE TYPES =====

// QuestionScope identifies one ordered question list. Root lists hang off a
// version (ParentID nil); child lists hang off a grouped parent. The two
// never overlap, so orders in one scope say nothing about the other.
type QuestionScope struct {
	VersionID uint  `json:"version_id"`
	ParentID  *uint `json:"parent_id"`
}

// RootScope addresses a version's top-level question list.
func RootScope(versionID uint) QuestionScope {
	return QuestionScope{VersionID: versionID}
}

// ChildScope addresses the child list of one grouped question.
func ChildScope(versionID, parentID uint) QuestionScope {
	return QuestionScope{VersionID: versionID, ParentID: &parentID}
}

func (s QuestionScope) IsRoot() bool {
	return s.ParentID == nil
}

// ===== SHARED FILTER STRUCTS =====

type TemplateFilters struct {
	Search    *string `json:"search"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "name"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type TestFilters struct {
	PeriodID  *uint              `json:"period_id"`
	VersionID *uint              `json:"version_id"`
	Status    *models.TestStatus `json:"status"`
	Search    *string            `json:"search"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`
	SortOrder string             `json:"sort_order"`
}

type ResultFilters struct {
	TestID    *uint      `json:"test_id"`
	VersionID *uint      `json:"version_id"`
	PeriodID  *uint      `json:"period_id"`
	Search    *string    `json:"search"` // student name or document id
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== REPORTING STRUCTS =====

// ResultRow is one completed assignment flattened for listing and export.
type ResultRow struct {
	AssignmentID uint       `json:"assignment_id"`
	StudentName  string     `json:"student_name"`
	DocumentID   string     `json:"document_id"`
	Email        *string    `json:"email"`
	TestName     string     `json:"test_name"`
	PeriodName   string     `json:"period_name"`
	Version      int        `json:"version"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// ResultFilterOptions feeds the results screen's filter dropdowns.
type ResultFilterOptions struct {
	Tests    []models.Test            `json:"tests"`
	Versions []models.TemplateVersion `json:"versions"`
	Periods  []models.Period          `json:"periods"`
}
