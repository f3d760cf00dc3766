package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
)

// PeriodRepository interface for application period operations
type PeriodRepository interface {
	Create(ctx context.Context, tx *gorm.DB, period *models.Period) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Period, error)
	Update(ctx context.Context, tx *gorm.DB, period *models.Period) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB) ([]*models.Period, error)

	// Validation
	ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error)
	CountTests(ctx context.Context, tx *gorm.DB, id uint) (int64, error)
}

// TestRepository interface for test operations
type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	GetByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error)
	GetActiveByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error)
	Update(ctx context.Context, tx *gorm.DB, test *models.Test) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, int64, error)

	// Validation
	ExistsByAccessCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error)
}

// StudentRepository interface for student records keyed by document id
type StudentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (*models.Student, error)

	// FirstOrCreate by document id; updates name/email when they changed.
	Upsert(ctx context.Context, tx *gorm.DB, student *models.Student) error
}

// AssignmentRepository interface for per-student test runs
type AssignmentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAssignment, error)
	GetByTestAndStudent(ctx context.Context, tx *gorm.DB, testID, studentID uint) (*models.TestAssignment, error)

	// FirstOrCreate on (test, student).
	Upsert(ctx context.Context, tx *gorm.DB, assignment *models.TestAssignment) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uint) error

	// CountCompletedByTest counts completed runs of one test; deleting a
	// test is blocked while any exist.
	CountCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error)
}

// AnswerRepository interface for submitted answers
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.TestAnswer) error
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.TestAnswer, error)
	DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error
}

// ResultsRepository interface for reporting queries
type ResultsRepository interface {
	FilterOptions(ctx context.Context, tx *gorm.DB) (*ResultFilterOptions, error)
	List(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*ResultRow, int64, error)

	// AnswersFor returns every answer of the given assignments keyed by
	// (assignment, question). Used by the export writer.
	AnswersFor(ctx context.Context, tx *gorm.DB, assignmentIDs []uint) (map[uint]map[uint]*models.TestAnswer, error)
}
