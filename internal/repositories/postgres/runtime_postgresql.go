package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

type StudentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{db: db}
}

func (s *StudentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error) {
	db := s.getDB(tx)
	var student models.Student
	if err := db.WithContext(ctx).First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *StudentPostgreSQL) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (*models.Student, error) {
	db := s.getDB(tx)
	var student models.Student
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get student by document id: %w", err)
	}
	return &student, nil
}

// Upsert finds the student by document id and refreshes name/email, or
// creates the record on first contact.
func (s *StudentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := s.getDB(tx)

	var existing models.Student
	err := db.WithContext(ctx).
		Where("document_id = ?", student.DocumentID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.WithContext(ctx).Create(student).Error; err != nil {
				return fmt.Errorf("failed to create student: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to look up student: %w", err)
	}

	existing.FirstName = student.FirstName
	existing.LastName = student.LastName
	if student.Email != nil {
		existing.Email = student.Email
	}
	if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	*student = existing
	return nil
}

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAssignment, error) {
	db := a.getDB(tx)
	var assignment models.TestAssignment
	if err := db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) GetByTestAndStudent(ctx context.Context, tx *gorm.DB, testID, studentID uint) (*models.TestAssignment, error) {
	db := a.getDB(tx)
	var assignment models.TestAssignment
	err := db.WithContext(ctx).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.TestAssignment) error {
	db := a.getDB(tx)

	var existing models.TestAssignment
	err := db.WithContext(ctx).
		Where("test_id = ? AND student_id = ?", assignment.TestID, assignment.StudentID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.WithContext(ctx).Create(assignment).Error; err != nil {
				return fmt.Errorf("failed to create assignment: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to look up assignment: %w", err)
	}

	*assignment = existing
	return nil
}

func (a *AssignmentPostgreSQL) MarkCompleted(ctx context.Context, tx *gorm.DB, id uint) error {
	db := a.getDB(tx)
	now := time.Now()
	result := db.WithContext(ctx).
		Model(&models.TestAssignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark assignment completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AssignmentPostgreSQL) CountCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error) {
	return NewSharedHelpers(a.getDB(tx)).CountCompletedAssignments(ctx, testID)
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.TestAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(&answers).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (a *AnswerPostgreSQL) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.TestAnswer, error) {
	db := a.getDB(tx)
	var answers []*models.TestAnswer
	err := db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error {
	db := a.getDB(tx)
	err := db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.TestAnswer{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete answers: %w", err)
	}
	return nil
}
