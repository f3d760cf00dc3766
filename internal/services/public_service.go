package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/events"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

type publicTestService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

func NewPublicTestService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) PublicTestService {
	return &publicTestService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
	}
}

// Lookup resolves an access code to its active test. Closed and unknown
// codes are indistinguishable to the caller.
func (s *publicTestService) Lookup(ctx context.Context, code string) (*models.Test, error) {
	test, err := s.repo.Test().GetActiveByAccessCode(ctx, nil, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to lookup test: %w", err)
	}
	return test, nil
}

func (s *publicTestService) Start(ctx context.Context, code string, student *StudentPayload) (*StartTestResponse, error) {
	s.logger.Info("Starting test", "access_code", code, "document_id", student.DocumentID)

	if err := s.validator.ValidateStruct(student); err != nil {
		return nil, err
	}

	var response *StartTestResponse
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		test, err := r.Test().GetActiveByAccessCode(ctx, nil, code)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to lookup test: %w", err)
		}

		row := &models.Student{
			DocumentID: student.DocumentID,
			FirstName:  student.FirstName,
			LastName:   student.LastName,
			Email:      student.Email,
		}
		if err := r.Student().Upsert(ctx, nil, row); err != nil {
			return fmt.Errorf("failed to upsert student: %w", err)
		}

		assignment := &models.TestAssignment{
			TestID:    test.ID,
			StudentID: row.ID,
		}
		if err := r.Assignment().Upsert(ctx, nil, assignment); err != nil {
			return fmt.Errorf("failed to upsert assignment: %w", err)
		}
		if assignment.Completed {
			return ErrAlreadyCompleted
		}

		questions, err := r.Question().ListTree(ctx, nil, test.VersionID)
		if err != nil {
			return fmt.Errorf("failed to load question tree: %w", err)
		}

		response = &StartTestResponse{
			Test:      test,
			Student:   row,
			Questions: questions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test started", "test_id", response.Test.ID, "student_id", response.Student.ID)
	return response, nil
}

func (s *publicTestService) Submit(ctx context.Context, code string, req *SubmitTestRequest) error {
	s.logger.Info("Submitting test", "access_code", code, "document_id", req.Student.DocumentID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}

	var submitted *events.TestSubmittedEvent
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		test, err := r.Test().GetActiveByAccessCode(ctx, nil, code)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to lookup test: %w", err)
		}

		student, err := r.Student().GetByDocumentID(ctx, nil, req.Student.DocumentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrStudentNotFound
			}
			return fmt.Errorf("failed to get student: %w", err)
		}

		assignment, err := r.Assignment().GetByTestAndStudent(ctx, nil, test.ID, student.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to get assignment: %w", err)
		}
		if assignment.Completed {
			return ErrAlreadyCompleted
		}

		answers, err := s.buildAnswers(ctx, r, test.VersionID, assignment.ID, req.Answers)
		if err != nil {
			return err
		}

		// Replace, never merge: a resubmit attempt before completion
		// starts from a clean slate.
		if err := r.Answer().DeleteByAssignment(ctx, nil, assignment.ID); err != nil {
			return fmt.Errorf("failed to clear previous answers: %w", err)
		}
		if err := r.Answer().CreateBatch(ctx, nil, answers); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}

		if err := r.Assignment().MarkCompleted(ctx, nil, assignment.ID); err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}

		submitted = &events.TestSubmittedEvent{
			TestID:       test.ID,
			AssignmentID: assignment.ID,
			StudentID:    student.ID,
			AnswerCount:  len(answers),
			CompletedAt:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	event := events.NewEvent(events.EventTestSubmitted, submitted)
	if err := s.eventPublisher.Publish(ctx, events.TopicRuntime, event); err != nil {
		s.logger.Error("Failed to publish submit event", "assignment_id", submitted.AssignmentID, "error", err)
	}

	s.logger.Info("Test submitted", "test_id", submitted.TestID, "assignment_id", submitted.AssignmentID, "answers", submitted.AnswerCount)
	return nil
}

// buildAnswers validates the payload against the version's question tree
// and shapes the rows to insert. Grouped parents take no answer themselves;
// multiple_choice answers must be JSON string arrays, everything else a
// JSON string.
func (s *publicTestService) buildAnswers(ctx context.Context, r repositories.Repository, versionID, assignmentID uint, payloads []AnswerPayload) ([]*models.TestAnswer, error) {
	tree, err := r.Question().ListTree(ctx, nil, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question tree: %w", err)
	}

	answerable := make(map[uint]models.QuestionType)
	required := make(map[uint]bool)
	for _, root := range tree {
		if root.Type == models.TypeGrouped {
			for _, child := range root.Children {
				answerable[child.ID] = child.Type
				required[child.ID] = child.Required
			}
			continue
		}
		answerable[root.ID] = root.Type
		required[root.ID] = root.Required
	}

	seen := make(map[uint]bool, len(payloads))
	answers := make([]*models.TestAnswer, 0, len(payloads))
	for _, payload := range payloads {
		questionType, ok := answerable[payload.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: question %d is not part of this test", ErrScopeMismatch, payload.QuestionID)
		}
		if seen[payload.QuestionID] {
			return nil, fmt.Errorf("%w: duplicate answer for question %d", ErrInvalidPayload, payload.QuestionID)
		}
		seen[payload.QuestionID] = true

		if err := validateAnswerValue(questionType, payload.Value); err != nil {
			return nil, err
		}

		answers = append(answers, &models.TestAnswer{
			AssignmentID: assignmentID,
			QuestionID:   payload.QuestionID,
			Value:        datatypes.JSON(payload.Value),
		})
	}

	for id, isRequired := range required {
		if isRequired && !seen[id] {
			return nil, fmt.Errorf("%w: required question %d is unanswered", ErrInvalidPayload, id)
		}
	}
	return answers, nil
}

func validateAnswerValue(questionType models.QuestionType, value json.RawMessage) error {
	if questionType == models.TypeMultipleChoice {
		var list []string
		if err := json.Unmarshal(value, &list); err != nil || len(list) == 0 {
			return fmt.Errorf("%w: multiple_choice answers must be a non-empty string array", ErrInvalidPayload)
		}
		return nil
	}

	var single string
	if err := json.Unmarshal(value, &single); err != nil || single == "" {
		return fmt.Errorf("%w: answer must be a non-empty string", ErrInvalidPayload)
	}
	return nil
}
