package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/evalhub/survey-builder-service/internal/events"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

func newPublicHarness() (PublicTestService, *fakeRepository, *events.MockEventPublisher) {
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewPublicTestService(repo, nil, testLogger(), validator.New(), publisher)
	return svc, repo, publisher
}

func seedPublicTest(repo *fakeRepository) (*models.Test, *models.Question, *models.Question) {
	version := repo.seedVersion(1, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	test := repo.seedTest(version.ID, period.ID, "ABC123")
	name := repo.seedQuestion(version.ID, nil, models.TypeText, "Full name", 1)
	choice := repo.seedQuestion(version.ID, nil, models.TypeMultipleChoice, "Interests", 2)
	repo.seedOption(choice.ID, "Math", 1)
	repo.seedOption(choice.ID, "Art", 2)
	return test, name, choice
}

func studentPayload() *StudentPayload {
	return &StudentPayload{DocumentID: "42", FirstName: "Ana", LastName: "Ruiz"}
}

func TestPublicLookup_UnknownAndClosedLookAlike(t *testing.T) {
	svc, repo, _ := newPublicHarness()
	test, _, _ := seedPublicTest(repo)
	test.Status = models.TestClosed

	if _, err := svc.Lookup(context.Background(), "NOPE"); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("unknown code err = %v, want ErrTestNotFound", err)
	}
	if _, err := svc.Lookup(context.Background(), "ABC123"); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("closed test err = %v, want ErrTestNotFound", err)
	}
}

func TestPublicStart_UpsertsStudentAndReturnsTree(t *testing.T) {
	svc, repo, _ := newPublicHarness()
	seedPublicTest(repo)

	response, err := svc.Start(context.Background(), "ABC123", studentPayload())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if response.Student.ID == 0 {
		t.Error("student not persisted")
	}
	if len(response.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(response.Questions))
	}
	if len(response.Questions[1].Options) != 2 {
		t.Errorf("choice question carries %d options, want 2", len(response.Questions[1].Options))
	}

	// Starting again reuses the same student row.
	again, err := svc.Start(context.Background(), "ABC123", studentPayload())
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.Student.ID != response.Student.ID {
		t.Errorf("second start created student %d, want %d", again.Student.ID, response.Student.ID)
	}
}

func TestPublicSubmit_StoresAnswersAndCompletes(t *testing.T) {
	svc, repo, publisher := newPublicHarness()
	test, name, choice := seedPublicTest(repo)

	if _, err := svc.Start(context.Background(), "ABC123", studentPayload()); err != nil {
		t.Fatalf("start: %v", err)
	}

	err := svc.Submit(context.Background(), "ABC123", &SubmitTestRequest{
		Student: *studentPayload(),
		Answers: []AnswerPayload{
			{QuestionID: name.ID, Value: json.RawMessage(`"Ana Ruiz"`)},
			{QuestionID: choice.ID, Value: json.RawMessage(`["Math","Art"]`)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	student, err := repo.Student().GetByDocumentID(context.Background(), nil, "42")
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	assignment, err := repo.Assignment().GetByTestAndStudent(context.Background(), nil, test.ID, student.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if !assignment.Completed || assignment.CompletedAt == nil {
		t.Error("assignment not marked completed")
	}

	answers, _ := repo.Answer().ListByAssignment(context.Background(), nil, assignment.ID)
	if len(answers) != 2 {
		t.Errorf("got %d answers, want 2", len(answers))
	}

	recorded := publisher.GetPublishedEvents()
	if len(recorded) != 1 || recorded[0].Type != events.EventTestSubmitted {
		t.Fatalf("events = %v, want one test.submitted", recorded)
	}
}

func TestPublicSubmit_SecondSubmitRejected(t *testing.T) {
	svc, repo, _ := newPublicHarness()
	_, name, choice := seedPublicTest(repo)

	if _, err := svc.Start(context.Background(), "ABC123", studentPayload()); err != nil {
		t.Fatalf("start: %v", err)
	}

	req := &SubmitTestRequest{
		Student: *studentPayload(),
		Answers: []AnswerPayload{
			{QuestionID: name.ID, Value: json.RawMessage(`"Ana Ruiz"`)},
			{QuestionID: choice.ID, Value: json.RawMessage(`["Math"]`)},
		},
	}
	if err := svc.Submit(context.Background(), "ABC123", req); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	if err := svc.Submit(context.Background(), "ABC123", req); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second submit err = %v, want ErrAlreadyCompleted", err)
	}
	if _, err := svc.Start(context.Background(), "ABC123", studentPayload()); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("restart err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestPublicSubmit_AnswerValidation(t *testing.T) {
	svc, repo, _ := newPublicHarness()
	_, name, choice := seedPublicTest(repo)

	if _, err := svc.Start(context.Background(), "ABC123", studentPayload()); err != nil {
		t.Fatalf("start: %v", err)
	}

	tests := []struct {
		name    string
		answers []AnswerPayload
		wantErr error
	}{
		{
			name: "foreign question",
			answers: []AnswerPayload{
				{QuestionID: name.ID, Value: json.RawMessage(`"Ana"`)},
				{QuestionID: choice.ID, Value: json.RawMessage(`["Math"]`)},
				{QuestionID: 9999, Value: json.RawMessage(`"?"`)},
			},
			wantErr: ErrScopeMismatch,
		},
		{
			name: "duplicate answer",
			answers: []AnswerPayload{
				{QuestionID: name.ID, Value: json.RawMessage(`"Ana"`)},
				{QuestionID: name.ID, Value: json.RawMessage(`"Ana again"`)},
				{QuestionID: choice.ID, Value: json.RawMessage(`["Math"]`)},
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name: "missing required answer",
			answers: []AnswerPayload{
				{QuestionID: name.ID, Value: json.RawMessage(`"Ana"`)},
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name: "multiple choice takes an array",
			answers: []AnswerPayload{
				{QuestionID: name.ID, Value: json.RawMessage(`"Ana"`)},
				{QuestionID: choice.ID, Value: json.RawMessage(`"Math"`)},
			},
			wantErr: ErrInvalidPayload,
		},
		{
			name: "empty string answer",
			answers: []AnswerPayload{
				{QuestionID: name.ID, Value: json.RawMessage(`""`)},
				{QuestionID: choice.ID, Value: json.RawMessage(`["Math"]`)},
			},
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Submit(context.Background(), "ABC123", &SubmitTestRequest{
				Student: *studentPayload(),
				Answers: tt.answers,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublicSubmit_GroupedParentTakesNoAnswer(t *testing.T) {
	svc, repo, _ := newPublicHarness()
	version := repo.seedVersion(1, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	repo.seedTest(version.ID, period.ID, "GRP001")
	parent := repo.seedQuestion(version.ID, nil, models.TypeGrouped, "Rate each", 1)
	child := repo.seedQuestion(version.ID, &parent.ID, models.TypeGroupedChild, "Quality", 1)

	if _, err := svc.Start(context.Background(), "GRP001", studentPayload()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Answering the parent itself is out of scope; the child is the
	// answerable row.
	err := svc.Submit(context.Background(), "GRP001", &SubmitTestRequest{
		Student: *studentPayload(),
		Answers: []AnswerPayload{
			{QuestionID: parent.ID, Value: json.RawMessage(`"5"`)},
			{QuestionID: child.ID, Value: json.RawMessage(`"4"`)},
		},
	})
	if !errors.Is(err, ErrScopeMismatch) {
		t.Fatalf("err = %v, want ErrScopeMismatch", err)
	}

	if err := svc.Submit(context.Background(), "GRP001", &SubmitTestRequest{
		Student: *studentPayload(),
		Answers: []AnswerPayload{
			{QuestionID: child.ID, Value: json.RawMessage(`"4"`)},
		},
	}); err != nil {
		t.Fatalf("child-only submit: %v", err)
	}
}
