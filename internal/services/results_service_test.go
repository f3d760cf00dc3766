package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/evalhub/survey-builder-service/internal/events"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

func newResultsHarness() (ResultsService, *fakeRepository) {
	repo := newFakeRepository()
	svc := NewResultsService(repo, nil, testLogger(), validator.New())
	return svc, repo
}

// completeSubmission runs the public flow end to end so the reporting
// tables carry a real completed assignment.
func completeSubmission(t *testing.T, repo *fakeRepository, code, documentID string) {
	t.Helper()
	public := NewPublicTestService(repo, nil, testLogger(), validator.New(), events.NewMockEventPublisher(testLogger()))

	student := &StudentPayload{DocumentID: documentID, FirstName: "Ana", LastName: "Ruiz"}
	started, err := public.Start(context.Background(), code, student)
	if err != nil {
		t.Fatalf("start %s: %v", code, err)
	}

	answers := make([]AnswerPayload, 0, len(started.Questions))
	for _, q := range started.Questions {
		switch q.Type {
		case models.TypeMultipleChoice:
			answers = append(answers, AnswerPayload{QuestionID: q.ID, Value: json.RawMessage(`["Math"]`)})
		case models.TypeGrouped:
			for _, child := range q.Children {
				answers = append(answers, AnswerPayload{QuestionID: child.ID, Value: json.RawMessage(`"4"`)})
			}
		default:
			answers = append(answers, AnswerPayload{QuestionID: q.ID, Value: json.RawMessage(`"answer"`)})
		}
	}

	if err := public.Submit(context.Background(), code, &SubmitTestRequest{Student: *student, Answers: answers}); err != nil {
		t.Fatalf("submit %s: %v", code, err)
	}
}

func TestResultsList_OnlyCompletedAssignments(t *testing.T) {
	svc, repo := newResultsHarness()
	version := repo.seedVersion(1, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	repo.seedTest(version.ID, period.ID, "ABC123")
	repo.seedQuestion(version.ID, nil, models.TypeText, "Name", 1)

	// A started but unsubmitted run must not show up.
	public := NewPublicTestService(repo, nil, testLogger(), validator.New(), events.NewMockEventPublisher(testLogger()))
	if _, err := public.Start(context.Background(), "ABC123", &StudentPayload{DocumentID: "7", FirstName: "B", LastName: "C"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	response, err := svc.List(context.Background(), repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if response.Total != 0 {
		t.Fatalf("total = %d, want 0 before submission", response.Total)
	}

	completeSubmission(t, repo, "ABC123", "42")

	response, err = svc.List(context.Background(), repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if response.Total != 1 {
		t.Fatalf("total = %d, want 1", response.Total)
	}
	row := response.Results[0]
	if row.DocumentID != "42" || row.PeriodName != "2026-1" || row.Version != 1 {
		t.Errorf("row = %+v", row)
	}
}

func TestResultsExport_SingleVersionGetsAnswerColumns(t *testing.T) {
	svc, repo := newResultsHarness()
	version := repo.seedVersion(1, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	test := repo.seedTest(version.ID, period.ID, "ABC123")
	repo.seedQuestion(version.ID, nil, models.TypeText, "Name", 1)
	parent := repo.seedQuestion(version.ID, nil, models.TypeGrouped, "Rate", 2)
	repo.seedQuestion(version.ID, &parent.ID, models.TypeGroupedChild, "Quality", 1)

	completeSubmission(t, repo, "ABC123", "42")

	data, filename, err := svc.Export(context.Background(), repositories.ResultFilters{TestID: &test.ID})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("workbook is empty")
	}
	if !strings.HasPrefix(filename, "results_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("filename = %q", filename)
	}
}

func TestResultsExport_CrossVersionSkipsAnswerColumns(t *testing.T) {
	svc, repo := newResultsHarness()
	version := repo.seedVersion(1, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	repo.seedTest(version.ID, period.ID, "ABC123")
	repo.seedQuestion(version.ID, nil, models.TypeText, "Name", 1)

	completeSubmission(t, repo, "ABC123", "42")

	// No test or version filter: still a valid workbook, just without
	// per-question columns.
	data, _, err := svc.Export(context.Background(), repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("workbook is empty")
	}
}
