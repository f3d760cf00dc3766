package services

import (
	"context"
	"errors"
	"testing"

	"github.com/evalhub/survey-builder-service/internal/events"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

func newTemplateHarness() (TemplateService, *fakeRepository, *events.MockEventPublisher) {
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewTemplateService(repo, nil, testLogger(), validator.New(), publisher)
	return svc, repo, publisher
}

func TestTemplateCreate_StartsWithDraftVersionOne(t *testing.T) {
	svc, repo, _ := newTemplateHarness()

	created, err := svc.CreateTemplate(context.Background(), &CreateTemplateRequest{Name: "Entrance survey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.Versions) != 1 {
		t.Fatalf("got %d versions, want 1", len(created.Versions))
	}
	if created.Versions[0].Version != 1 || created.Versions[0].Status != models.VersionDraft {
		t.Errorf("initial version = %d %s, want draft 1", created.Versions[0].Version, created.Versions[0].Status)
	}

	versions, err := repo.Version().ListByTemplate(context.Background(), nil, created.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("%d versions persisted, want 1", len(versions))
	}
}

func TestTemplateCreate_DuplicateName(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	repo.seedTemplate("Entrance survey")

	_, err := svc.CreateTemplate(context.Background(), &CreateTemplateRequest{Name: "entrance SURVEY"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
}

func TestTemplateDelete_BlockedWhenVersionsInUse(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	repo.seedTest(version.ID, period.ID, "ABC123")

	err := svc.DeleteTemplate(context.Background(), template.ID)
	if !errors.Is(err, ErrDependencyConflict) {
		t.Fatalf("err = %v, want ErrDependencyConflict", err)
	}
}

func TestTemplateDelete_CascadesStructure(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionDraft)
	q := repo.seedQuestion(version.ID, nil, models.TypeSingleChoice, "Pick", 1)
	repo.seedOption(q.ID, "Yes", 1)

	if err := svc.DeleteTemplate(context.Background(), template.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(repo.templates) != 0 || len(repo.versions) != 0 || len(repo.questions) != 0 || len(repo.options) != 0 {
		t.Errorf("leftovers after cascade: %d templates %d versions %d questions %d options",
			len(repo.templates), len(repo.versions), len(repo.questions), len(repo.options))
	}
}

func TestVersionCreate_AutoNumbers(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	repo.seedVersion(template.ID, 1, models.VersionPublished)

	created, err := svc.CreateVersion(context.Background(), template.ID, &CreateVersionRequest{})
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if created.Version != 2 {
		t.Errorf("version number = %d, want 2", created.Version)
	}
	if created.Status != models.VersionDraft {
		t.Errorf("status = %s, want draft", created.Status)
	}
}

func TestVersionCreate_DuplicateNumber(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	repo.seedVersion(template.ID, 3, models.VersionDraft)

	_, err := svc.CreateVersion(context.Background(), template.ID, &CreateVersionRequest{Version: intPtr(3)})
	if !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("err = %v, want ErrDuplicateVersion", err)
	}
}

func TestVersionPublish_StampsAndEmits(t *testing.T) {
	svc, repo, publisher := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionDraft)
	repo.seedQuestion(version.ID, nil, models.TypeText, "Name", 1)
	repo.seedQuestion(version.ID, nil, models.TypeText, "Address", 2)

	published, err := svc.PublishVersion(context.Background(), version.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !published.IsPublished() {
		t.Errorf("status = %s, want published", published.Status)
	}
	if published.PublishedAt == nil {
		t.Error("PublishedAt not stamped")
	}

	recorded := publisher.GetPublishedEvents()
	if len(recorded) != 1 {
		t.Fatalf("got %d events, want 1", len(recorded))
	}
	if recorded[0].Type != events.EventVersionPublished {
		t.Errorf("event type = %s, want %s", recorded[0].Type, events.EventVersionPublished)
	}
	payload, ok := recorded[0].Data.(*events.VersionPublishedEvent)
	if !ok {
		t.Fatalf("event data is %T", recorded[0].Data)
	}
	if payload.VersionID != version.ID || payload.QuestionCount != 2 {
		t.Errorf("payload = version %d count %d, want version %d count 2", payload.VersionID, payload.QuestionCount, version.ID)
	}
}

func TestVersionPublish_IsOneWay(t *testing.T) {
	svc, repo, publisher := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionPublished)

	_, err := svc.PublishVersion(context.Background(), version.ID)
	if !errors.Is(err, ErrNotDraft) {
		t.Fatalf("err = %v, want ErrNotDraft", err)
	}
	if len(publisher.GetPublishedEvents()) != 0 {
		t.Error("no event should fire for a failed publish")
	}
}

func TestVersionUpdate_LockedAfterPublish(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionPublished)

	_, err := svc.UpdateVersion(context.Background(), version.ID, &UpdateVersionRequest{Notes: strPtr("late edit")})
	if !errors.Is(err, ErrVersionLocked) {
		t.Fatalf("err = %v, want ErrVersionLocked", err)
	}
}

func TestVersionDelete_BlockedWhenUsedByTests(t *testing.T) {
	svc, repo, _ := newTemplateHarness()
	template := repo.seedTemplate("Entrance survey")
	version := repo.seedVersion(template.ID, 1, models.VersionPublished)
	period := repo.seedPeriod("2026-1")
	repo.seedTest(version.ID, period.ID, "ABC123")

	err := svc.DeleteVersion(context.Background(), version.ID)
	if !errors.Is(err, ErrDependencyConflict) {
		t.Fatalf("err = %v, want ErrDependencyConflict", err)
	}
}
