package services

import (
	"context"
	"encoding/json"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

// ===== TEMPLATE / VERSION DTOs =====

type CreateTemplateRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description"`
}

type UpdateTemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
}

type CreateVersionRequest struct {
	// Version is optional; absent means next number for the template.
	Version *int    `json:"version" validate:"omitempty,min=1"`
	Notes   *string `json:"notes"`
}

type UpdateVersionRequest struct {
	Notes *string `json:"notes"`
}

// ===== QUESTION DTOs =====

// OptionPayload creates an option inline. A nil order appends; requested
// orders colliding inside one payload are bumped to the next free slot.
type OptionPayload struct {
	Label string  `json:"label" validate:"required,max=200"`
	Value *string `json:"value" validate:"omitempty,max=50"`
	Order *int    `json:"order" validate:"omitempty,min=1"`
}

// OptionSyncPayload reconciles one option during a question update: with
// an ID it updates, without one it creates. Persisted options missing from
// the payload are deleted.
type OptionSyncPayload struct {
	ID    *uint   `json:"id"`
	Label string  `json:"label" validate:"required,max=200"`
	Value *string `json:"value" validate:"omitempty,max=50"`
	Order *int    `json:"order" validate:"omitempty,min=1"`
}

// ChildQuestionPayload reconciles one grouped child. Same create/update
// semantics as OptionSyncPayload; order defaults to the slice position.
type ChildQuestionPayload struct {
	ID       *uint               `json:"id"`
	Text     string              `json:"text" validate:"required"`
	Required *bool               `json:"required"`
	Order    *int                `json:"order" validate:"omitempty,min=1"`
	Options  []OptionSyncPayload `json:"options" validate:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Type     models.QuestionType    `json:"type" validate:"required,question_type"`
	Text     string                 `json:"text" validate:"required"`
	Section  *string                `json:"section" validate:"omitempty,max=120"`
	Required *bool                  `json:"required"`
	Order    *int                   `json:"order" validate:"omitempty,min=1"`
	ParentID *uint                  `json:"parent_id"`
	Options  []OptionPayload        `json:"options" validate:"omitempty,min=2,dive"`
	Children []ChildQuestionPayload `json:"children" validate:"omitempty,dive"`
}

type UpdateQuestionRequest struct {
	Type     *models.QuestionType   `json:"type" validate:"omitempty,question_type"`
	Text     *string                `json:"text"`
	Section  *string                `json:"section" validate:"omitempty,max=120"`
	Required *bool                  `json:"required"`
	Order    *int                   `json:"order" validate:"omitempty,min=1"`
	Options  []OptionSyncPayload    `json:"options" validate:"omitempty,dive"`
	Children []ChildQuestionPayload `json:"children" validate:"omitempty,dive"`
}

type CreateOptionRequest struct {
	Label string  `json:"label" validate:"required,max=200"`
	Value *string `json:"value" validate:"omitempty,max=50"`
	Order *int    `json:"order" validate:"omitempty,min=1"`
}

type UpdateOptionRequest struct {
	Label *string `json:"label" validate:"omitempty,max=200"`
	Value *string `json:"value" validate:"omitempty,max=50"`
	Order *int    `json:"order" validate:"omitempty,min=1"`
}

// ===== ADMINISTRATION DTOs =====

type PeriodRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type CreateTestRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	VersionID  uint   `json:"version_id" validate:"required"`
	PeriodID   uint   `json:"period_id" validate:"required"`
	AccessCode string `json:"access_code" validate:"required,max=40,access_code"`
}

type UpdateTestRequest struct {
	Name       *string            `json:"name" validate:"omitempty,max=200"`
	PeriodID   *uint              `json:"period_id"`
	AccessCode *string            `json:"access_code" validate:"omitempty,max=40,access_code"`
	Status     *models.TestStatus `json:"status" validate:"omitempty,test_status"`
}

// ===== PUBLIC RUNTIME DTOs =====

type StudentPayload struct {
	DocumentID string  `json:"document_id" validate:"required,max=20"`
	FirstName  string  `json:"first_name" validate:"required,max=120"`
	LastName   string  `json:"last_name" validate:"required,max=120"`
	Email      *string `json:"email" validate:"omitempty,email"`
}

type AnswerPayload struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	Value      json.RawMessage `json:"value" validate:"required"`
}

type SubmitTestRequest struct {
	Student StudentPayload  `json:"student" validate:"required"`
	Answers []AnswerPayload `json:"answers" validate:"required,min=1,dive"`
}

// ===== RESPONSES =====

type TemplateListResponse struct {
	Templates []*models.TestTemplate `json:"templates"`
	Total     int64                  `json:"total"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

type TestListResponse struct {
	Tests  []*models.Test `json:"tests"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type ResultListResponse struct {
	Results []*repositories.ResultRow `json:"results"`
	Total   int64                     `json:"total"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
}

// StartTestResponse carries everything the public runner needs to render.
type StartTestResponse struct {
	Test      *models.Test       `json:"test"`
	Student   *models.Student    `json:"student"`
	Questions []*models.Question `json:"questions"`
}

// ===== SERVICE INTERFACES =====

// TemplateService owns templates and the version lifecycle.
type TemplateService interface {
	CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*models.TestTemplate, error)
	GetTemplate(ctx context.Context, id uint) (*models.TestTemplate, error)
	ListTemplates(ctx context.Context, filters repositories.TemplateFilters) (*TemplateListResponse, error)
	UpdateTemplate(ctx context.Context, id uint, req *UpdateTemplateRequest) (*models.TestTemplate, error)
	DeleteTemplate(ctx context.Context, id uint) error

	CreateVersion(ctx context.Context, templateID uint, req *CreateVersionRequest) (*models.TemplateVersion, error)
	ListVersions(ctx context.Context, templateID uint) ([]*models.TemplateVersion, error)
	UpdateVersion(ctx context.Context, versionID uint, req *UpdateVersionRequest) (*models.TemplateVersion, error)
	DeleteVersion(ctx context.Context, versionID uint) error

	// PublishVersion flips a draft to published, one-way, and emits a
	// version.published event.
	PublishVersion(ctx context.Context, versionID uint) (*models.TemplateVersion, error)
}

// QuestionService orchestrates the ordered question/option structure of a
// draft version.
type QuestionService interface {
	Create(ctx context.Context, versionID uint, req *CreateQuestionRequest) (*models.Question, error)
	Get(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, id uint) error
	ListTree(ctx context.Context, versionID uint) ([]*models.Question, error)
	Reorder(ctx context.Context, versionID uint, req ordering.ReorderRequest) ([]*models.Question, error)

	CreateOption(ctx context.Context, questionID uint, req *CreateOptionRequest) (*models.QuestionOption, error)
	UpdateOption(ctx context.Context, optionID uint, req *UpdateOptionRequest) (*models.QuestionOption, error)
	DeleteOption(ctx context.Context, optionID uint) error
	ListOptions(ctx context.Context, questionID uint) ([]*models.QuestionOption, error)
	ReorderOptions(ctx context.Context, questionID uint, req ordering.ReorderRequest) ([]*models.QuestionOption, error)
}

// AdministrationService owns periods and tests.
type AdministrationService interface {
	CreatePeriod(ctx context.Context, req *PeriodRequest) (*models.Period, error)
	ListPeriods(ctx context.Context) ([]*models.Period, error)
	UpdatePeriod(ctx context.Context, id uint, req *PeriodRequest) (*models.Period, error)
	DeletePeriod(ctx context.Context, id uint) error

	CreateTest(ctx context.Context, req *CreateTestRequest) (*models.Test, error)
	GetTest(ctx context.Context, id uint) (*models.Test, error)
	ListTests(ctx context.Context, filters repositories.TestFilters) (*TestListResponse, error)
	UpdateTest(ctx context.Context, id uint, req *UpdateTestRequest) (*models.Test, error)
	DeleteTest(ctx context.Context, id uint) error
}

// PublicTestService is the access-code keyed student flow.
type PublicTestService interface {
	Lookup(ctx context.Context, code string) (*models.Test, error)
	Start(ctx context.Context, code string, student *StudentPayload) (*StartTestResponse, error)
	Submit(ctx context.Context, code string, req *SubmitTestRequest) error
}

// ResultsService serves the reporting screen and its XLSX export.
type ResultsService interface {
	FilterOptions(ctx context.Context) (*repositories.ResultFilterOptions, error)
	List(ctx context.Context, filters repositories.ResultFilters) (*ResultListResponse, error)

	// Export renders the filtered results as an XLSX workbook and returns
	// the file contents with a suggested filename.
	Export(ctx context.Context, filters repositories.ResultFilters) ([]byte, string, error)
}

// ServiceManager wires every service with shared dependencies.
type ServiceManager interface {
	Template() TemplateService
	Question() QuestionService
	Administration() AdministrationService
	PublicTest() PublicTestService
	Results() ResultsService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
