package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. It plays
// every sub-repository over plain maps; WithTransaction runs the callback
// directly since nothing here needs rolling back mid-test.
type fakeRepository struct {
	nextID uint

	templates   map[uint]*models.TestTemplate
	versions    map[uint]*models.TemplateVersion
	questions   map[uint]*models.Question
	options     map[uint]*models.QuestionOption
	periods     map[uint]*models.Period
	tests       map[uint]*models.Test
	students    map[uint]*models.Student
	assignments map[uint]*models.TestAssignment
	answers     map[uint]*models.TestAnswer
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		templates:   make(map[uint]*models.TestTemplate),
		versions:    make(map[uint]*models.TemplateVersion),
		questions:   make(map[uint]*models.Question),
		options:     make(map[uint]*models.QuestionOption),
		periods:     make(map[uint]*models.Period),
		tests:       make(map[uint]*models.Test),
		students:    make(map[uint]*models.Student),
		assignments: make(map[uint]*models.TestAssignment),
		answers:     make(map[uint]*models.TestAnswer),
	}
}

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) Template() repositories.TemplateRepository     { return &fakeTemplateRepo{f} }
func (f *fakeRepository) Version() repositories.VersionRepository       { return &fakeVersionRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Option() repositories.OptionRepository         { return &fakeOptionRepo{f} }
func (f *fakeRepository) Period() repositories.PeriodRepository         { return &fakePeriodRepo{f} }
func (f *fakeRepository) Test() repositories.TestRepository             { return &fakeTestRepo{f} }
func (f *fakeRepository) Student() repositories.StudentRepository       { return &fakeStudentRepo{f} }
func (f *fakeRepository) Assignment() repositories.AssignmentRepository { return &fakeAssignmentRepo{f} }
func (f *fakeRepository) Answer() repositories.AnswerRepository         { return &fakeAnswerRepo{f} }
func (f *fakeRepository) Results() repositories.ResultsRepository       { return &fakeResultsRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== SEED HELPERS =====

func (f *fakeRepository) seedTemplate(name string) *models.TestTemplate {
	t := &models.TestTemplate{ID: f.id(), Name: name}
	f.templates[t.ID] = t
	return t
}

func (f *fakeRepository) seedVersion(templateID uint, number int, status models.VersionStatus) *models.TemplateVersion {
	v := &models.TemplateVersion{ID: f.id(), TemplateID: templateID, Version: number, Status: status}
	if status == models.VersionPublished {
		now := time.Now().UTC()
		v.PublishedAt = &now
	}
	f.versions[v.ID] = v
	return v
}

func (f *fakeRepository) seedQuestion(versionID uint, parentID *uint, qt models.QuestionType, text string, order int) *models.Question {
	q := &models.Question{ID: f.id(), VersionID: versionID, ParentID: parentID, Type: qt, Text: text, Required: true, Order: order}
	f.questions[q.ID] = q
	return q
}

func (f *fakeRepository) seedOption(questionID uint, label string, order int) *models.QuestionOption {
	o := &models.QuestionOption{ID: f.id(), QuestionID: questionID, Label: label, Order: order}
	f.options[o.ID] = o
	return o
}

func (f *fakeRepository) seedPeriod(name string) *models.Period {
	p := &models.Period{ID: f.id(), Name: name,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)}
	f.periods[p.ID] = p
	return p
}

func (f *fakeRepository) seedTest(versionID, periodID uint, code string) *models.Test {
	t := &models.Test{ID: f.id(), Name: "Test " + code, VersionID: versionID, PeriodID: periodID,
		AccessCode: code, Status: models.TestActive}
	f.tests[t.ID] = t
	return t
}

func (f *fakeRepository) questionsInScope(scope repositories.QuestionScope) []*models.Question {
	var rows []*models.Question
	for _, q := range f.questions {
		if q.VersionID != scope.VersionID {
			continue
		}
		if (q.ParentID == nil) != (scope.ParentID == nil) {
			continue
		}
		if scope.ParentID != nil && *q.ParentID != *scope.ParentID {
			continue
		}
		rows = append(rows, q)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	return rows
}

func (f *fakeRepository) optionsOf(questionID uint) []*models.QuestionOption {
	var rows []*models.QuestionOption
	for _, o := range f.options {
		if o.QuestionID == questionID {
			rows = append(rows, o)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })
	return rows
}

// ===== TEMPLATE =====

type fakeTemplateRepo struct{ f *fakeRepository }

func (r *fakeTemplateRepo) Create(ctx context.Context, tx *gorm.DB, t *models.TestTemplate) error {
	t.ID = r.f.id()
	r.f.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestTemplate, error) {
	t, ok := r.f.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, tx *gorm.DB, t *models.TestTemplate) error {
	r.f.templates[t.ID] = t
	return nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.templates, id)
	return nil
}

func (r *fakeTemplateRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.TestTemplate, int64, error) {
	var rows []*models.TestTemplate
	for _, t := range r.f.templates {
		if filters.Search != nil && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(*filters.Search)) {
			continue
		}
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, int64(len(rows)), nil
}

func (r *fakeTemplateRepo) ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error) {
	for _, t := range r.f.templates {
		if excludeID != nil && t.ID == *excludeID {
			continue
		}
		if strings.EqualFold(t.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTemplateRepo) HasVersionsInUse(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	for _, v := range r.f.versions {
		if v.TemplateID != id {
			continue
		}
		for _, t := range r.f.tests {
			if t.VersionID == v.ID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ===== VERSION =====

type fakeVersionRepo struct{ f *fakeRepository }

func (r *fakeVersionRepo) Create(ctx context.Context, tx *gorm.DB, v *models.TemplateVersion) error {
	v.ID = r.f.id()
	if v.Status == "" {
		v.Status = models.VersionDraft
	}
	r.f.versions[v.ID] = v
	return nil
}

func (r *fakeVersionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TemplateVersion, error) {
	v, ok := r.f.versions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *fakeVersionRepo) Update(ctx context.Context, tx *gorm.DB, v *models.TemplateVersion) error {
	r.f.versions[v.ID] = v
	return nil
}

func (r *fakeVersionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.versions, id)
	return nil
}

func (r *fakeVersionRepo) ListByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) ([]*models.TemplateVersion, error) {
	var rows []*models.TemplateVersion
	for _, v := range r.f.versions {
		if v.TemplateID == templateID {
			rows = append(rows, v)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Version < rows[j].Version })
	return rows, nil
}

func (r *fakeVersionRepo) NextVersionNumber(ctx context.Context, tx *gorm.DB, templateID uint) (int, error) {
	max := 0
	for _, v := range r.f.versions {
		if v.TemplateID == templateID && v.Version > max {
			max = v.Version
		}
	}
	return max + 1, nil
}

func (r *fakeVersionRepo) ExistsNumber(ctx context.Context, tx *gorm.DB, templateID uint, version int, excludeID *uint) (bool, error) {
	for _, v := range r.f.versions {
		if excludeID != nil && v.ID == *excludeID {
			continue
		}
		if v.TemplateID == templateID && v.Version == version {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVersionRepo) IsUsedByTests(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	for _, t := range r.f.tests {
		if t.VersionID == id {
			return true, nil
		}
	}
	return false, nil
}

// ===== QUESTION =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	q.ID = r.f.id()
	r.f.questions[q.ID] = q
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (r *fakeQuestionRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	detailed := *q
	detailed.Options = nil
	for _, o := range r.f.optionsOf(q.ID) {
		detailed.Options = append(detailed.Options, *o)
	}
	detailed.Children = nil
	for _, c := range r.f.questionsInScope(repositories.ChildScope(q.VersionID, q.ID)) {
		child := *c
		child.Options = nil
		for _, o := range r.f.optionsOf(c.ID) {
			child.Options = append(child.Options, *o)
		}
		detailed.Children = append(detailed.Children, child)
	}
	return &detailed, nil
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, q *models.Question) error {
	if _, ok := r.f.questions[q.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.f.questions[q.ID] = q
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestionRepo) ListByScope(ctx context.Context, tx *gorm.DB, scope repositories.QuestionScope) ([]*models.Question, error) {
	return r.f.questionsInScope(scope), nil
}

func (r *fakeQuestionRepo) ListTree(ctx context.Context, tx *gorm.DB, versionID uint) ([]*models.Question, error) {
	var tree []*models.Question
	for _, root := range r.f.questionsInScope(repositories.RootScope(versionID)) {
		detailed, err := r.GetByIDWithDetails(ctx, tx, root.ID)
		if err != nil {
			return nil, err
		}
		tree = append(tree, detailed)
	}
	return tree, nil
}

func (r *fakeQuestionRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.Question, error) {
	parent, ok := r.f.questions[parentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.f.questionsInScope(repositories.ChildScope(parent.VersionID, parentID)), nil
}

func (r *fakeQuestionRepo) CountByVersion(ctx context.Context, tx *gorm.DB, versionID uint) (int64, error) {
	var count int64
	for _, q := range r.f.questions {
		if q.VersionID == versionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeQuestionRepo) DeleteChildren(ctx context.Context, tx *gorm.DB, parentID uint) error {
	for id, q := range r.f.questions {
		if q.ParentID != nil && *q.ParentID == parentID {
			delete(r.f.questions, id)
		}
	}
	return nil
}

func (r *fakeQuestionRepo) DeleteChildrenNotIn(ctx context.Context, tx *gorm.DB, parentID uint, keepIDs []uint) ([]uint, error) {
	keep := make(map[uint]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	var removed []uint
	for id, q := range r.f.questions {
		if q.ParentID != nil && *q.ParentID == parentID && !keep[id] {
			removed = append(removed, id)
			delete(r.f.questions, id)
		}
	}
	return removed, nil
}

func (r *fakeQuestionRepo) Collection(tx *gorm.DB, scope repositories.QuestionScope) ordering.Collection {
	return &fakeQuestionCollection{f: r.f, scope: scope}
}

// ===== OPTION =====

type fakeOptionRepo struct{ f *fakeRepository }

func (r *fakeOptionRepo) Create(ctx context.Context, tx *gorm.DB, o *models.QuestionOption) error {
	o.ID = r.f.id()
	r.f.options[o.ID] = o
	return nil
}

func (r *fakeOptionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionOption, error) {
	o, ok := r.f.options[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *fakeOptionRepo) Update(ctx context.Context, tx *gorm.DB, o *models.QuestionOption) error {
	if _, ok := r.f.options[o.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.f.options[o.ID] = o
	return nil
}

func (r *fakeOptionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.options, id)
	return nil
}

func (r *fakeOptionRepo) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.QuestionOption, error) {
	return r.f.optionsOf(questionID), nil
}

func (r *fakeOptionRepo) CountByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (int64, error) {
	return int64(len(r.f.optionsOf(questionID))), nil
}

func (r *fakeOptionRepo) DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) error {
	for id, o := range r.f.options {
		if o.QuestionID == questionID {
			delete(r.f.options, id)
		}
	}
	return nil
}

func (r *fakeOptionRepo) DeleteByQuestionNotIn(ctx context.Context, tx *gorm.DB, questionID uint, keepIDs []uint) error {
	keep := make(map[uint]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	for id, o := range r.f.options {
		if o.QuestionID == questionID && !keep[id] {
			delete(r.f.options, id)
		}
	}
	return nil
}

func (r *fakeOptionRepo) Collection(tx *gorm.DB, questionID uint) ordering.Collection {
	return &fakeOptionCollection{f: r.f, questionID: questionID}
}

// ===== COLLECTIONS =====

type fakeQuestionCollection struct {
	f     *fakeRepository
	scope repositories.QuestionScope
}

func (c *fakeQuestionCollection) rows() []*models.Question {
	return c.f.questionsInScope(c.scope)
}

func (c *fakeQuestionCollection) MaxOrder(ctx context.Context) (int, error) {
	max := 0
	for _, q := range c.rows() {
		if q.Order > max {
			max = q.Order
		}
	}
	return max, nil
}

func (c *fakeQuestionCollection) IDs(ctx context.Context) ([]uint, error) {
	rows := c.rows()
	ids := make([]uint, len(rows))
	for i, q := range rows {
		ids[i] = q.ID
	}
	return ids, nil
}

func (c *fakeQuestionCollection) OrderOf(ctx context.Context, id uint) (int, error) {
	for _, q := range c.rows() {
		if q.ID == id {
			return q.Order, nil
		}
	}
	return 0, ordering.ErrNotInCollection
}

func (c *fakeQuestionCollection) ShiftRange(ctx context.Context, lo, hi, delta int) error {
	for _, q := range c.rows() {
		if q.Order >= lo && q.Order <= hi {
			q.Order += delta
		}
	}
	return nil
}

func (c *fakeQuestionCollection) ShiftFrom(ctx context.Context, lo, delta int) error {
	for _, q := range c.rows() {
		if q.Order >= lo {
			q.Order += delta
		}
	}
	return nil
}

func (c *fakeQuestionCollection) SetOrder(ctx context.Context, id uint, order int) error {
	for _, q := range c.rows() {
		if q.ID == id {
			q.Order = order
			return nil
		}
	}
	return ordering.ErrNotInCollection
}

func (c *fakeQuestionCollection) AssignOrders(ctx context.Context, orderedIDs []uint) error {
	for i, id := range orderedIDs {
		q, ok := c.f.questions[id]
		if !ok {
			return ordering.ErrNotInCollection
		}
		q.Order = i + 1
	}
	return nil
}

type fakeOptionCollection struct {
	f          *fakeRepository
	questionID uint
}

func (c *fakeOptionCollection) rows() []*models.QuestionOption {
	return c.f.optionsOf(c.questionID)
}

func (c *fakeOptionCollection) MaxOrder(ctx context.Context) (int, error) {
	max := 0
	for _, o := range c.rows() {
		if o.Order > max {
			max = o.Order
		}
	}
	return max, nil
}

func (c *fakeOptionCollection) IDs(ctx context.Context) ([]uint, error) {
	rows := c.rows()
	ids := make([]uint, len(rows))
	for i, o := range rows {
		ids[i] = o.ID
	}
	return ids, nil
}

func (c *fakeOptionCollection) OrderOf(ctx context.Context, id uint) (int, error) {
	for _, o := range c.rows() {
		if o.ID == id {
			return o.Order, nil
		}
	}
	return 0, ordering.ErrNotInCollection
}

func (c *fakeOptionCollection) ShiftRange(ctx context.Context, lo, hi, delta int) error {
	for _, o := range c.rows() {
		if o.Order >= lo && o.Order <= hi {
			o.Order += delta
		}
	}
	return nil
}

func (c *fakeOptionCollection) ShiftFrom(ctx context.Context, lo, delta int) error {
	for _, o := range c.rows() {
		if o.Order >= lo {
			o.Order += delta
		}
	}
	return nil
}

func (c *fakeOptionCollection) SetOrder(ctx context.Context, id uint, order int) error {
	for _, o := range c.rows() {
		if o.ID == id {
			o.Order = order
			return nil
		}
	}
	return ordering.ErrNotInCollection
}

func (c *fakeOptionCollection) AssignOrders(ctx context.Context, orderedIDs []uint) error {
	for i, id := range orderedIDs {
		o, ok := c.f.options[id]
		if !ok {
			return ordering.ErrNotInCollection
		}
		o.Order = i + 1
	}
	return nil
}

// ===== PERIOD =====

type fakePeriodRepo struct{ f *fakeRepository }

func (r *fakePeriodRepo) Create(ctx context.Context, tx *gorm.DB, p *models.Period) error {
	p.ID = r.f.id()
	r.f.periods[p.ID] = p
	return nil
}

func (r *fakePeriodRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Period, error) {
	p, ok := r.f.periods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakePeriodRepo) Update(ctx context.Context, tx *gorm.DB, p *models.Period) error {
	r.f.periods[p.ID] = p
	return nil
}

func (r *fakePeriodRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.periods, id)
	return nil
}

func (r *fakePeriodRepo) List(ctx context.Context, tx *gorm.DB) ([]*models.Period, error) {
	var rows []*models.Period
	for _, p := range r.f.periods {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (r *fakePeriodRepo) ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error) {
	for _, p := range r.f.periods {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePeriodRepo) CountTests(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	var count int64
	for _, t := range r.f.tests {
		if t.PeriodID == id {
			count++
		}
	}
	return count, nil
}

// ===== TEST =====

type fakeTestRepo struct{ f *fakeRepository }

func (r *fakeTestRepo) Create(ctx context.Context, tx *gorm.DB, t *models.Test) error {
	t.ID = r.f.id()
	r.f.tests[t.ID] = t
	return nil
}

func (r *fakeTestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	t, ok := r.f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *fakeTestRepo) GetByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error) {
	for _, t := range r.f.tests {
		if t.AccessCode == code {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTestRepo) GetActiveByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error) {
	for _, t := range r.f.tests {
		if t.AccessCode == code && t.IsActive() {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTestRepo) Update(ctx context.Context, tx *gorm.DB, t *models.Test) error {
	r.f.tests[t.ID] = t
	return nil
}

func (r *fakeTestRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(r.f.tests, id)
	return nil
}

func (r *fakeTestRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	var rows []*models.Test
	for _, t := range r.f.tests {
		if filters.PeriodID != nil && t.PeriodID != *filters.PeriodID {
			continue
		}
		if filters.VersionID != nil && t.VersionID != *filters.VersionID {
			continue
		}
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, int64(len(rows)), nil
}

func (r *fakeTestRepo) ExistsByAccessCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	for _, t := range r.f.tests {
		if excludeID != nil && t.ID == *excludeID {
			continue
		}
		if t.AccessCode == code {
			return true, nil
		}
	}
	return false, nil
}

// ===== STUDENT =====

type fakeStudentRepo struct{ f *fakeRepository }

func (r *fakeStudentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error) {
	s, ok := r.f.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeStudentRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID string) (*models.Student, error) {
	for _, s := range r.f.students {
		if s.DocumentID == documentID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) Upsert(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	for _, existing := range r.f.students {
		if existing.DocumentID == student.DocumentID {
			existing.FirstName = student.FirstName
			existing.LastName = student.LastName
			existing.Email = student.Email
			*student = *existing
			return nil
		}
	}
	student.ID = r.f.id()
	r.f.students[student.ID] = student
	return nil
}

// ===== ASSIGNMENT =====

type fakeAssignmentRepo struct{ f *fakeRepository }

func (r *fakeAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAssignment, error) {
	a, ok := r.f.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *fakeAssignmentRepo) CountCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) (int64, error) {
	var count int64
	for _, a := range r.f.assignments {
		if a.TestID == testID && a.Completed {
			count++
		}
	}
	return count, nil
}

func (r *fakeAssignmentRepo) GetByTestAndStudent(ctx context.Context, tx *gorm.DB, testID, studentID uint) (*models.TestAssignment, error) {
	for _, a := range r.f.assignments {
		if a.TestID == testID && a.StudentID == studentID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAssignmentRepo) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.TestAssignment) error {
	for _, existing := range r.f.assignments {
		if existing.TestID == assignment.TestID && existing.StudentID == assignment.StudentID {
			*assignment = *existing
			return nil
		}
	}
	assignment.ID = r.f.id()
	r.f.assignments[assignment.ID] = assignment
	return nil
}

func (r *fakeAssignmentRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uint) error {
	a, ok := r.f.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now().UTC()
	a.Completed = true
	a.CompletedAt = &now
	return nil
}

// ===== ANSWER =====

type fakeAnswerRepo struct{ f *fakeRepository }

func (r *fakeAnswerRepo) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.TestAnswer) error {
	for _, a := range answers {
		a.ID = r.f.id()
		r.f.answers[a.ID] = a
	}
	return nil
}

func (r *fakeAnswerRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]*models.TestAnswer, error) {
	var rows []*models.TestAnswer
	for _, a := range r.f.answers {
		if a.AssignmentID == assignmentID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (r *fakeAnswerRepo) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error {
	for id, a := range r.f.answers {
		if a.AssignmentID == assignmentID {
			delete(r.f.answers, id)
		}
	}
	return nil
}

// ===== RESULTS =====

type fakeResultsRepo struct{ f *fakeRepository }

func (r *fakeResultsRepo) FilterOptions(ctx context.Context, tx *gorm.DB) (*repositories.ResultFilterOptions, error) {
	opts := &repositories.ResultFilterOptions{}
	for _, t := range r.f.tests {
		opts.Tests = append(opts.Tests, *t)
	}
	for _, v := range r.f.versions {
		opts.Versions = append(opts.Versions, *v)
	}
	for _, p := range r.f.periods {
		opts.Periods = append(opts.Periods, *p)
	}
	return opts, nil
}

func (r *fakeResultsRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*repositories.ResultRow, int64, error) {
	var rows []*repositories.ResultRow
	for _, a := range r.f.assignments {
		if !a.Completed {
			continue
		}
		test := r.f.tests[a.TestID]
		if test == nil {
			continue
		}
		if filters.TestID != nil && test.ID != *filters.TestID {
			continue
		}
		if filters.VersionID != nil && test.VersionID != *filters.VersionID {
			continue
		}
		if filters.PeriodID != nil && test.PeriodID != *filters.PeriodID {
			continue
		}
		student := r.f.students[a.StudentID]
		version := r.f.versions[test.VersionID]
		period := r.f.periods[test.PeriodID]
		row := &repositories.ResultRow{
			AssignmentID: a.ID,
			TestName:     test.Name,
			CompletedAt:  a.CompletedAt,
		}
		if student != nil {
			row.StudentName = student.FirstName + " " + student.LastName
			row.DocumentID = student.DocumentID
			row.Email = student.Email
		}
		if version != nil {
			row.Version = version.Version
		}
		if period != nil {
			row.PeriodName = period.Name
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AssignmentID < rows[j].AssignmentID })
	return rows, int64(len(rows)), nil
}

func (r *fakeResultsRepo) AnswersFor(ctx context.Context, tx *gorm.DB, assignmentIDs []uint) (map[uint]map[uint]*models.TestAnswer, error) {
	wanted := make(map[uint]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}
	out := make(map[uint]map[uint]*models.TestAnswer)
	for _, a := range r.f.answers {
		if !wanted[a.AssignmentID] {
			continue
		}
		if out[a.AssignmentID] == nil {
			out[a.AssignmentID] = make(map[uint]*models.TestAnswer)
		}
		out[a.AssignmentID][a.QuestionID] = a
	}
	return out, nil
}
