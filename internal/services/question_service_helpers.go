package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

// ===== SCOPE AND LOCK CHECKS =====

// requireDraftVersion loads a version and rejects the mutation when it is
// already published.
func requireDraftVersion(ctx context.Context, r repositories.Repository, versionID uint) (*models.TemplateVersion, error) {
	version, err := r.Version().GetByID(ctx, nil, versionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	if !version.IsDraft() {
		return nil, NewVersionLockedError(version.ID)
	}
	return version, nil
}

func scopeOf(q *models.Question) repositories.QuestionScope {
	if q.ParentID == nil {
		return repositories.RootScope(q.VersionID)
	}
	return repositories.ChildScope(q.VersionID, *q.ParentID)
}

// resolveCreateScope picks the target scope for a new question and checks
// the parent/type pairing: children must be grouped_child rows under a
// grouped parent in the same version.
func (s *questionService) resolveCreateScope(ctx context.Context, r repositories.Repository, versionID uint, req *CreateQuestionRequest) (repositories.QuestionScope, error) {
	if req.ParentID == nil {
		if req.Type == models.TypeGroupedChild {
			return repositories.QuestionScope{}, fmt.Errorf("%w: grouped_child requires a parent", ErrInvalidPayload)
		}
		return repositories.RootScope(versionID), nil
	}

	parent, err := r.Question().GetByID(ctx, nil, *req.ParentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return repositories.QuestionScope{}, ErrQuestionNotFound
		}
		return repositories.QuestionScope{}, fmt.Errorf("failed to get parent question: %w", err)
	}
	if parent.VersionID != versionID {
		return repositories.QuestionScope{}, ErrScopeMismatch
	}
	if parent.Type != models.TypeGrouped {
		return repositories.QuestionScope{}, fmt.Errorf("%w: parent must be a grouped question", ErrInvalidPayload)
	}
	if req.Type != models.TypeGroupedChild {
		return repositories.QuestionScope{}, fmt.Errorf("%w: children must be grouped_child", ErrInvalidPayload)
	}
	return repositories.ChildScope(versionID, parent.ID), nil
}

// requireOptionOwner loads the question that is to own an option mutation,
// verifies its version is still a draft and that the type takes options.
func (s *questionService) requireOptionOwner(ctx context.Context, r repositories.Repository, questionID uint) (*models.Question, error) {
	question, err := r.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if _, err := requireDraftVersion(ctx, r, question.VersionID); err != nil {
		return nil, err
	}
	if !question.Type.HasOptions() {
		return nil, ErrQuestionTypeNoOptions
	}
	return question, nil
}

// validateInlinePayloads checks the type-dependent parts of a create
// request: options only on option-bearing types (and at least two for
// choice types), children only on grouped questions.
func validateInlinePayloads(req *CreateQuestionRequest) error {
	if len(req.Options) > 0 && !req.Type.HasOptions() {
		return ErrQuestionTypeNoOptions
	}
	switch req.Type {
	case models.TypeSingleChoice, models.TypeMultipleChoice, models.TypeLikert:
		if len(req.Options) < 2 {
			return fmt.Errorf("%w: %s questions need at least two options", ErrInvalidPayload, req.Type)
		}
	}
	if len(req.Children) > 0 && req.Type != models.TypeGrouped {
		return fmt.Errorf("%w: children are only valid on grouped questions", ErrInvalidPayload)
	}
	for _, child := range req.Children {
		if child.ID != nil {
			return fmt.Errorf("%w: child ids are not allowed on create", ErrInvalidPayload)
		}
	}
	return nil
}

// ===== TYPE TRANSITIONS =====

// applyTypeChange switches a question's type and drops whatever structure
// the new type cannot carry: options for text/date/grouped, children when
// leaving grouped. Transitions into or out of grouped_child are rejected
// because child rows never change role.
func (s *questionService) applyTypeChange(ctx context.Context, r repositories.Repository, q *models.Question, newType *models.QuestionType) error {
	if newType == nil || *newType == q.Type {
		return nil
	}
	if q.Type == models.TypeGroupedChild || *newType == models.TypeGroupedChild {
		return fmt.Errorf("%w: grouped_child rows keep their type", ErrInvalidPayload)
	}

	if q.Type.HasOptions() && !newType.HasOptions() {
		if err := r.Option().DeleteByQuestion(ctx, nil, q.ID); err != nil {
			return fmt.Errorf("failed to drop options on type change: %w", err)
		}
	}

	if q.Type == models.TypeGrouped {
		if err := s.deleteChildren(ctx, r, q.ID); err != nil {
			return err
		}
	}

	q.Type = *newType
	return nil
}

// ===== CASCADE DELETES =====

func (s *questionService) deleteChildren(ctx context.Context, r repositories.Repository, parentID uint) error {
	children, err := r.Question().GetChildren(ctx, nil, parentID)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	for _, child := range children {
		if err := r.Option().DeleteByQuestion(ctx, nil, child.ID); err != nil {
			return fmt.Errorf("failed to drop child options: %w", err)
		}
	}
	if err := r.Question().DeleteChildren(ctx, nil, parentID); err != nil {
		return fmt.Errorf("failed to delete children: %w", err)
	}
	return nil
}

// deleteSubtree removes a question together with its options and, for
// grouped questions, the whole child list. The caller compacts the scope.
func (s *questionService) deleteSubtree(ctx context.Context, r repositories.Repository, q *models.Question) error {
	if err := r.Option().DeleteByQuestion(ctx, nil, q.ID); err != nil {
		return fmt.Errorf("failed to delete options: %w", err)
	}
	if q.Type == models.TypeGrouped {
		if err := s.deleteChildren(ctx, r, q.ID); err != nil {
			return err
		}
	}
	if err := r.Question().Delete(ctx, nil, q.ID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

// ===== INLINE OPTION CREATION =====

// assignCreateSlots resolves requested option orders for a fresh list. A
// free requested slot is honored; a missing or taken one falls to the first
// free slot. The result is then squeezed to 1..N preserving slot order.
func assignCreateSlots(requested []*int) []int {
	type slotted struct {
		index int
		slot  int
	}
	used := make(map[int]bool, len(requested))
	slots := make([]slotted, len(requested))

	nextFree := func() int {
		for slot := 1; ; slot++ {
			if !used[slot] {
				return slot
			}
		}
	}

	for i, req := range requested {
		slot := 0
		if req != nil && *req >= 1 && !used[*req] {
			slot = *req
		} else {
			slot = nextFree()
		}
		used[slot] = true
		slots[i] = slotted{index: i, slot: slot}
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].slot < slots[j].slot })

	orders := make([]int, len(requested))
	for rank, s := range slots {
		orders[s.index] = rank + 1
	}
	return orders
}

func (s *questionService) createInlineOptions(ctx context.Context, r repositories.Repository, questionID uint, payloads []OptionPayload) error {
	requested := make([]*int, len(payloads))
	for i := range payloads {
		requested[i] = payloads[i].Order
	}
	orders := assignCreateSlots(requested)

	for i, payload := range payloads {
		option := &models.QuestionOption{
			QuestionID: questionID,
			Label:      payload.Label,
			Value:      payload.Value,
			Order:      orders[i],
		}
		if err := r.Option().Create(ctx, nil, option); err != nil {
			return fmt.Errorf("failed to create option: %w", err)
		}
	}
	return nil
}

// ===== CHILD CREATION AND RECONCILIATION =====

func (s *questionService) createChildren(ctx context.Context, r repositories.Repository, parent *models.Question, payloads []ChildQuestionPayload) error {
	requested := make([]*int, len(payloads))
	for i := range payloads {
		requested[i] = payloads[i].Order
	}
	orders := assignCreateSlots(requested)

	for i, payload := range payloads {
		child := &models.Question{
			VersionID: parent.VersionID,
			ParentID:  &parent.ID,
			Type:      models.TypeGroupedChild,
			Text:      payload.Text,
			Section:   parent.Section,
			Required:  boolOrDefault(payload.Required, parent.Required),
			Order:     orders[i],
		}
		if err := r.Question().Create(ctx, nil, child); err != nil {
			return fmt.Errorf("failed to create child question: %w", err)
		}

		if len(payload.Options) > 0 {
			inline := make([]OptionPayload, len(payload.Options))
			for j, opt := range payload.Options {
				inline[j] = OptionPayload{Label: opt.Label, Value: opt.Value, Order: opt.Order}
			}
			if err := s.createInlineOptions(ctx, r, child.ID, inline); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncChildren reconciles a grouped question's child list against the
// payload: absent children are deleted (options included), present ones are
// updated, id-less ones created. Orders land dense 1..N in payload-resolved
// sequence afterwards.
func (s *questionService) syncChildren(ctx context.Context, r repositories.Repository, parent *models.Question, payloads []ChildQuestionPayload) error {
	existing, err := r.Question().GetChildren(ctx, nil, parent.ID)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	current := make(map[uint]*models.Question, len(existing))
	for _, child := range existing {
		current[child.ID] = child
	}

	keepIDs := make([]uint, 0, len(payloads))
	for _, payload := range payloads {
		if payload.ID != nil {
			if _, ok := current[*payload.ID]; !ok {
				return ErrScopeMismatch
			}
			keepIDs = append(keepIDs, *payload.ID)
		}
	}

	removed, err := r.Question().DeleteChildrenNotIn(ctx, nil, parent.ID, keepIDs)
	if err != nil {
		return fmt.Errorf("failed to prune children: %w", err)
	}
	for _, id := range removed {
		if err := r.Option().DeleteByQuestion(ctx, nil, id); err != nil {
			return fmt.Errorf("failed to drop pruned child options: %w", err)
		}
	}

	finalIDs := make([]uint, len(payloads))
	for i, payload := range payloads {
		if payload.ID != nil {
			child := current[*payload.ID]
			child.Text = payload.Text
			if payload.Required != nil {
				child.Required = *payload.Required
			}
			child.Section = parent.Section
			if err := r.Question().Update(ctx, nil, child); err != nil {
				return fmt.Errorf("failed to update child question: %w", err)
			}
			if payload.Options != nil {
				if err := s.syncOptions(ctx, r, child, payload.Options); err != nil {
					return err
				}
			}
			finalIDs[i] = child.ID
			continue
		}

		child := &models.Question{
			VersionID: parent.VersionID,
			ParentID:  &parent.ID,
			Type:      models.TypeGroupedChild,
			Text:      payload.Text,
			Section:   parent.Section,
			Required:  boolOrDefault(payload.Required, parent.Required),
			// Parked past the surviving rows; AssignOrders lands it.
			Order: len(existing) + len(payloads) + i + 1,
		}
		if err := r.Question().Create(ctx, nil, child); err != nil {
			return fmt.Errorf("failed to create child question: %w", err)
		}
		if len(payload.Options) > 0 {
			inline := make([]OptionPayload, len(payload.Options))
			for j, opt := range payload.Options {
				inline[j] = OptionPayload{Label: opt.Label, Value: opt.Value, Order: opt.Order}
			}
			if err := s.createInlineOptions(ctx, r, child.ID, inline); err != nil {
				return err
			}
		}
		finalIDs[i] = child.ID
	}

	sequenced := sequenceByRequestedOrder(finalIDs, payloadOrders(len(payloads), func(i int) *int { return payloads[i].Order }))
	coll := r.Question().Collection(nil, repositories.ChildScope(parent.VersionID, parent.ID))
	if err := coll.AssignOrders(ctx, sequenced); err != nil {
		return fmt.Errorf("failed to assign child orders: %w", err)
	}
	return nil
}

// syncOptions reconciles a question's option list the same way syncChildren
// reconciles children.
func (s *questionService) syncOptions(ctx context.Context, r repositories.Repository, question *models.Question, payloads []OptionSyncPayload) error {
	if len(payloads) > 0 && !question.Type.HasOptions() {
		return ErrQuestionTypeNoOptions
	}

	existing, err := r.Option().ListByQuestion(ctx, nil, question.ID)
	if err != nil {
		return fmt.Errorf("failed to list options: %w", err)
	}
	current := make(map[uint]*models.QuestionOption, len(existing))
	for _, option := range existing {
		current[option.ID] = option
	}

	keepIDs := make([]uint, 0, len(payloads))
	for _, payload := range payloads {
		if payload.ID != nil {
			if _, ok := current[*payload.ID]; !ok {
				return ErrScopeMismatch
			}
			keepIDs = append(keepIDs, *payload.ID)
		}
	}
	if err := r.Option().DeleteByQuestionNotIn(ctx, nil, question.ID, keepIDs); err != nil {
		return fmt.Errorf("failed to prune options: %w", err)
	}
	if len(payloads) == 0 {
		return nil
	}

	finalIDs := make([]uint, len(payloads))
	for i, payload := range payloads {
		if payload.ID != nil {
			option := current[*payload.ID]
			option.Label = payload.Label
			if payload.Value != nil {
				option.Value = payload.Value
			}
			if err := r.Option().Update(ctx, nil, option); err != nil {
				return fmt.Errorf("failed to update option: %w", err)
			}
			finalIDs[i] = option.ID
			continue
		}

		option := &models.QuestionOption{
			QuestionID: question.ID,
			Label:      payload.Label,
			Value:      payload.Value,
			Order:      len(existing) + len(payloads) + i + 1,
		}
		if err := r.Option().Create(ctx, nil, option); err != nil {
			return fmt.Errorf("failed to create option: %w", err)
		}
		finalIDs[i] = option.ID
	}

	sequenced := sequenceByRequestedOrder(finalIDs, payloadOrders(len(payloads), func(i int) *int { return payloads[i].Order }))
	coll := r.Option().Collection(nil, question.ID)
	if err := coll.AssignOrders(ctx, sequenced); err != nil {
		return fmt.Errorf("failed to assign option orders: %w", err)
	}
	return nil
}

// ===== ORDER RESOLUTION =====

func payloadOrders(n int, at func(int) *int) []*int {
	orders := make([]*int, n)
	for i := 0; i < n; i++ {
		orders[i] = at(i)
	}
	return orders
}

// sequenceByRequestedOrder sorts ids by their requested order, stable on
// payload position, with a missing order defaulting to the position itself.
func sequenceByRequestedOrder(ids []uint, requested []*int) []uint {
	type entry struct {
		id   uint
		key  int
		tied int
	}
	entries := make([]entry, len(ids))
	for i, id := range ids {
		key := i + 1
		if requested[i] != nil {
			key = *requested[i]
		}
		entries[i] = entry{id: id, key: key, tied: i}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := make([]uint, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

func boolOrDefault(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
