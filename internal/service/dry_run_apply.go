package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

// ApplySelectedChanges commits the chosen changes of a live session in dependency order.
// Per-change failures are reported in the result. The session is removed afterwards.
func (s *DryRunService) ApplySelectedChanges(ctx context.Context, sessionID string, req dto.ApplyChangesRequest) (*models.ApplicationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	original := session.OriginalContent
	if req.Content != nil {
		original = req.Content.ToModel()
	}

	final, results := s.applyChanges(original, session.Changes(), req.ChangeIDs)
	out := &models.ApplicationResult{
		SessionID:         session.ID,
		OriginalContent:   original,
		FinalContent:      final,
		Results:           results,
		RollbackAvailable: true,
	}
	reversible := make(map[string]bool)
	for _, change := range session.Changes() {
		reversible[change.ID] = change.Reversible
	}
	for _, r := range results {
		switch {
		case r.Skipped:
			out.Skipped++
		case r.Success:
			out.Applied++
			if !reversible[r.ChangeID] {
				out.RollbackAvailable = false
			}
		default:
			out.Failed++
		}
		if r.Skipped || r.FixType == "" {
			continue
		}
		s.metrics.ObserveFixApplied(r.FixType, r.Success)
	}

	session.Status = models.DryRunCommitted
	if err := s.store.Delete(ctx, session.ID); err != nil {
		s.logger.Warn("failed to drop committed dry-run session", zap.String("session_id", session.ID), zap.Error(err))
	}
	s.metrics.ObserveDryRunEvent(DryRunEventCommitted)
	s.refreshCacheGauge(ctx)
	return out, nil
}

// applyChanges applies selected changes to a copy of content. Every change is re-derived
// from the current text so earlier changes never leave stale offsets behind.
func (s *DryRunService) applyChanges(content models.GeneratedContent, all []models.ProposedChange, selectedIDs []string) (models.GeneratedContent, []models.ChangeApplicationResult) {
	byID := indexChanges(all)
	results := make([]models.ChangeApplicationResult, 0, len(selectedIDs))

	seen := make(map[string]bool, len(selectedIDs))
	known := make([]string, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := byID[id]; !ok {
			results = append(results, models.ChangeApplicationResult{ChangeID: id, Error: "unknown change", AppliedAt: s.now().UTC()})
			continue
		}
		known = append(known, id)
	}

	order, cyclic := orderChanges(known, byID)
	for _, id := range cyclic {
		results = append(results, models.ChangeApplicationResult{
			ChangeID:  id,
			FixType:   byID[id].FixType,
			Error:     "dependency cycle",
			AppliedAt: s.now().UTC(),
		})
	}

	succeeded := make(map[string]bool, len(order))
	for _, change := range order {
		result := models.ChangeApplicationResult{ChangeID: change.ID, FixType: change.FixType, AppliedAt: s.now().UTC()}
		if blocker, ok := blockingPrerequisite(change, seen, succeeded); !ok {
			result.Skipped = true
			result.Error = blocker
			results = append(results, result)
			continue
		}

		before := WordCount(content.Content)
		after, changed, err := s.remediation.deriveFix(content, issueFromChange(change), change.FixType)
		if err != nil {
			result.Error = err.Error()
			s.logger.Warn("change failed", zap.String("change_id", change.ID), zap.String("fix_type", string(change.FixType)), zap.Error(err))
			results = append(results, result)
			continue
		}
		if changed {
			content.Content = after
			content.Metadata.WordCount = WordCount(after)
			result.WordCountDelta = content.Metadata.WordCount - before
		}
		result.Success = true
		succeeded[change.ID] = true
		results = append(results, result)
	}
	return content, results
}

// blockingPrerequisite reports why a change cannot run: a prerequisite that was not
// selected or did not apply.
func blockingPrerequisite(change models.ProposedChange, selected, succeeded map[string]bool) (string, bool) {
	for _, dep := range change.Dependencies {
		if !selected[dep] {
			return fmt.Sprintf("prerequisite change %s was not selected", dep), false
		}
		if !succeeded[dep] {
			return fmt.Sprintf("prerequisite change %s was not applied", dep), false
		}
	}
	return "", true
}

func issueFromChange(change models.ProposedChange) models.ValidationIssue {
	return models.ValidationIssue{
		Severity:  change.IssueSeverity,
		IssueType: change.IssueType,
		Message:   change.IssueMessage,
	}
}

func indexChanges(changes []models.ProposedChange) map[string]models.ProposedChange {
	out := make(map[string]models.ProposedChange, len(changes))
	for _, change := range changes {
		out[change.ID] = change
	}
	return out
}

func changeIDs(changes []models.ProposedChange) []string {
	out := make([]string, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.ID)
	}
	return out
}

// orderChanges topologically sorts ids by their in-set dependencies (Kahn), always taking
// the lowest sequence among ready changes. Changes left on a cycle are returned separately.
func orderChanges(ids []string, byID map[string]models.ProposedChange) ([]models.ProposedChange, []string) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}
	indegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, dep := range byID[id].Dependencies {
			if !inSet[dep] {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	ordered := make([]models.ProposedChange, 0, len(ids))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return byID[ready[i]].Sequence < byID[ready[j]].Sequence })
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[next])
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	var cyclic []string
	if len(ordered) < len(ids) {
		placed := make(map[string]bool, len(ordered))
		for _, change := range ordered {
			placed[change.ID] = true
		}
		for _, id := range ids {
			if !placed[id] {
				cyclic = append(cyclic, id)
			}
		}
	}
	return ordered, cyclic
}
