package admission

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/backoffice/core"
)

// legalTargets is the workflow graph. archived has no outbound edge.
// approved and rejected only reach each other through under_review or waitlisted.
var legalTargets = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected, StatusWaitlisted, StatusArchived},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusWaitlisted, StatusArchived},
	StatusWaitlisted:  {StatusApproved, StatusRejected, StatusArchived},
	StatusApproved:    {StatusUnderReview, StatusWaitlisted, StatusArchived},
	StatusRejected:    {StatusUnderReview, StatusWaitlisted, StatusArchived},
	StatusArchived:    {},
}

// TransitionOptions carries the optional inputs of a status change.
type TransitionOptions struct {
	Comment         string
	RejectionReason string
}

// LegalTargets returns the statuses reachable from `from`.
func LegalTargets(from Status) []Status {
	targets := legalTargets[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the workflow allows moving from `from` to `to`.
func CanTransition(from, to Status) bool {
	for _, t := range legalTargets[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves app to target on behalf of actor.
// On failure the returned Application is app, unchanged.
func Transition(app Application, target Status, actor Reviewer, opts TransitionOptions, now time.Time) (Application, error) {
	if !target.IsValid() {
		return app, core.NewFieldValidationError("status", fmt.Sprintf("unknown status %q", target))
	}
	if !actor.IsAuthenticated() {
		return app, core.NewFieldValidationError("reviewer", "an authenticated reviewer is required")
	}
	if !CanTransition(app.Status, target) {
		return app, &InvalidTransitionError{From: app.Status, To: target}
	}

	reason := opts.RejectionReason
	if target == StatusRejected && strings.TrimSpace(reason) == "" {
		return app, core.NewFieldValidationError("rejection_reason", "a rejection reason is required")
	}

	now = now.UTC()
	updated := app.Clone()
	updated.Status = target
	updated.LastModified = now
	updated.ProcessedBy = actor.ID
	updated.ProcessedAt = &now

	switch target {
	case StatusRejected:
		updated.RejectionReason = reason
	case StatusArchived:
		// keep the reason of archived rejections
	default:
		updated.RejectionReason = ""
	}

	entry := fmt.Sprintf("%s -> %s", app.Status, target)
	if target == StatusRejected {
		entry += fmt.Sprintf(" (reason: %s)", reason)
	}
	if comment := strings.TrimSpace(opts.Comment); comment != "" {
		entry += ": " + comment
	}
	updated.Notes = appendNote(updated.Notes, now, actor, entry)
	return updated, nil
}

// appendNote adds a timestamped line to the audit log; existing lines are never rewritten.
func appendNote(notes string, now time.Time, actor Reviewer, entry string) string {
	who := actor.ID
	if actor.Name != "" {
		who = fmt.Sprintf("%s (%s)", actor.Name, actor.ID)
	}
	line := fmt.Sprintf("[%s] %s: %s", now.UTC().Format(time.RFC3339), who, entry)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
