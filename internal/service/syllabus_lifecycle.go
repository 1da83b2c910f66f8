package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/smd-syllabus-api/internal/dto"
	"github.com/noah-isme/smd-syllabus-api/internal/models"
	"github.com/noah-isme/smd-syllabus-api/internal/repository"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

const effectiveDateLayout = "2006-01-02"

// maxNoteLength matches the review_comments.content column.
const maxNoteLength = 5000

type dateRule int

const (
	dateNone dateRule = iota
	dateRequired
	dateOptional
)

type transitionKey struct {
	from   models.SyllabusStatus
	action models.SyllabusAction
}

// transitionRule is one row of the lifecycle table.
type transitionRule struct {
	role          models.UserRole
	ownerOnly     bool
	to            models.SyllabusStatus
	reason        bool
	summary       bool
	effectiveDate dateRule
	submitted     bool
	stage         repository.ApprovalStage
	openSession   bool
	closeSession  bool
	hodReview     models.HODDecision
	bumpVersion   bool
}

// transitionTable lists every legal (status, action) pair. Anything absent is an invalid transition.
var transitionTable = map[transitionKey]transitionRule{
	{models.SyllabusStatusDraft, models.ActionSubmit}: {
		role: models.RoleLecturer, ownerOnly: true, to: models.SyllabusStatusPendingHOD, submitted: true,
	},
	{models.SyllabusStatusPendingHOD, models.ActionApprove}: {
		role: models.RoleHOD, to: models.SyllabusStatusPendingAA, stage: repository.StageHOD,
	},
	{models.SyllabusStatusPendingHOD, models.ActionReject}: {
		role: models.RoleHOD, to: models.SyllabusStatusRejected, reason: true,
	},
	{models.SyllabusStatusPendingHODRevision, models.ActionApprove}: {
		role: models.RoleHOD, to: models.SyllabusStatusPendingAdminRepublish, stage: repository.StageHOD,
		hodReview: models.HODDecisionApproved,
	},
	{models.SyllabusStatusPendingHODRevision, models.ActionReject}: {
		role: models.RoleHOD, to: models.SyllabusStatusRevisionInProgress, reason: true,
		hodReview: models.HODDecisionRejected, openSession: true,
	},
	{models.SyllabusStatusPendingAA, models.ActionApprove}: {
		role: models.RoleAA, to: models.SyllabusStatusPendingPrincipal, stage: repository.StageAA,
	},
	{models.SyllabusStatusPendingAA, models.ActionReject}: {
		role: models.RoleAA, to: models.SyllabusStatusRejected, reason: true,
	},
	{models.SyllabusStatusPendingPrincipal, models.ActionApprove}: {
		role: models.RolePrincipal, to: models.SyllabusStatusApproved, stage: repository.StagePrincipal,
	},
	{models.SyllabusStatusPendingPrincipal, models.ActionReject}: {
		role: models.RolePrincipal, to: models.SyllabusStatusRejected, reason: true,
	},
	{models.SyllabusStatusApproved, models.ActionPublish}: {
		role: models.RoleAdmin, to: models.SyllabusStatusPublished, effectiveDate: dateRequired,
		stage: repository.StagePublish,
	},
	{models.SyllabusStatusPublished, models.ActionUnpublish}: {
		role: models.RoleAdmin, to: models.SyllabusStatusArchived, reason: true,
	},
	{models.SyllabusStatusPublished, models.ActionRequestRevision}: {
		role: models.RoleAdmin, to: models.SyllabusStatusRevisionInProgress, reason: true, openSession: true,
	},
	{models.SyllabusStatusRejected, models.ActionStartRevision}: {
		role: models.RoleLecturer, ownerOnly: true, to: models.SyllabusStatusRevisionInProgress, openSession: true,
	},
	{models.SyllabusStatusRevisionInProgress, models.ActionSubmitRevision}: {
		role: models.RoleLecturer, ownerOnly: true, to: models.SyllabusStatusPendingHODRevision, summary: true,
		submitted: true, closeSession: true, bumpVersion: true,
	},
	{models.SyllabusStatusPendingAdminRepublish, models.ActionRepublish}: {
		role: models.RoleAdmin, to: models.SyllabusStatusPublished, effectiveDate: dateOptional,
		stage: repository.StagePublish,
	},
	{models.SyllabusStatusArchived, models.ActionDeactivate}: {
		role: models.RoleAdmin, to: models.SyllabusStatusInactive, reason: true,
	},
}

// AvailableActions lists the actions the identity may request on a document in its current state.
func AvailableActions(doc *models.Syllabus, actor models.Identity) []models.SyllabusAction {
	if doc == nil {
		return nil
	}
	actions := make([]models.SyllabusAction, 0, 2)
	for _, action := range models.AllSyllabusActions {
		rule, ok := transitionTable[transitionKey{doc.Status, action}]
		if !ok || rule.role != actor.Role {
			continue
		}
		if rule.ownerOnly && doc.OwnerID != actor.UserID {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// planTransition checks guards in order (transition, role, payload) and builds the write plan.
func planTransition(doc *models.Syllabus, actor models.Identity, req dto.TransitionRequest, now time.Time) (repository.TransitionParams, error) {
	rule, ok := transitionTable[transitionKey{doc.Status, req.Action}]
	if !ok {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("action %q is not allowed while syllabus is %s", req.Action, doc.Status))
	}

	if actor.Role != rule.role {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("%s may not %s a syllabus in %s", roleLabel(actor.Role), req.Action, doc.Status))
	}
	if rule.ownerOnly && doc.OwnerID != actor.UserID {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("only the owning lecturer may %s this syllabus", req.Action))
	}

	reason := strings.TrimSpace(req.Reason)
	if rule.reason && reason == "" {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("a reason is required to %s", req.Action))
	}
	if utf8.RuneCountInString(reason) > maxNoteLength {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("reason must be at most %d characters", maxNoteLength))
	}
	summary := strings.TrimSpace(req.Summary)
	if rule.summary && summary == "" {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrValidation, "a revision summary is required")
	}
	if utf8.RuneCountInString(summary) > maxNoteLength {
		return repository.TransitionParams{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("revision summary must be at most %d characters", maxNoteLength))
	}
	effective, err := resolveEffectiveDate(rule.effectiveDate, req.EffectiveDate, now)
	if err != nil {
		return repository.TransitionParams{}, err
	}

	params := repository.TransitionParams{
		SyllabusID:    doc.ID,
		FromStatus:    doc.Status,
		ToStatus:      rule.to,
		Actor:         actor,
		Now:           now,
		SetSubmitted:  rule.submitted,
		Stage:         rule.stage,
		EffectiveDate: effective,
		BumpVersion:   rule.bumpVersion,
		OpenSession:   rule.openSession,
	}
	if rule.closeSession {
		params.CloseSession = &repository.CloseSessionParams{Summary: summary}
	}
	if rule.hodReview != "" {
		params.HODReview = &repository.HODReviewParams{Decision: rule.hodReview}
	}

	var note *string
	switch {
	case rule.reason:
		note = &reason
		params.Comment = &models.ReviewComment{
			SyllabusID: doc.ID,
			AuthorID:   actor.UserID,
			AuthorRole: actor.Role,
			Content:    reason,
			Kind:       models.CommentKindOfficialRejectionReason,
		}
	case rule.summary:
		note = &summary
	}

	params.History = models.ApprovalHistory{
		SyllabusID: doc.ID,
		Action:     req.Action,
		FromStatus: doc.Status,
		ToStatus:   rule.to,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Comment:    note,
		CreatedAt:  now,
	}
	return params, nil
}

func resolveEffectiveDate(rule dateRule, raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if rule == dateNone {
		return nil, nil
	}
	if raw == "" {
		if rule == dateRequired {
			return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate is required")
		}
		return nil, nil
	}
	date, err := time.ParseInLocation(effectiveDateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "effectiveDate must use YYYY-MM-DD")
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effectiveDate must not be earlier than today")
	}
	return &date, nil
}

func roleLabel(role models.UserRole) string {
	if role == "" {
		return "caller without role"
	}
	return string(role)
}
