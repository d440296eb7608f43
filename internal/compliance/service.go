package compliance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"taxdesk/compliance/compliance-backend/internal/apperr"
	"taxdesk/compliance/compliance-backend/internal/audit"
	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/authz"
	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/cache"
	"taxdesk/compliance/compliance-backend/pkg/storage"
)

// Authorizer checks a session against a permission
type Authorizer interface {
	Authorize(ctx context.Context, session *auth.Session, perm authz.Permission) error
}

// Revalidator drops cached views after a committed write
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Notifier tells the owner how their request was resolved
type Notifier interface {
	ReviewCompleted(ctx context.Context, owner *users.User, req *ComplianceRequest, suspended bool) error
}

// Service implements submission and review of compliance documents
type Service struct {
	repo             Repository
	authorizer       Authorizer
	documents        storage.DocumentStore
	revalidator      Revalidator
	notifier         Notifier
	maxDocumentBytes int
	logger           *zap.Logger
	now              func() time.Time
}

func NewService(repo Repository, authorizer Authorizer, documents storage.DocumentStore, revalidator Revalidator, maxDocumentBytes int, logger *zap.Logger) *Service {
	return &Service{
		repo:             repo,
		authorizer:       authorizer,
		documents:        documents,
		revalidator:      revalidator,
		maxDocumentBytes: maxDocumentBytes,
		logger:           logger,
		now:              time.Now,
	}
}

// WithNotifier sets the review outcome notifier. Without one no notice is sent.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// MaxDocumentBytes is the largest accepted document payload
func (s *Service) MaxDocumentBytes() int {
	return s.maxDocumentBytes
}

// Submit records a new pending request for the session's user. A pending or
// approved request of the same type blocks it; rejected ones do not.
func (s *Service) Submit(ctx context.Context, actor *auth.Session, in SubmitRequest) (*ComplianceRequest, error) {
	if err := s.authorizer.Authorize(ctx, actor, authz.PermComplianceSubmit); err != nil {
		return nil, err
	}
	if !in.RequestType.IsValid() {
		return nil, apperr.Validation("request_type", "must be one of identity_document, tax_document, business_registration")
	}
	document := strings.TrimSpace(in.Document)
	if document == "" {
		return nil, apperr.Validation("document", "is required")
	}
	if len(document) > s.maxDocumentBytes {
		return nil, apperr.Validation("document", fmt.Sprintf("must be at most %d bytes", s.maxDocumentBytes))
	}

	open, err := s.repo.FindOpenRequest(ctx, actor.UserID, in.RequestType)
	if err != nil {
		return nil, err
	}
	if err := classifyOpen(open); err != nil {
		return nil, err
	}

	documentURL, err := s.documents.Store(ctx, actor.UserID.String(), string(in.RequestType), document)
	if errors.Is(err, storage.ErrMalformedDataURI) {
		return nil, apperr.Validation("document", "is not a valid data URI")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	now := s.now().UTC()
	req := &ComplianceRequest{
		UserID:       actor.UserID,
		RequestType:  in.RequestType,
		Status:       StatusPending,
		DocumentURL:  documentURL,
		DocumentName: fmt.Sprintf("%s_%d", in.RequestType, now.UnixMilli()),
		CreatedAt:    now,
	}

	var insertErr error
	err = s.repo.Transaction(ctx, func(repo Repository) error {
		if insertErr = repo.CreateRequest(ctx, req); insertErr != nil {
			return insertErr
		}
		return repo.AppendAudit(ctx, s.auditEntry(ctx, actor, audit.ActionComplianceSubmit, req.ID, datatypes.JSONMap{
			"request_type":  string(req.RequestType),
			"document_name": req.DocumentName,
		}))
	})
	if err != nil {
		if insertErr != nil {
			// A concurrent submission won the open-request index.
			if open, findErr := s.repo.FindOpenRequest(ctx, actor.UserID, in.RequestType); findErr == nil {
				if conflict := classifyOpen(open); conflict != nil {
					return nil, conflict
				}
			}
		}
		return nil, err
	}

	s.revalidator.Revalidate(ctx, cache.SettingsKey(actor.UserID), cache.AdminQueueKey, cache.AdminDashboardKey)

	s.logger.Info("Compliance request submitted",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("request_type", string(req.RequestType)))

	return req, nil
}

func classifyOpen(open *ComplianceRequest) error {
	if open == nil {
		return nil
	}
	if open.Status == StatusApproved {
		return ErrAlreadyVerified
	}
	return ErrReviewPending
}

// Approve resolves a pending request and clears the owner's compliance
// suspension, whatever their rejection count.
func (s *Service) Approve(ctx context.Context, reviewer *auth.Session, requestID uuid.UUID) (*ComplianceRequest, error) {
	if err := s.authorizer.Authorize(ctx, reviewer, authz.PermComplianceReview); err != nil {
		return nil, err
	}

	var wasSuspended bool
	req, owner, err := s.review(ctx, reviewer, requestID, StatusApproved, "", func(repo Repository, req *ComplianceRequest, ownerSuspended bool) (datatypes.JSONMap, error) {
		wasSuspended = ownerSuspended
		if err := repo.SetComplianceSuspended(ctx, req.UserID, false); err != nil {
			return nil, err
		}
		return datatypes.JSONMap{
			"request_type":  string(req.RequestType),
			"was_suspended": ownerSuspended,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Compliance request approved",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("reviewer_id", reviewer.UserID.String()),
		zap.Bool("was_suspended", wasSuspended))
	s.notify(ctx, owner, req, false)
	return req, nil
}

// Reject resolves a pending request with a reason. When the owner's rejected
// count reaches RejectionSuspensionThreshold they are compliance suspended.
func (s *Service) Reject(ctx context.Context, reviewer *auth.Session, requestID uuid.UUID, reason string) (*ComplianceRequest, error) {
	if err := s.authorizer.Authorize(ctx, reviewer, authz.PermComplianceReview); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason", "is required")
	}

	var total int64
	var suspended bool
	req, owner, err := s.review(ctx, reviewer, requestID, StatusRejected, reason, func(repo Repository, req *ComplianceRequest, _ bool) (datatypes.JSONMap, error) {
		var err error
		total, err = repo.CountRejected(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		suspended = total >= RejectionSuspensionThreshold
		if suspended {
			if err := repo.SetComplianceSuspended(ctx, req.UserID, true); err != nil {
				return nil, err
			}
		}
		return datatypes.JSONMap{
			"request_type":     string(req.RequestType),
			"reason":           reason,
			"total_rejections": total,
			"suspended":        suspended,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Compliance request rejected",
		zap.String("request_id", req.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("reviewer_id", reviewer.UserID.String()),
		zap.Int64("total_rejections", total),
		zap.Bool("suspended", suspended))
	s.notify(ctx, owner, req, suspended)
	return req, nil
}

// review runs one resolution in a transaction: lock the owner row, resolve
// the request if still pending, apply the flag change and append the audit row.
func (s *Service) review(
	ctx context.Context,
	reviewer *auth.Session,
	requestID uuid.UUID,
	status Status,
	notes string,
	apply func(repo Repository, req *ComplianceRequest, ownerSuspended bool) (datatypes.JSONMap, error),
) (*ComplianceRequest, *users.User, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		return nil, nil, apperr.ErrNotFound
	}
	if !reviewTransitions.CanTransition(string(req.Status), string(status)) {
		return nil, nil, ErrAlreadyReviewed
	}

	reviewedAt := s.now().UTC()
	var owner *users.User
	err = s.repo.Transaction(ctx, func(repo Repository) error {
		var err error
		owner, err = repo.LockUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if owner == nil {
			return apperr.ErrNotFound
		}

		resolved, err := repo.ResolveRequest(ctx, req.ID, status, reviewer.UserID, notes, reviewedAt)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrAlreadyReviewed
		}

		details, err := apply(repo, req, owner.ComplianceSuspended)
		if err != nil {
			return err
		}

		action := audit.ActionComplianceApprove
		if status == StatusRejected {
			action = audit.ActionComplianceReject
		}
		return repo.AppendAudit(ctx, s.auditEntry(ctx, reviewer, action, req.ID, details))
	})
	if err != nil {
		return nil, nil, err
	}

	req.Status = status
	req.AdminNotes = notes
	req.ReviewedBy = &reviewer.UserID
	req.ReviewedAt = &reviewedAt

	s.revalidator.Revalidate(ctx, cache.SettingsKey(req.UserID), cache.AdminQueueKey, cache.AdminDashboardKey)
	return req, owner, nil
}

// notify runs after commit; a failed notice is logged and the review stands
func (s *Service) notify(ctx context.Context, owner *users.User, req *ComplianceRequest, suspended bool) {
	if s.notifier == nil || owner == nil {
		return
	}
	if err := s.notifier.ReviewCompleted(ctx, owner, req, suspended); err != nil {
		s.logger.Warn("Failed to send review notice",
			zap.String("request_id", req.ID.String()),
			zap.Error(err))
	}
}

// ListForUser returns the session user's requests newest first, with
// superseded rejections hidden.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]ComplianceRequest, error) {
	requests, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return VisibleHistory(requests), nil
}

// ListRequests is the unfiltered review queue for the admin console
func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) (*RequestList, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperr.Validation("status", "must be one of pending, approved, rejected")
	}
	if filter.RequestType != nil && !filter.RequestType.IsValid() {
		return nil, apperr.Validation("request_type", "unknown request type")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 500 {
		filter.PageSize = 50
	}

	requests, total, err := s.repo.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &RequestList{
		Requests: requests,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*ComplianceRequest, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.ErrNotFound
	}
	return req, nil
}

// DocumentLink returns a URL a reviewer can open for the request's document
func (s *Service) DocumentLink(ctx context.Context, id uuid.UUID) (string, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return "", err
	}
	link, err := s.documents.Resolve(ctx, req.DocumentURL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve document: %w", err)
	}
	return link, nil
}

func (s *Service) auditEntry(ctx context.Context, actor *auth.Session, action audit.Action, id uuid.UUID, details datatypes.JSONMap) *audit.Log {
	if actor.ImpersonatorID != nil {
		details["impersonator_id"] = actor.ImpersonatorID.String()
	}
	return &audit.Log{
		ActorUserID: actor.UserID,
		Action:      action,
		Resource:    audit.ResourceComplianceRequest,
		ResourceID:  id,
		Details:     details,
		IPAddress:   audit.IPFrom(ctx),
		CreatedAt:   s.now().UTC(),
	}
}
