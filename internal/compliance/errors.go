package compliance

import "taxdesk/compliance/compliance-backend/internal/apperr"

var (
	ErrAlreadyVerified = apperr.New(apperr.KindConflict, "already_verified",
		"this document type is already verified")
	ErrReviewPending = apperr.New(apperr.KindConflict, "review_pending",
		"a submission for this document type is awaiting review")
	ErrAlreadyReviewed = apperr.New(apperr.KindConflict, "already_reviewed",
		"this request has already been reviewed")
)
