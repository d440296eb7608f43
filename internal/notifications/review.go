package notifications

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/users"
)

var (
	approvedSubject = template.Must(template.New("approved_subject").Parse(
		`Your {{.RequestType}} was approved`))
	approvedBody = template.Must(template.New("approved_body").Parse(
		`Hi {{.Name}},

Your {{.RequestType}} has been reviewed and approved. No further action is needed.
`))
	rejectedSubject = template.Must(template.New("rejected_subject").Parse(
		`Your {{.RequestType}} needs attention`))
	rejectedBody = template.Must(template.New("rejected_body").Parse(
		`Hi {{.Name}},

Your {{.RequestType}} could not be accepted.

Reason: {{.Reason}}

You can upload a new document from your account settings.
{{- if .Suspended}}

Your account is restricted until one of your documents is approved.{{end}}
`))
)

// ReviewNotifier emails the owner of a compliance request once it is resolved
type ReviewNotifier struct {
	sender Sender
	logger *zap.Logger
}

func NewReviewNotifier(sender Sender, logger *zap.Logger) *ReviewNotifier {
	return &ReviewNotifier{sender: sender, logger: logger}
}

func (n *ReviewNotifier) ReviewCompleted(ctx context.Context, owner *users.User, req *compliance.ComplianceRequest, suspended bool) error {
	msg, err := renderReview(owner, req, suspended)
	if err != nil {
		return err
	}

	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return err
	}
	n.logger.Info("Review notice sent",
		zap.String("request_id", req.ID.String()),
		zap.String("status", string(req.Status)),
		zap.String("message_id", id))
	return nil
}

func renderReview(owner *users.User, req *compliance.ComplianceRequest, suspended bool) (Message, error) {
	subject, body := approvedSubject, approvedBody
	switch req.Status {
	case compliance.StatusApproved:
	case compliance.StatusRejected:
		subject, body = rejectedSubject, rejectedBody
	default:
		return Message{}, fmt.Errorf("no notice for status %q", req.Status)
	}

	data := reviewNotice{
		Name:        owner.Name,
		RequestType: strings.ReplaceAll(string(req.RequestType), "_", " "),
		Reason:      req.AdminNotes,
		Suspended:   suspended,
	}
	if data.Name == "" {
		data.Name = owner.Email
	}

	var s, b bytes.Buffer
	if err := subject.Execute(&s, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := body.Execute(&b, data); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}
	return Message{To: owner.Email, Subject: s.String(), Body: b.String()}, nil
}
