package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"taxdesk/compliance/compliance-backend/internal/compliance"
	"taxdesk/compliance/compliance-backend/internal/users"
)

const reviewEventType = "compliance.request_reviewed"

// ReviewEvent is published for downstream consumers such as billing
type ReviewEvent struct {
	Type        string                 `json:"type"`
	RequestID   uuid.UUID              `json:"request_id"`
	UserID      uuid.UUID              `json:"user_id"`
	RequestType compliance.RequestType `json:"request_type"`
	Status      compliance.Status      `json:"status"`
	Suspended   bool                   `json:"suspended"`
	ReviewedAt  *time.Time             `json:"reviewed_at,omitempty"`
}

// SNSAPI is the part of the SNS client used here
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EventPublisher publishes review outcomes to an SNS topic
type EventPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewEventPublisher(client SNSAPI, topicARN string) *EventPublisher {
	return &EventPublisher{client: client, topicARN: topicARN}
}

// NewSNSClient loads the default AWS credential chain for region
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func (p *EventPublisher) ReviewCompleted(ctx context.Context, owner *users.User, req *compliance.ComplianceRequest, suspended bool) error {
	payload, err := json.Marshal(ReviewEvent{
		Type:        reviewEventType,
		RequestID:   req.ID,
		UserID:      owner.ID,
		RequestType: req.RequestType,
		Status:      req.Status,
		Suspended:   suspended,
		ReviewedAt:  req.ReviewedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode review event: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type":   {DataType: aws.String("String"), StringValue: aws.String(reviewEventType)},
			"status": {DataType: aws.String("String"), StringValue: aws.String(string(req.Status))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish review event: %w", err)
	}
	return nil
}

// Fanout calls every notifier and joins their errors
type Fanout []compliance.Notifier

func (f Fanout) ReviewCompleted(ctx context.Context, owner *users.User, req *compliance.ComplianceRequest, suspended bool) error {
	var errs []error
	for _, n := range f {
		if err := n.ReviewCompleted(ctx, owner, req, suspended); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
