package notifysitingresults

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/common/validation"
)

type TopicPublisher interface {
	PublishMessage(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

type EmailSender interface {
	SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

type Service struct {
	config *Config
	topic  TopicPublisher
	email  EmailSender
	logger logger.Logger
	now    func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		topic:  deps.Topic,
		email:  deps.Email,
		logger: deps.Logger,
		now:    time.Now,
	}
}

// Execute sends the summary on every enabled channel. A channel that is disabled or has no
// client configured is skipped; a send failure fails the whole notification.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	recipients := input.Recipients
	if len(recipients) == 0 {
		recipients = s.config.DefaultRecipients
	}
	for _, r := range recipients {
		if !validation.ValidateEmail(r) {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("invalid recipient email address: %s", r))
		}
	}

	subject := s.subject(input)
	body := s.body(input)
	out := &Output{Channels: []string{}}

	if s.config.SNSEnabled && s.topic != nil {
		id, err := s.topic.PublishMessage(ctx, s.config.TopicARN, subject, body, map[string]string{
			"runId": input.RunID,
			"count": strconv.Itoa(len(input.Recommendations)),
		})
		if err != nil {
			return nil, errors.NewNotificationSendFailedError("sns", err)
		}
		out.SNSMessageID = id
		out.Channels = append(out.Channels, "sns")
	}

	if s.config.EmailEnabled && s.email != nil && len(recipients) > 0 {
		id, err := s.email.SendTextEmail(ctx, s.config.FromEmail, recipients, subject, body)
		if err != nil {
			return nil, errors.NewNotificationSendFailedError("email", err)
		}
		out.EmailMessageID = id
		out.Channels = append(out.Channels, "email")
	}

	out.Notified = len(out.Channels) > 0
	out.SentAt = s.now().UTC()

	s.logger.Info("siting results notification processed", map[string]interface{}{
		"runId":      input.RunID,
		"channels":   out.Channels,
		"recipients": len(recipients),
	})
	return out, nil
}

func (s *Service) subject(input *Input) string {
	n := len(input.Recommendations)
	switch n {
	case 0:
		return "Hydrogen siting run: no viable sites found"
	case 1:
		return "Hydrogen siting run: 1 recommended site"
	default:
		return fmt.Sprintf("Hydrogen siting run: %d recommended sites", n)
	}
}

func (s *Service) body(input *Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", input.RunID)
	if box := input.BoundingBox; box != nil {
		fmt.Fprintf(&b, "Region: %.2f,%.2f to %.2f,%.2f\n", box.South, box.West, box.North, box.East)
	}
	b.WriteString("\n")

	if len(input.Recommendations) == 0 {
		b.WriteString("No candidate site scored above the minimum threshold.\n")
		return b.String()
	}

	listed := input.Recommendations
	if len(listed) > s.config.MaxListedSites {
		listed = listed[:s.config.MaxListedSites]
	}
	for _, r := range listed {
		fmt.Fprintf(&b, "#%d  %.2f, %.2f  score %.2f (%s)  %.0f MW, est. $%.2fM\n",
			r.Rank, r.Latitude, r.Longitude, r.TotalScore, r.ViabilityRating,
			r.RecommendedCapacity, r.EstimatedCost)
		if len(r.KeyFactors) > 0 {
			fmt.Fprintf(&b, "    %s\n", strings.Join(r.KeyFactors, "; "))
		}
	}
	if rest := len(input.Recommendations) - len(listed); rest > 0 {
		fmt.Fprintf(&b, "\n...and %d more.\n", rest)
	}
	return b.String()
}
