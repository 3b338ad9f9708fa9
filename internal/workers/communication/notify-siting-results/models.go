package notifysitingresults

import (
	"time"

	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"
)

// Input is the output of generate-site-recommendations plus optional recipients.
type Input struct {
	RunID           string                  `json:"runId"`
	Recommendations []models.Recommendation `json:"recommendations"`
	BoundingBox     *models.BoundingBox     `json:"boundingBox,omitempty"`
	Recipients      []string                `json:"recipients,omitempty"`
}

type Output struct {
	Notified       bool      `json:"notified"`
	Channels       []string  `json:"channels"`
	SNSMessageID   string    `json:"snsMessageId,omitempty"`
	EmailMessageID string    `json:"emailMessageId,omitempty"`
	SentAt         time.Time `json:"sentAt"`
}

type ServiceDependencies struct {
	Topic  TopicPublisher
	Email  EmailSender
	Logger logger.Logger
}
