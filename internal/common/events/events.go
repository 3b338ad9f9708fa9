// internal/common/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"

	"github.com/segmentio/kafka-go"
)

const EventRecommendationsGenerated = "siting.recommendations.generated"

// maxEventSites bounds the payload; consumers fetch the full run from the index.
const maxEventSites = 10

type EventSite struct {
	ID              string                 `json:"id"`
	Rank            int                    `json:"rank"`
	Latitude        float64                `json:"latitude"`
	Longitude       float64                `json:"longitude"`
	TotalScore      float64                `json:"totalScore"`
	ViabilityRating models.ViabilityRating `json:"viabilityRating"`
}

// RecommendationsGenerated is published once per successful recommendation run.
type RecommendationsGenerated struct {
	Type        string                `json:"type"`
	RunID       string                `json:"runId"`
	BoundingBox models.BoundingBox    `json:"boundingBox"`
	Weights     models.ScoringWeights `json:"weights"`
	GridPoints  int                   `json:"gridPoints"`
	Failed      int                   `json:"failed"`
	Count       int                   `json:"count"`
	TopSites    []EventSite           `json:"topSites"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

func NewRecommendationsGenerated(result *recommend.Result, box models.BoundingBox) RecommendationsGenerated {
	n := min(len(result.Recommendations), maxEventSites)
	sites := make([]EventSite, n)
	for i, r := range result.Recommendations[:n] {
		sites[i] = EventSite{
			ID:              r.ID,
			Rank:            r.Rank,
			Latitude:        r.Latitude,
			Longitude:       r.Longitude,
			TotalScore:      r.TotalScore,
			ViabilityRating: r.ViabilityRating,
		}
	}
	return RecommendationsGenerated{
		Type:        EventRecommendationsGenerated,
		RunID:       result.RunID,
		BoundingBox: box,
		Weights:     result.Profile.Weights,
		GridPoints:  result.GridPoints,
		Failed:      result.Failed,
		Count:       len(result.Recommendations),
		TopSites:    sites,
		GeneratedAt: result.GeneratedAt,
	}
}

// Publisher announces finished recommendation runs.
type Publisher interface {
	PublishRecommendations(ctx context.Context, event RecommendationsGenerated) error
	Close() error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher writes synchronously, partitioned by run id.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
	}, timeout)
}

func NewKafkaPublisherWithWriter(w MessageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: timeout}
}

func (p *KafkaPublisher) PublishRecommendations(ctx context.Context, event RecommendationsGenerated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
		Time: event.GeneratedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishRecommendations(context.Context, RecommendationsGenerated) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
