package notifysitingresults

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockTopic struct {
	mock.Mock
}

func (m *MockTopic) PublishMessage(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error) {
	args := m.Called(ctx, topicARN, subject, message, attrs)
	return args.String(0), args.Error(1)
}

type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	args := m.Called(ctx, from, to, subject, body)
	return args.String(0), args.Error(1)
}

// ==========================
// Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "h2-siting-process",
		ElementId:          "Activity_NotifyResults",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}
	return entities.Job{ActivatedJob: activatedJob}
}

func enabledConfig() *Config {
	cfg := DefaultConfig()
	cfg.SNSEnabled = true
	cfg.TopicARN = "arn:aws:sns:us-east-1:123456789012:siting-results"
	cfg.EmailEnabled = true
	cfg.FromEmail = "siting@example.com"
	cfg.DefaultRecipients = []string{"planning@example.com"}
	cfg.MaxListedSites = 2
	return cfg
}

func recommendations(n int) []models.Recommendation {
	recs := make([]models.Recommendation, n)
	for i := range recs {
		recs[i] = models.Recommendation{
			ID:   fmt.Sprintf("rec-%d", i+1),
			Rank: i + 1,
			SiteScore: models.SiteScore{
				Latitude:            30 + float64(i),
				Longitude:           -100,
				TotalScore:          80 - float64(i),
				ViabilityRating:     models.ViabilityGood,
				RecommendedCapacity: 45,
				EstimatedCost:       210.5,
				KeyFactors:          []string{"Excellent renewable energy resources"},
			},
		}
	}
	return recs
}

func newTestHandler(t *testing.T, cfg *Config, topic TopicPublisher, email EmailSender) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{Config: cfg, Topic: topic, Email: email, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

// ==========================
// Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, DefaultConfig(), nil, nil)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "generator output",
			variables: map[string]interface{}{"runId": "run-1", "recommendations": recommendations(3), "count": 3},
		},
		{
			name:      "empty run",
			variables: map[string]interface{}{"runId": "run-2", "recommendations": []interface{}{}},
		},
		{
			name:      "missing run id",
			variables: map[string]interface{}{"recommendations": []interface{}{}},
			wantErr:   true,
		},
		{
			name: "recommendation without rank",
			variables: map[string]interface{}{
				"runId":           "run-3",
				"recommendations": []map[string]interface{}{{"latitude": 1, "longitude": 1, "totalScore": 50}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(5, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.Normalize(err).Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Execute_SendsOnBothChannels(t *testing.T) {
	cfg := enabledConfig()
	topic, email := new(MockTopic), new(MockEmail)

	topic.On("PublishMessage", mock.Anything, cfg.TopicARN, "Hydrogen siting run: 3 recommended sites",
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "Run: run-7") &&
				strings.Contains(body, "#1  30.00, -100.00  score 80.00 (Good)") &&
				strings.Contains(body, "...and 1 more.") &&
				!strings.Contains(body, "#3 ")
		}),
		map[string]string{"runId": "run-7", "count": "3"},
	).Return("sns-msg-1", nil).Once()
	email.On("SendTextEmail", mock.Anything, cfg.FromEmail, []string{"planning@example.com"},
		"Hydrogen siting run: 3 recommended sites", mock.Anything).Return("ses-msg-1", nil).Once()

	h := newTestHandler(t, cfg, topic, email)
	out, err := h.Execute(context.Background(), &Input{RunID: "run-7", Recommendations: recommendations(3)})
	require.NoError(t, err)

	assert.True(t, out.Notified)
	assert.Equal(t, []string{"sns", "email"}, out.Channels)
	assert.Equal(t, "sns-msg-1", out.SNSMessageID)
	assert.Equal(t, "ses-msg-1", out.EmailMessageID)
	assert.WithinDuration(t, time.Now(), out.SentAt, time.Minute)
	topic.AssertExpectations(t)
	email.AssertExpectations(t)
}

func TestService_Execute_InputRecipientsOverrideDefaults(t *testing.T) {
	cfg := enabledConfig()
	cfg.SNSEnabled = false
	email := new(MockEmail)
	email.On("SendTextEmail", mock.Anything, cfg.FromEmail, []string{"a@example.com", "b@example.org"},
		"Hydrogen siting run: no viable sites found", mock.Anything).Return("ses-2", nil)

	out, err := newTestHandler(t, cfg, nil, email).Execute(context.Background(), &Input{
		RunID:      "run-8",
		Recipients: []string{"a@example.com", "b@example.org"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, out.Channels)
}

func TestService_Execute_NothingEnabled(t *testing.T) {
	out, err := newTestHandler(t, DefaultConfig(), nil, nil).Execute(context.Background(), &Input{RunID: "run-9"})
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Empty(t, out.Channels)
}

func TestService_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		setup func(*MockTopic, *MockEmail)
		code  errors.ErrorCode
	}{
		{
			name:  "invalid recipient",
			input: Input{RunID: "r", Recipients: []string{"not-an-email"}},
			setup: func(*MockTopic, *MockEmail) {},
			code:  errors.ErrCodeInvalidInput,
		},
		{
			name:  "sns failure",
			input: Input{RunID: "r"},
			setup: func(topic *MockTopic, _ *MockEmail) {
				topic.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", stderrors.New("throttled"))
			},
			code: errors.ErrCodeNotificationSendFailed,
		},
		{
			name:  "email failure",
			input: Input{RunID: "r"},
			setup: func(topic *MockTopic, email *MockEmail) {
				topic.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("id", nil)
				email.On("SendTextEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", stderrors.New("MessageRejected"))
			},
			code: errors.ErrCodeNotificationSendFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, email := new(MockTopic), new(MockEmail)
			tt.setup(topic, email)

			_, err := newTestHandler(t, enabledConfig(), topic, email).Execute(context.Background(), &tt.input)
			require.Error(t, err)
			stdErr := errors.Normalize(err)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "all enabled", mutate: func(c *Config) { *c = *enabledConfig() }},
		{name: "sns without topic", mutate: func(c *Config) { c.SNSEnabled = true }, wantErr: true},
		{name: "email without sender", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
		{name: "zero listed sites", mutate: func(c *Config) { c.MaxListedSites = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{}
	appCfg.Notifications.SNS.Enabled = true
	appCfg.Notifications.SNS.TopicARN = "arn:aws:sns:eu-west-1:1:topic"
	appCfg.Notifications.Email.Enabled = true
	appCfg.Notifications.Email.FromEmail = "from@example.com"
	appCfg.Notifications.Email.Recipients = []string{"to@example.com"}

	cfg := NewConfig(appCfg)
	assert.True(t, cfg.SNSEnabled)
	assert.Equal(t, "arn:aws:sns:eu-west-1:1:topic", cfg.TopicARN)
	assert.Equal(t, []string{"to@example.com"}, cfg.DefaultRecipients)
	assert.NoError(t, cfg.Validate())
}
