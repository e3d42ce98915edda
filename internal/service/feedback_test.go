package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tzelon/thunder-mail/internal/model"
)

const bounceEvent = `{
	"eventType": "Bounce",
	"mail": {"timestamp": "2026-08-01T12:00:00Z", "messageId": "msg-1"},
	"bounce": {
		"timestamp": "2026-08-01T12:00:05Z",
		"bounceType": "Permanent",
		"bounceSubType": "General"
	}
}`

func feedbackFixture(t *testing.T) (*FeedbackService, *mockActivityRepo) {
	t.Helper()
	acts := newMockActivityRepo()
	require.NoError(t, acts.CreatePending([]*model.Activity{{TrackingID: "tid-1", Recipient: "amos@example.org", OrgID: 1}}))
	require.NoError(t, acts.AttachMessageID("tid-1", "msg-1"))
	return &FeedbackService{Activities: acts, Logger: zerolog.Nop()}, acts
}

func TestHandleMessageBounce(t *testing.T) {
	svc, acts := feedbackFixture(t)

	require.NoError(t, svc.HandleMessage([]byte(bounceEvent)))

	history := acts.history["tid-1"]
	require.Len(t, history, 2) // "creating" plus the bounce
	entry := history[1]
	assert.Equal(t, model.StatusBounce, entry.Status)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 5, 0, time.UTC), entry.OccurredAt)
	assert.Equal(t, "Permanent", entry.Meta["bounceType"])
	assert.Equal(t, "General", entry.Meta["bounceSubType"])

	// feedback never flips the open/click flags
	assert.False(t, acts.opened["tid-1"])
	assert.False(t, acts.clicked["tid-1"])
}

func TestHandleMessageDelivery(t *testing.T) {
	svc, acts := feedbackFixture(t)

	body := `{
		"eventType": "Delivery",
		"mail": {"timestamp": "2026-08-01T12:00:00Z", "messageId": "msg-1"},
		"delivery": {
			"timestamp": "2026-08-01T12:00:03Z",
			"processingTimeMillis": 1247,
			"smtpResponse": "250 2.0.0 OK",
			"reportingMTA": "a1-2.smtp-out.example.com"
		}
	}`
	require.NoError(t, svc.HandleMessage([]byte(body)))

	history := acts.history["tid-1"]
	require.Len(t, history, 2)
	entry := history[1]
	assert.Equal(t, model.StatusDelivery, entry.Status)
	assert.Equal(t, int64(1247), entry.Meta["processingTimeMillis"])
	assert.Equal(t, "250 2.0.0 OK", entry.Meta["smtpResponse"])
	assert.Equal(t, "a1-2.smtp-out.example.com", entry.Meta["reportingMTA"])
}

func TestHandleMessageRejectUsesCurrentTime(t *testing.T) {
	svc, acts := feedbackFixture(t)

	fixed := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	body := `{
		"eventType": "Reject",
		"mail": {"timestamp": "2026-08-01T12:00:00Z", "messageId": "msg-1"},
		"reject": {"reason": "Bad content"}
	}`
	require.NoError(t, svc.HandleMessage([]byte(body)))

	history := acts.history["tid-1"]
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusReject, history[1].Status)
	assert.Equal(t, fixed, history[1].OccurredAt)
	assert.Equal(t, "Bad content", history[1].Meta["reason"])
}

func TestHandleMessageSNSEnvelope(t *testing.T) {
	svc, acts := feedbackFixture(t)

	wrapped := `{"Message": "{\"eventType\":\"Send\",\"mail\":{\"timestamp\":\"2026-08-01T12:00:00Z\",\"messageId\":\"msg-1\"}}"}`
	require.NoError(t, svc.HandleMessage([]byte(wrapped)))

	history := acts.history["tid-1"]
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusSend, history[1].Status)
}

func TestHandleMessageUnknownEventTypeDiscarded(t *testing.T) {
	svc, acts := feedbackFixture(t)

	body := `{"eventType": "Click", "mail": {"timestamp": "2026-08-01T12:00:00Z", "messageId": "msg-1"}}`
	require.NoError(t, svc.HandleMessage([]byte(body)))

	assert.Len(t, acts.history["tid-1"], 1) // only the original "creating" entry
}

func TestHandleMessageUnknownMessageID(t *testing.T) {
	svc, acts := feedbackFixture(t)

	body := `{
		"eventType": "Send",
		"mail": {"timestamp": "2026-08-01T12:00:00Z", "messageId": "never-seen"}
	}`
	require.NoError(t, svc.HandleMessage([]byte(body)))
	assert.Len(t, acts.history["tid-1"], 1)
}

func TestHandleMessageMalformedBodyAcked(t *testing.T) {
	svc, acts := feedbackFixture(t)

	assert.NoError(t, svc.HandleMessage([]byte("not json at all")))
	assert.NoError(t, svc.HandleMessage([]byte(`{"mail": {"messageId": "msg-1"}}`))) // no eventType
	assert.NoError(t, svc.HandleMessage([]byte(`{"eventType": "Bounce", "mail": {"messageId": "msg-1"}}`))) // no bounce block
	assert.Len(t, acts.history["tid-1"], 1)
}
