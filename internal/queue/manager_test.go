package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tzelon/thunder-mail/internal/model"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []Message
	acked    []string
	closed   bool
}

func (q *fakeQueue) Receive(ctx context.Context) ([]Message, error) {
	q.mu.Lock()
	batch := q.messages
	q.messages = nil
	q.mu.Unlock()

	if len(batch) > 0 {
		return batch, nil
	}
	// emulate a long poll that waits out its timeout empty
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (q *fakeQueue) Ack(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, msg.Receipt)
	return nil
}

func (q *fakeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

type fakeOrgRepo struct {
	orgs []*model.Org
}

func (m *fakeOrgRepo) Create(org *model.Org) error { return nil }

func (m *fakeOrgRepo) GetByAPIKey(apiKeyUUID string) (*model.Org, error) { return nil, nil }

func (m *fakeOrgRepo) GetByDomain(domain string) (*model.Org, error) { return nil, nil }

func (m *fakeOrgRepo) UpdateByDomain(d string, f model.OrgUpdate) error { return nil }

func (m *fakeOrgRepo) ListAll() ([]*model.Org, error) { return m.orgs, nil }

func (m *fakeOrgRepo) IncrementSentCount(orgID, n int) error { return nil }

type recordingHandler struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (h *recordingHandler) HandleMessage(body []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies = append(h.bodies, string(body))
	return h.err
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

func consumerOrg(id int, domain string) *model.Org {
	return &model.Org{
		ID:                 id,
		Domain:             domain,
		SESAccessKeyID:     "AKIA" + domain,
		SESSecretAccessKey: "secret",
		SESRegion:          "us-east-1",
		SQSUrl:             "https://sqs.example.com/" + domain,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestManagerDeliversAndAcks(t *testing.T) {
	q := &fakeQueue{messages: []Message{
		{Body: []byte("one"), Receipt: "r1"},
		{Body: []byte("two"), Receipt: "r2"},
	}}
	handler := &recordingHandler{}
	m := &Manager{
		Orgs:    &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme")}},
		Queues:  func(org *model.Org) (NotificationQueue, error) { return q, nil },
		Handler: handler,
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	waitFor(t, func() bool { return len(handler.seen()) == 2 })
	m.Stop()

	assert.Equal(t, []string{"one", "two"}, handler.seen())
	q.mu.Lock()
	defer q.mu.Unlock()
	assert.Equal(t, []string{"r1", "r2"}, q.acked)
	assert.True(t, q.closed)
}

func TestManagerAcksEvenWhenHandlerFails(t *testing.T) {
	q := &fakeQueue{messages: []Message{{Body: []byte("bad"), Receipt: "r1"}}}
	handler := &recordingHandler{err: errors.New("db down")}
	m := &Manager{
		Orgs:    &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme")}},
		Queues:  func(org *model.Org) (NotificationQueue, error) { return q, nil },
		Handler: handler,
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	waitFor(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.acked) == 1
	})
	m.Stop()
}

func TestManagerStartIsIdempotent(t *testing.T) {
	factoryCalls := 0
	m := &Manager{
		Orgs: &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme")}},
		Queues: func(org *model.Org) (NotificationQueue, error) {
			factoryCalls++
			return &fakeQueue{}, nil
		},
		Handler: &recordingHandler{},
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1, factoryCalls)
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := &Manager{Logger: zerolog.Nop()}
	m.Stop() // must not panic or block
}

func TestManagerSkipsOrgsWithoutQueueSettings(t *testing.T) {
	noQueue := &model.Org{ID: 2, Domain: "bare.example"}
	factoryCalls := 0
	m := &Manager{
		Orgs: &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme"), noQueue}},
		Queues: func(org *model.Org) (NotificationQueue, error) {
			factoryCalls++
			return &fakeQueue{}, nil
		},
		Handler: &recordingHandler{},
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1, factoryCalls)
	m.Stop()
}

func TestManagerSkipsOrgsWithBadQueueSettings(t *testing.T) {
	good := &fakeQueue{}
	m := &Manager{
		Orgs: &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme"), consumerOrg(2, "broken")}},
		Queues: func(org *model.Org) (NotificationQueue, error) {
			if org.Domain == "broken" {
				return nil, errors.New("bad credentials")
			}
			return good, nil
		},
		Handler: &recordingHandler{},
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	m.Stop()

	good.mu.Lock()
	defer good.mu.Unlock()
	assert.True(t, good.closed)
}

func TestManagerRestart(t *testing.T) {
	m := &Manager{
		Orgs:    &fakeOrgRepo{orgs: []*model.Org{consumerOrg(1, "acme")}},
		Queues:  func(org *model.Org) (NotificationQueue, error) { return &fakeQueue{}, nil },
		Handler: &recordingHandler{},
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Restart(context.Background()))
	m.Stop()
}
