package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/repository"
)

// Handler processes one raw notification body. Implementations must be
// idempotent by effect: the channel may redeliver.
type Handler interface {
	HandleMessage(body []byte) error
}

// Manager supervises one feedback poller per organization with valid
// provider credentials and a configured queue. Pollers are cancellable
// tasks keyed by org id; Stop tears all of them down before returning and
// is safe when some already exited on their own.
type Manager struct {
	Orgs    repository.OrgRepositoryInterface
	Queues  Factory
	Handler Handler
	Logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Start spawns the pollers. A no-op when already running. Orgs with
// invalid or missing queue settings are skipped, not fatal.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.Logger.Debug().Msg("consumers already started, ignoring start call")
		return nil
	}

	orgs, err := m.Orgs.ListAll()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	started := 0
	for _, org := range orgs {
		if !org.HasQueueSettings() {
			continue
		}
		q, err := m.Queues(org)
		if err != nil {
			m.Logger.Warn().Err(err).Str("org", org.Domain).Msg("org has invalid queue settings, skipping consumer")
			continue
		}

		started++
		m.wg.Add(1)
		go m.poll(runCtx, org.ID, org.Domain, q)
	}

	m.Logger.Info().Int("consumers", started).Msg("feedback consumers started")
	return nil
}

// Stop cancels every poller and waits for all of them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.Logger.Info().Msg("feedback consumers stopped")
}

// Restart is Stop followed by Start.
func (m *Manager) Restart(ctx context.Context) error {
	m.Stop()
	return m.Start(ctx)
}

// poll is one org's long-poll loop. Handler and receive failures are
// logged and never kill the loop; every received message is acknowledged,
// parse failures included, to avoid poison-message redelivery.
func (m *Manager) poll(ctx context.Context, orgID int, domain string, q NotificationQueue) {
	defer m.wg.Done()
	defer q.Close()

	logger := m.Logger.With().Int("org_id", orgID).Str("org", domain).Logger()
	logger.Debug().Msg("feedback poller running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := q.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("receive failed, backing off")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := m.Handler.HandleMessage(msg.Body); err != nil {
				logger.Error().Err(err).Msg("feedback handler failed")
			}
			if err := q.Ack(ctx, msg); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("ack failed")
			}
		}
	}
}
