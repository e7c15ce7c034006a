package whatsapp

import (
	"context"
	"sync"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainActivity "github.com/AzielCF/az-fleet/domains/activity"
	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainHealth "github.com/AzielCF/az-fleet/domains/health"
	"github.com/AzielCF/az-fleet/pkg/botqueue"
	"github.com/AzielCF/az-fleet/pkg/ledger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Broadcaster pushes worker transitions to the operator event stream.
type Broadcaster func(row domainBot.Bot, from, to domainBot.Status, reason string)

// WorkerInfo is a point-in-time snapshot of one live worker.
type WorkerInfo struct {
	BotID  string           `json:"bot_id"`
	Tenant string           `json:"tenant"`
	Phone  string           `json:"phone"`
	Status domainBot.Status `json:"status"`
}

// Supervisor owns the live worker map, one worker per bot id. All
// lifecycle operations for a single bot are serialized through the
// operation queue; distinct bots run in parallel.
type Supervisor struct {
	mu      sync.RWMutex
	workers map[string]Worker

	bots     domainBot.IBotUsecase
	activity domainActivity.IActivityUsecase
	ledger   *ledger.Ledger
	queue    *botqueue.OpQueue
	factory  WorkerFactory
	cfg      coreconfig.SupervisorConfig

	broadcast Broadcaster
}

// NewSupervisor wires the supervisor. A nil factory selects the
// production socket worker.
func NewSupervisor(bots domainBot.IBotUsecase, activity domainActivity.IActivityUsecase, led *ledger.Ledger, queue *botqueue.OpQueue, factory WorkerFactory, cfg coreconfig.SupervisorConfig) *Supervisor {
	if factory == nil {
		factory = NewSocketWorker
	}
	return &Supervisor{
		workers:  make(map[string]Worker),
		bots:     bots,
		activity: activity,
		ledger:   led,
		queue:    queue,
		factory:  factory,
		cfg:      cfg,
	}
}

// SetBroadcaster attaches the event-stream hook. Called once during
// wiring, before any worker starts.
func (s *Supervisor) SetBroadcaster(b Broadcaster) {
	s.broadcast = b
}

// Start brings a bot online on the automatic path: missing rows,
// unapproved bots and ledger-skipped bots are logged and skipped. It
// never returns an error; failures land in the ledger.
func (s *Supervisor) Start(ctx context.Context, botID string) {
	_ = s.queue.Do(ctx, botID, "start", func(ctx context.Context) error {
		s.startLocked(ctx, botID, false)
		return nil
	})
}

// ForceStart is the operator path: it attempts a start even for a bot
// the ledger marked as skipped, clearing the entry on success.
func (s *Supervisor) ForceStart(ctx context.Context, botID string) {
	_ = s.queue.Do(ctx, botID, "force-start", func(ctx context.Context) error {
		s.startLocked(ctx, botID, true)
		return nil
	})
}

// startLocked runs inside the bot's queue shard.
func (s *Supervisor) startLocked(ctx context.Context, botID string, force bool) {
	row, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		logrus.WithError(err).Warnf("[FLEET] Skipping start for bot %s: row not found", botID)
		return
	}
	if row.ApprovalStatus != domainBot.ApprovalApproved {
		logrus.Warnf("[FLEET] Skipping start for bot %s: approval status is %s", botID, row.ApprovalStatus)
		return
	}
	if !force && s.ledger.IsSkipped(botID) {
		logrus.Warnf("[FLEET] Skipping start for bot %s: marked as skipped after repeated failures", botID)
		return
	}

	s.mu.RLock()
	existing := s.workers[botID]
	s.mu.RUnlock()

	if existing != nil {
		if existing.Status() == domainBot.StatusOnline {
			logrus.Infof("[FLEET] Bot %s already online, resetting failure ledger", botID)
			_ = s.ledger.Clear(botID)
			return
		}
		logrus.Infof("[FLEET] Discarding stale worker for bot %s (status %s)", botID, existing.Status())
		_ = existing.Stop(ctx)
		s.sleep(ctx, s.quiesceDelay())
		s.mu.Lock()
		delete(s.workers, botID)
		s.mu.Unlock()
	}

	// Reload for the freshest credentials and settings.
	row, err = s.bots.GetByID(ctx, botID)
	if err != nil {
		logrus.WithError(err).Warnf("[FLEET] Bot %s disappeared during start", botID)
		return
	}

	worker := s.factory(row, s.onTransition)
	s.mu.Lock()
	s.workers[botID] = worker
	s.mu.Unlock()

	if err := worker.Start(ctx); err != nil {
		entry, lerr := s.ledger.RecordFailure(botID)
		if lerr != nil {
			logrus.WithError(lerr).Error("[FLEET] Failed to persist failure ledger")
		}
		logrus.WithError(err).Errorf("[FLEET] Start failed for bot %s (failure %d, skipped=%v)",
			botID, entry.FailureCount, entry.Skipped)
		return
	}

	if err := s.ledger.Clear(botID); err != nil {
		logrus.WithError(err).Error("[FLEET] Failed to persist failure ledger")
	}
	s.confirmCredentials(ctx, row)
	logrus.Infof("[FLEET] Bot %s started on tenant %s", botID, row.TenantName)
}

// confirmCredentials copies rotated container credentials back onto the
// row so restarts always load the freshest material.
func (s *Supervisor) confirmCredentials(ctx context.Context, row domainBot.Bot) {
	blob, err := NewContainer(row.TenantName, row.ID).ReadCredentials()
	if err != nil || blob == "" {
		return
	}
	if blob == row.Credentials {
		return
	}
	if err := s.bots.ConfirmCredentials(ctx, row.ID, blob); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Failed to confirm credentials for bot %s", row.ID)
	}
}

// Stop gracefully stops a bot's worker if one exists. The container is
// left untouched.
func (s *Supervisor) Stop(ctx context.Context, botID string) error {
	return s.queue.Do(ctx, botID, "stop", func(ctx context.Context) error {
		s.mu.Lock()
		worker := s.workers[botID]
		s.mu.Unlock()

		if worker == nil {
			return nil
		}
		if err := worker.Stop(ctx); err != nil {
			logrus.WithError(err).Warnf("[FLEET] Stop failed for bot %s", botID)
		}
		return nil
	})
}

// Restart stops the worker, waits for a clean shutdown and starts it
// again with fresh credentials. Container material is never wiped.
func (s *Supervisor) Restart(ctx context.Context, botID string) {
	_ = s.queue.Do(ctx, botID, "restart", func(ctx context.Context) error {
		s.mu.Lock()
		worker := s.workers[botID]
		s.mu.Unlock()

		if worker != nil {
			_ = worker.Stop(ctx)
			s.sleep(ctx, s.restartDelay())
			s.mu.Lock()
			delete(s.workers, botID)
			s.mu.Unlock()
		}

		s.startLocked(ctx, botID, true)
		return nil
	})
}

// Destroy stops the worker, forgets it and removes the credential
// container.
func (s *Supervisor) Destroy(ctx context.Context, botID, tenant string) error {
	return s.queue.Do(ctx, botID, "destroy", func(ctx context.Context) error {
		s.mu.Lock()
		worker := s.workers[botID]
		delete(s.workers, botID)
		s.mu.Unlock()

		if worker != nil {
			_ = worker.Stop(ctx)
		}
		if err := s.ledger.Clear(botID); err != nil {
			logrus.WithError(err).Error("[FLEET] Failed to persist failure ledger")
		}
		return RemoveContainer(tenant, botID)
	})
}

// UpdateRow pushes a fresh row into the worker's cached view without
// restarting the socket.
func (s *Supervisor) UpdateRow(botID string, row domainBot.Bot) {
	s.mu.RLock()
	worker := s.workers[botID]
	s.mu.RUnlock()

	if worker != nil {
		worker.UpdateBot(row)
	}
}

// SendMessage delivers text through a bot's socket. Returns false when
// the bot has no online worker.
func (s *Supervisor) SendMessage(ctx context.Context, botID, jid, text string) bool {
	s.mu.RLock()
	worker := s.workers[botID]
	s.mu.RUnlock()

	if worker == nil || worker.Status() != domainBot.StatusOnline {
		return false
	}
	if _, err := worker.SendText(ctx, jid, text); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Send failed for bot %s", botID)
		return false
	}
	if err := s.bots.IncrementMessages(ctx, botID); err != nil {
		logrus.WithError(err).Debugf("[FLEET] Failed to bump message counter for bot %s", botID)
	}
	return true
}

// Status reports a worker's state, false when no worker exists.
func (s *Supervisor) Status(botID string) (domainBot.Status, bool) {
	s.mu.RLock()
	worker := s.workers[botID]
	s.mu.RUnlock()

	if worker == nil {
		return domainBot.StatusOffline, false
	}
	return worker.Status(), true
}

// ResumeTenant starts every approved bot on the tenant. Per-bot
// failures are logged without aborting the batch. Returns how many
// start attempts were dispatched.
func (s *Supervisor) ResumeTenant(ctx context.Context, tenant string) int {
	rows, err := s.bots.ListApproved(ctx, tenant)
	if err != nil {
		logrus.WithError(err).Errorf("[FLEET] Failed to list approved bots for tenant %s", tenant)
		return 0
	}

	logrus.Infof("[FLEET] Resuming tenant %s: %d approved bots", tenant, len(rows))

	g := new(errgroup.Group)
	g.SetLimit(8)
	dispatched := 0
	for _, row := range rows {
		if s.ledger.IsSkipped(row.ID) {
			logrus.Warnf("[FLEET] Resume skipping bot %s: requires operator", row.ID)
			continue
		}
		dispatched++
		id := row.ID
		g.Go(func() error {
			s.Start(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return dispatched
}

// StopAll concurrently stops every worker and clears the map. Used on
// process shutdown.
func (s *Supervisor) StopAll(ctx context.Context) {
	s.mu.Lock()
	snapshot := make(map[string]Worker, len(s.workers))
	for id, w := range s.workers {
		snapshot[id] = w
	}
	s.workers = make(map[string]Worker)
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	logrus.Infof("[FLEET] Stopping %d workers", len(snapshot))

	g := new(errgroup.Group)
	for id, w := range snapshot {
		id, w := id, w
		g.Go(func() error {
			if err := w.Stop(ctx); err != nil {
				logrus.WithError(err).Warnf("[FLEET] Stop failed for bot %s during shutdown", id)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Workers returns a snapshot of the live worker set.
func (s *Supervisor) Workers() []WorkerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]WorkerInfo, 0, len(s.workers))
	for id, w := range s.workers {
		row := w.Bot()
		out = append(out, WorkerInfo{
			BotID:  id,
			Tenant: row.TenantName,
			Phone:  row.Phone,
			Status: w.Status(),
		})
	}
	return out
}

// Census counts live workers by state for the health surface.
func (s *Supervisor) Census() domainHealth.WorkerCensus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	census := domainHealth.WorkerCensus{Total: len(s.workers)}
	for _, w := range s.workers {
		switch w.Status() {
		case domainBot.StatusOnline:
			census.Online++
		case domainBot.StatusLoading:
			census.Loading++
		case domainBot.StatusError:
			census.Error++
		}
	}
	return census
}

// QueueStats exposes the operation queue metrics for diagnostics.
func (s *Supervisor) QueueStats() botqueue.QueueStats {
	return s.queue.GetStats()
}

// onTransition is the StatusSink handed to every worker: persist the
// status column, append the audit row, feed the event stream.
func (s *Supervisor) onTransition(row domainBot.Bot, from, to domainBot.Status, reason string) {
	ctx := context.Background()

	if err := s.bots.SetStatus(ctx, row.ID, to); err != nil {
		logrus.WithError(err).Warnf("[FLEET] Failed to persist status %s for bot %s", to, row.ID)
	}

	s.activity.Record(ctx, domainActivity.Entry{
		Type:        domainActivity.TypeStatusChange,
		Description: "Bot " + row.Name + " moved from " + string(from) + " to " + string(to) + " (" + reason + ")",
		BotID:       row.ID,
		TenantName:  row.TenantName,
		Phone:       row.Phone,
	})

	if s.broadcast != nil {
		s.broadcast(row, from, to, reason)
	}
}

func (s *Supervisor) quiesceDelay() time.Duration {
	if s.cfg.QuiesceDelay > 0 {
		return s.cfg.QuiesceDelay
	}
	return 2 * time.Second
}

func (s *Supervisor) restartDelay() time.Duration {
	if s.cfg.RestartDelay > 0 {
		return s.cfg.RestartDelay
	}
	return 3 * time.Second
}

// sleep waits without outliving the context.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
