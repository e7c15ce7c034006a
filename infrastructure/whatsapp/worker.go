package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	"github.com/AzielCF/az-fleet/pkg/credwire"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// StatusSink receives every worker state transition. The supervisor
// uses it to persist the status column, append the audit trail and feed
// the event stream.
type StatusSink func(row domainBot.Bot, from, to domainBot.Status, reason string)

// Worker wraps exactly one socket for exactly one bot. The production
// implementation is SocketWorker; tests inject fakes through the
// supervisor's WorkerFactory.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() domainBot.Status
	Bot() domainBot.Bot
	UpdateBot(row domainBot.Bot)
	SendText(ctx context.Context, jid, text string) (string, error)
}

// WorkerFactory builds a worker for one bot row.
type WorkerFactory func(row domainBot.Bot, sink StatusSink) Worker

// NewSocketWorker is the production WorkerFactory.
func NewSocketWorker(row domainBot.Bot, sink StatusSink) Worker {
	return &SocketWorker{
		row:       row,
		status:    domainBot.StatusOffline,
		container: NewContainer(row.TenantName, row.ID),
		sink:      sink,
		startupCh: make(chan error, 1),
	}
}

// SocketWorker drives a whatsmeow client for one bot. A worker is
// single-use: once it reaches a terminal state the supervisor discards
// it and builds a fresh one.
type SocketWorker struct {
	mu       sync.RWMutex
	row      domainBot.Bot
	status   domainBot.Status
	stopping bool

	container *Container
	client    *whatsmeow.Client
	handlerID uint32

	sink        StatusSink
	startupCh   chan error
	startupOnce sync.Once
}

// Status returns the current socket state.
func (w *SocketWorker) Status() domainBot.Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Bot returns the worker's cached row.
func (w *SocketWorker) Bot() domainBot.Bot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.row
}

// UpdateBot refreshes the cached row in place without touching the
// socket.
func (w *SocketWorker) UpdateBot(row domainBot.Bot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.row = row
}

// Start materializes credentials, opens the device store inside the
// container and connects. It blocks until the socket reports Connected,
// a terminal close event arrives, or the connect timeout expires.
func (w *SocketWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.status == domainBot.StatusOnline {
		w.mu.Unlock()
		return nil
	}
	row := w.row
	w.mu.Unlock()

	w.transition(domainBot.StatusLoading, "start")

	if row.Credentials != "" && !w.container.HasCredentials() {
		if err := w.container.WriteCredentials(materializeBlob(row.Credentials)); err != nil {
			w.transition(domainBot.StatusError, "container write failed")
			return err
		}
		logrus.Infof("[WORKER] Materialized credentials for bot %s into %s", row.ID, w.container.Path())
	}

	id8 := shortID(row.ID)
	dbLog := waLog.Stdout("DB-"+id8, "WARN", true)
	deviceStore, err := sqlstore.New(ctx, "sqlite3", w.container.SessionDSN(), dbLog)
	if err != nil {
		logrus.WithError(err).Errorf("[WORKER] Failed to open device store for bot %s", row.ID)
		w.transition(domainBot.StatusError, "device store unavailable")
		return pkgError.ErrContainerIO
	}

	device, err := deviceStore.GetFirstDevice(ctx)
	if err != nil {
		logrus.WithError(err).Errorf("[WORKER] Failed to load device for bot %s", row.ID)
		w.transition(domainBot.StatusError, "device load failed")
		return pkgError.ErrBadSession
	}
	if device == nil {
		device = deviceStore.NewDevice()
	}
	if device.ID == nil {
		logrus.Warnf("[WORKER] Bot %s has no linked device session, pairing required", row.ID)
		w.transition(domainBot.StatusError, "no linked device")
		return pkgError.ErrBadSession
	}

	chromePlatform := waCompanionReg.DeviceProps_CHROME
	osName := "Linux"
	store.DeviceProps.PlatformType = &chromePlatform
	store.DeviceProps.Os = &osName

	client := whatsmeow.NewClient(device, waLog.Stdout("Worker-"+id8, "INFO", true))
	client.EnableAutoReconnect = true
	client.AutoTrustIdentity = true

	w.mu.Lock()
	w.client = client
	w.handlerID = client.AddEventHandler(w.handleEvent)
	w.mu.Unlock()

	if err := client.Connect(); err != nil {
		logrus.WithError(err).Errorf("[WORKER] Connect failed for bot %s", row.ID)
		w.teardownClient()
		w.transition(domainBot.StatusError, "connect failed")
		return pkgError.ErrCloseRetriable
	}

	timeout := connectTimeout()
	select {
	case err := <-w.startupCh:
		if err != nil {
			w.teardownClient()
			return err
		}
		return nil
	case <-time.After(timeout):
		logrus.Warnf("[WORKER] Bot %s did not come online within %s", row.ID, timeout)
		w.teardownClient()
		w.transition(domainBot.StatusError, "connect timeout")
		return pkgError.ErrConnectTimeout
	case <-ctx.Done():
		w.teardownClient()
		w.transition(domainBot.StatusOffline, "start cancelled")
		return ctx.Err()
	}
}

// Stop detaches listeners and closes the socket. Credentials stay in
// the container; only destroy removes them.
func (w *SocketWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return nil
	}
	w.stopping = true
	w.mu.Unlock()

	w.signalStartup(pkgError.ErrCloseRetriable)
	w.teardownClient()
	w.transition(domainBot.StatusOffline, "stopped")
	return nil
}

// SendText delivers a plain text message through the socket.
func (w *SocketWorker) SendText(ctx context.Context, jid, text string) (string, error) {
	w.mu.RLock()
	client := w.client
	status := w.status
	w.mu.RUnlock()

	if client == nil || status != domainBot.StatusOnline {
		return "", fmt.Errorf("worker is not online")
	}

	target, err := parseJID(jid)
	if err != nil {
		return "", err
	}

	resp, err := client.SendMessage(ctx, target, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", err
	}
	return string(resp.ID), nil
}

func (w *SocketWorker) handleEvent(evt interface{}) {
	if _, ok := evt.(*events.Connected); ok {
		w.signalStartup(nil)
		w.transition(domainBot.StatusOnline, "connected")
		return
	}

	reason, ok := ClassifyEvent(evt)
	if !ok {
		return
	}
	w.handleClose(reason)
}

func (w *SocketWorker) handleClose(reason CloseReason) {
	w.mu.RLock()
	stopping := w.stopping
	row := w.row
	w.mu.RUnlock()
	if stopping {
		return
	}

	if reason.Retriable() {
		// EnableAutoReconnect brings the socket back; loading reflects
		// the attempt in progress.
		logrus.Warnf("[WORKER] Bot %s socket closed (%s), waiting for reconnect", row.ID, reason)
		w.transition(domainBot.StatusLoading, string(reason))
		return
	}

	logrus.Errorf("[WORKER] Bot %s socket closed with terminal reason %s", row.ID, reason)
	w.signalStartup(reason.Err())
	w.transition(domainBot.StatusError, string(reason))

	// RemoveEventHandler would deadlock inside the dispatch goroutine,
	// so tear down asynchronously.
	go w.teardownClient()
}

// teardownClient removes the event handler and closes the socket.
func (w *SocketWorker) teardownClient() {
	w.mu.Lock()
	client := w.client
	handlerID := w.handlerID
	w.handlerID = 0
	w.mu.Unlock()

	if client == nil {
		return
	}
	if handlerID != 0 {
		client.RemoveEventHandler(handlerID)
	}
	client.Disconnect()
}

// transition moves the state machine and notifies the sink. Same-state
// transitions are dropped, which is what makes start/stop idempotent.
func (w *SocketWorker) transition(to domainBot.Status, reason string) {
	w.mu.Lock()
	from := w.status
	if from == to {
		w.mu.Unlock()
		return
	}
	w.status = to
	row := w.row
	w.mu.Unlock()

	logrus.Infof("[WORKER] Bot %s: %s -> %s (%s)", row.ID, from, to, reason)
	if w.sink != nil {
		w.sink(row, from, to, reason)
	}
}

func (w *SocketWorker) signalStartup(err error) {
	w.startupOnce.Do(func() {
		w.startupCh <- err
	})
}

// materializeBlob renders the stored wire blob as the JSON document the
// container carries. An undecodable blob is written verbatim.
func materializeBlob(blob string) string {
	doc, err := credwire.Decode(blob)
	if err != nil {
		return blob
	}
	normalized, err := credwire.Normalize(doc)
	if err != nil {
		return blob
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return blob
	}
	return string(data)
}

func parseJID(raw string) (types.JID, error) {
	if !strings.ContainsRune(raw, '@') {
		return types.NewJID(raw, types.DefaultUserServer), nil
	}
	return types.ParseJID(raw)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func connectTimeout() time.Duration {
	if coreconfig.Global != nil && coreconfig.Global.Supervisor.ConnectTimeout > 0 {
		return coreconfig.Global.Supervisor.ConnectTimeout
	}
	return 40 * time.Second
}
