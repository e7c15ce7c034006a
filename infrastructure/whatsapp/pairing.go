package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainPairing "github.com/AzielCF/az-fleet/domains/pairing"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// PairingObserver is notified if the throwaway socket observes the link
// completing before teardown.
type PairingObserver func(requestID, phone string)

// RequestPairingCode opens an isolated single-shot socket, asks the
// upstream service for an 8-character linking code for the phone and
// returns it. The temporary container is scrubbed after a short grace;
// whatever credentials were flushed into it are discarded.
func RequestPairingCode(ctx context.Context, phone string, linked PairingObserver) (domainPairing.PairingResponse, error) {
	requestID := uuid.NewString()
	dir := utils.PairingContainerPath(requestID)

	deadline, startupTimeout, grace := pairingTimings()
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	silent := waLog.Noop
	deviceStore, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dir, "session.db")), silent)
	if err != nil {
		_ = os.RemoveAll(dir)
		logrus.WithError(err).Error("[PAIR] Failed to open throwaway device store")
		return domainPairing.PairingResponse{}, pkgError.ErrContainerIO
	}
	device := deviceStore.NewDevice()

	chromePlatform := waCompanionReg.DeviceProps_CHROME
	osName := "Linux"
	store.DeviceProps.PlatformType = &chromePlatform
	store.DeviceProps.Os = &osName

	client := whatsmeow.NewClient(device, silent)
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true

	connected := make(chan struct{})
	failed := make(chan CloseReason, 1)
	var connectedOnce, failedOnce sync.Once

	handlerID := client.AddEventHandler(func(evt interface{}) {
		switch evt.(type) {
		case *events.Connected:
			connectedOnce.Do(func() { close(connected) })
			return
		case *events.PairSuccess:
			logrus.Infof("[PAIR] Request %s linked before teardown", requestID)
			if linked != nil {
				linked(requestID, phone)
			}
			return
		}
		if reason, ok := ClassifyEvent(evt); ok {
			failedOnce.Do(func() { failed <- reason })
		}
	})

	// detach removes the listener before the request resolves or
	// rejects; scrub closes the socket and discards the container.
	detach := func() { client.RemoveEventHandler(handlerID) }
	scrub := func() {
		client.Disconnect()
		if err := os.RemoveAll(dir); err != nil {
			logrus.WithError(err).Warnf("[PAIR] Failed to scrub container %s", dir)
		}
	}

	if err := client.Connect(); err != nil {
		detach()
		scrub()
		logrus.WithError(err).Errorf("[PAIR] Connect failed for request %s", requestID)
		return domainPairing.PairingResponse{}, pkgError.ErrCloseRetriable
	}

	select {
	case <-connected:
	case reason := <-failed:
		detach()
		scrub()
		logrus.Warnf("[PAIR] Socket closed during startup for request %s: %s", requestID, reason)
		return domainPairing.PairingResponse{}, reason.Err()
	case <-time.After(startupTimeout):
		detach()
		scrub()
		logrus.Warnf("[PAIR] Startup timed out for request %s", requestID)
		return domainPairing.PairingResponse{}, pkgError.ErrConnectTimeout
	case <-ctx.Done():
		detach()
		scrub()
		return domainPairing.PairingResponse{}, pkgError.ErrPairingTimeout
	}

	code, err := client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		detach()
		scrub()
		if ctx.Err() != nil {
			return domainPairing.PairingResponse{}, pkgError.ErrPairingTimeout
		}
		logrus.WithError(err).Errorf("[PAIR] Pairing code request failed for request %s", requestID)
		return domainPairing.PairingResponse{}, pkgError.ErrAuthFailed
	}

	// Let the library flush, then discard the container. The listener
	// stays attached until scrub time so a fast link is still observed.
	time.AfterFunc(grace, func() {
		detach()
		scrub()
		logrus.Debugf("[PAIR] Container for request %s scrubbed", requestID)
	})

	logrus.Infof("[PAIR] Issued pairing code for %s (request %s)", phone, requestID)
	return domainPairing.PairingResponse{
		Code:      code,
		RequestID: requestID,
		Phone:     phone,
	}, nil
}

func pairingTimings() (deadline, startup, grace time.Duration) {
	deadline, startup, grace = 60*time.Second, 30*time.Second, 5*time.Second
	if coreconfig.Global == nil {
		return
	}
	p := coreconfig.Global.Pairing
	if p.Deadline > 0 {
		deadline = p.Deadline
	}
	if p.StartupTimeout > 0 {
		startup = p.StartupTimeout
	}
	if p.TeardownGrace > 0 {
		grace = p.TeardownGrace
	}
	return
}
