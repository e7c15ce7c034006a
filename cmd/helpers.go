package cmd

import (
	"context"
	"time"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	"github.com/sirupsen/logrus"
)

// resumeFleetAfterBoot dispatches a start for every approved bot on the
// managed server. The short delay keeps the resume burst away from the
// listener startup.
func resumeFleetAfterBoot() {
	time.Sleep(5 * time.Second)

	dispatched, err := fleetUsecase.ResumeTenant(context.Background(), serverName)
	if err != nil {
		logrus.WithError(err).Error("[APP] Boot resume failed")
		return
	}
	logrus.Infof("[APP] Boot resume dispatched %d bot starts", dispatched)
}

// startSweepTickers runs the approval-expiration and guest-session sweeps
// on their configured intervals. The expiration sweep honors the operator
// suspension switch on every tick.
func startSweepTickers() {
	cfg := coreconfig.Global

	go func() {
		ticker := time.NewTicker(cfg.Sweep.ExpirationInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx := context.Background()
			if settingsSvc.IsSweepSuspended(ctx) {
				logrus.Debug("[SWEEP] Expiration sweep suspended by operator")
				continue
			}
			expired, err := fleetUsecase.SweepExpirations(ctx)
			if err != nil {
				logrus.WithError(err).Error("[SWEEP] Expiration sweep failed")
				continue
			}
			if expired > 0 {
				logrus.Infof("[SWEEP] Moved %d bots past their window to dormant", expired)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Sweep.GuestTTL)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := pairingUsecase.SweepExpired(context.Background()); err != nil {
				logrus.WithError(err).Error("[SWEEP] Guest session sweep failed")
			}
		}
	}()
}
