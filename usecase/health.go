package usecase

import (
	"context"
	"time"

	"github.com/AzielCF/az-fleet/core/database"
	domainHealth "github.com/AzielCF/az-fleet/domains/health"
	"github.com/AzielCF/az-fleet/infrastructure/valkey"
	"github.com/AzielCF/az-fleet/infrastructure/whatsapp"
	"github.com/AzielCF/az-fleet/pkg/ledger"
	"github.com/dustin/go-humanize"
)

type healthService struct {
	valkey     *valkey.Client
	supervisor *whatsapp.Supervisor
	ledger     *ledger.Ledger
	startedAt  time.Time
}

// NewHealthService builds the controller health probe. valkey may be
// nil when the dependency is disabled.
func NewHealthService(valkeyClient *valkey.Client, supervisor *whatsapp.Supervisor, led *ledger.Ledger) domainHealth.IHealthUsecase {
	return &healthService{
		valkey:     valkeyClient,
		supervisor: supervisor,
		ledger:     led,
		startedAt:  time.Now(),
	}
}

// Check pings the database and Valkey, takes a worker census and
// summarizes the failure ledger. Healthy means the database answers; a
// disabled Valkey never degrades the verdict.
func (s *healthService) Check(ctx context.Context) domainHealth.Status {
	status := domainHealth.Status{
		Healthy: true,
		Uptime:  humanize.Time(s.startedAt),
	}

	status.Database = s.checkDatabase(ctx)
	if !status.Database.OK {
		status.Healthy = false
	}

	status.Valkey = s.checkValkey(ctx)
	if status.Valkey.Enabled && !status.Valkey.OK {
		status.Healthy = false
	}

	if s.supervisor != nil {
		status.Workers = s.supervisor.Census()
	}
	if s.ledger != nil {
		status.Ledger = domainHealth.LedgerCensus{
			Tracked: len(s.ledger.Entries()),
			Skipped: s.ledger.SkippedCount(),
		}
	}

	return status
}

func (s *healthService) checkDatabase(ctx context.Context) domainHealth.DependencyStatus {
	dep := domainHealth.DependencyStatus{Enabled: true}

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		dep.Detail = err.Error()
		return dep
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		dep.Detail = err.Error()
		return dep
	}

	dep.OK = true
	return dep
}

func (s *healthService) checkValkey(ctx context.Context) domainHealth.DependencyStatus {
	if s.valkey == nil {
		return domainHealth.DependencyStatus{Enabled: false, Detail: "disabled"}
	}

	dep := domainHealth.DependencyStatus{Enabled: true}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.valkey.Ping(pingCtx); err != nil {
		dep.Detail = err.Error()
		return dep
	}

	dep.OK = true
	return dep
}
