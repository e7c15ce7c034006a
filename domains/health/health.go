package health

import "context"

// Status is the controller-wide health snapshot served to operators
// and to the MCP surface.
type Status struct {
	Healthy bool   `json:"healthy"`
	Uptime  string `json:"uptime"`

	Database DependencyStatus `json:"database"`
	Valkey   DependencyStatus `json:"valkey"`

	Workers WorkerCensus `json:"workers"`
	Ledger  LedgerCensus `json:"ledger"`
}

// DependencyStatus reports one external dependency ping.
type DependencyStatus struct {
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Enabled bool   `json:"enabled"`
}

// WorkerCensus counts live workers by socket state.
type WorkerCensus struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Loading int `json:"loading"`
	Error   int `json:"error"`
}

// LedgerCensus summarizes the failure ledger.
type LedgerCensus struct {
	Tracked int `json:"tracked"`
	Skipped int `json:"skipped"`
}

type IHealthUsecase interface {
	Check(ctx context.Context) Status
}
