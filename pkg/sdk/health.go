package pixdex

import (
	"context"

	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
)

const indexesCheck = "indexes"

// HealthStatus is the aggregated health of an embedded pixdex instance.
type HealthStatus struct {
	Status     string            // "ok", "degraded", "error"
	Components map[string]string // database, embedding, storage: "ok" or "error"
	// Indexes is "built", "building" or "pending", and empty when the
	// client does not manage ANN indexes.
	Indexes string
}

// Searchable reports whether Search can be served. Index state does not
// matter: without indexes search falls back to a sequential scan.
func (h HealthStatus) Searchable() bool {
	return h.Components["database"] == string(healthuc.CheckOK) &&
		h.Components["embedding"] != string(healthuc.CheckError)
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status:     string(report.Status),
		Components: make(map[string]string, len(report.Checks)),
	}
	for k, v := range report.Checks {
		if k == indexesCheck {
			h.Indexes = string(v)
			continue
		}
		h.Components[k] = string(v)
	}
	return h
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
