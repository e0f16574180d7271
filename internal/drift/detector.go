package drift

import (
	"context"

	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
)

// Status classifies a phase's drift check outcome
type Status string

const (
	// StatusNoDrift means the diff found no differences
	StatusNoDrift Status = "NoDrift"
	// StatusPendingChanges means differences were found; reported, not fatal
	StatusPendingChanges Status = "PendingChanges"
	// StatusError means the diff operation itself failed
	StatusError Status = "Error"
)

// Report is the per-phase drift result
type Report struct {
	Phase    string `json:"phase,omitempty"`
	Status   Status `json:"status"`
	DiffText string `json:"diff_text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Detector runs the engine's diff operation per phase
type Detector struct {
	engine engine.Engine
	log    logger.Logger
}

// NewDetector creates a drift detector
func NewDetector(eng engine.Engine) *Detector {
	return &Detector{engine: eng, log: logger.Get()}
}

// Check diffs every target phase. Phases run strictly sequentially and
// independently: one phase's error never suppresses its siblings' reports.
func (d *Detector) Check(ctx context.Context, env *environment.Environment, targets []environment.PhaseTarget) []Report {
	reports := make([]Report, 0, len(targets))

	for _, target := range targets {
		report := Report{Phase: target.Phase}

		outcome, diff, err := d.engine.Plan(ctx, target.Dir)
		switch outcome {
		case engine.PlanNoChanges:
			report.Status = StatusNoDrift
		case engine.PlanChanges:
			report.Status = StatusPendingChanges
			report.DiffText = diff
		default:
			report.Status = StatusError
			if err != nil {
				report.Error = err.Error()
			}
		}

		d.log.Info("drift check",
			logger.String("environment", env.Name),
			logger.String("phase", target.Phase),
			logger.String("status", string(report.Status)))

		reports = append(reports, report)
	}
	return reports
}

// HasDrift reports whether any phase has pending changes
func HasDrift(reports []Report) bool {
	for _, r := range reports {
		if r.Status == StatusPendingChanges {
			return true
		}
	}
	return false
}

// HasError reports whether any phase's diff operation failed
func HasError(reports []Report) bool {
	for _, r := range reports {
		if r.Status == StatusError {
			return true
		}
	}
	return false
}
