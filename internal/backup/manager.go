package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/engine"
	"github.com/catherinevee/stateops/internal/environment"
	"github.com/catherinevee/stateops/internal/logger"
	"github.com/catherinevee/stateops/internal/state"
)

const (
	// CategoryManual marks snapshots taken by `state backup`
	CategoryManual = "manual"
	// CategoryPreMigration marks snapshots taken by the migration engine
	CategoryPreMigration = "pre-migration"

	stateArtifactName = "terraform.tfstate"
	metadataName      = "metadata.json"
	timestampLayout   = "20060102-1504"
)

// Snapshot is an immutable, timestamped copy of one phase's state plus
// metadata. Never auto-deleted by this tool; retention is external policy.
type Snapshot struct {
	ID            string    `json:"id"`
	Environment   string    `json:"environment"`
	Phase         string    `json:"phase,omitempty"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
	ResourceCount int       `json:"resource_count"`
	Serial        int       `json:"serial"`
	Lineage       string    `json:"lineage"`
	StoragePath   string    `json:"storage_path"`
	EngineVersion string    `json:"source_engine_version"`
}

// Confirmer asks the operator a yes/no question
type Confirmer func(prompt string) (bool, error)

// Manager creates and restores state snapshots
type Manager struct {
	root   string
	engine engine.Engine
	now    func() time.Time
	log    logger.Logger
}

// NewManager creates a backup manager rooted at the backup directory
func NewManager(root string, eng engine.Engine) *Manager {
	return &Manager{
		root:   root,
		engine: eng,
		now:    time.Now,
		log:    logger.Get(),
	}
}

// Backup snapshots the authoritative state of every target phase. All phases
// of one run share a snapshot ID so restore can address them together.
// Phases are snapshotted independently: a failure on one phase is recorded
// and the rest are still attempted; the returned snapshots cover the phases
// that succeeded.
func (m *Manager) Backup(ctx context.Context, env *environment.Environment, targets []environment.PhaseTarget, category string) ([]Snapshot, error) {
	stamp := m.now().UTC().Format(timestampLayout)
	id := fmt.Sprintf("%s-%s", env.Name, stamp)

	snapshots := make([]Snapshot, 0, len(targets))
	var failed []string
	for _, target := range targets {
		snap, err := m.backupPhase(ctx, env, target, category, id, stamp)
		if err != nil {
			m.log.Error("phase snapshot failed",
				logger.String("phase", target.Phase),
				logger.Err(err))
			failed = append(failed, target.Phase)
			continue
		}
		snapshots = append(snapshots, *snap)

		m.log.Info("snapshot created",
			logger.String("snapshot", id),
			logger.String("phase", target.Phase),
			logger.Int("resources", snap.ResourceCount))
	}

	if len(failed) > 0 {
		return snapshots, apperrors.Newf(apperrors.ErrorTypeEngine,
			"failed to snapshot phases: %s", strings.Join(failed, ", "))
	}
	return snapshots, nil
}

// BackupLocal snapshots an on-disk state artifact directly, without going
// through the engine. Used by the migration engine, whose source of truth
// is still the local file at backup time.
func (m *Manager) BackupLocal(env *environment.Environment, target environment.PhaseTarget, localStatePath, category string) (*Snapshot, error) {
	raw, err := os.ReadFile(localStatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read local state artifact: %w", err)
	}

	stamp := m.now().UTC().Format(timestampLayout)
	id := fmt.Sprintf("%s-%s", env.Name, stamp)

	snap, err := m.writeSnapshot(env, target, category, id, stamp, raw)
	if err != nil {
		return nil, err
	}

	m.log.Info("pre-migration snapshot created",
		logger.String("snapshot", id),
		logger.String("phase", target.Phase),
		logger.Int("resources", snap.ResourceCount))
	return snap, nil
}

func (m *Manager) backupPhase(ctx context.Context, env *environment.Environment, target environment.PhaseTarget, category, id, stamp string) (*Snapshot, error) {
	raw, err := m.engine.StatePull(ctx, target.Dir)
	if err != nil {
		return nil, err
	}
	return m.writeSnapshot(env, target, category, id, stamp, raw)
}

func (m *Manager) writeSnapshot(env *environment.Environment, target environment.PhaseTarget, category, id, stamp string, raw []byte) (*Snapshot, error) {
	parsed, err := state.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeEngine, "state artifact is not parseable")
	}

	dir := m.snapshotDir(category, env.Name, target.Phase, stamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	artifactPath := filepath.Join(dir, stateArtifactName)
	if err := os.WriteFile(artifactPath, raw, 0600); err != nil {
		return nil, fmt.Errorf("failed to write state artifact: %w", err)
	}

	snap := &Snapshot{
		ID:            id,
		Environment:   env.Name,
		Phase:         target.Phase,
		Category:      category,
		CreatedAt:     m.now().UTC(),
		ResourceCount: parsed.ResourceCount(),
		Serial:        parsed.Serial,
		Lineage:       parsed.Lineage,
		StoragePath:   artifactPath,
		EngineVersion: parsed.TerraformVersion,
	}

	meta, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataName), meta, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	return snap, nil
}

// Restore pushes a snapshot's stored state back as the live state for every
// target phase. Refuses to proceed when the snapshot lacks an entry for any
// requested phase; gated by operator confirmation unless force is set.
func (m *Manager) Restore(ctx context.Context, env *environment.Environment, snapshotID string, targets []environment.PhaseTarget, force bool, confirm Confirmer) error {
	entries, err := m.findSnapshot(env.Name, snapshotID)
	if err != nil {
		return err
	}

	// Validate every phase before touching anything: partial snapshots are
	// rejected per-phase, not silently skipped.
	phaseEntries := make(map[string]*Snapshot, len(entries))
	for i := range entries {
		phaseEntries[entries[i].Phase] = &entries[i]
	}
	for _, target := range targets {
		if _, ok := phaseEntries[target.Phase]; !ok {
			return apperrors.Newf(apperrors.ErrorTypeValidation,
				"snapshot %s has no entry for phase %q", snapshotID, target.Phase).WithPhase(target.Phase)
		}
	}

	if !force {
		ok, err := confirm(fmt.Sprintf(
			"Restore snapshot %s over the live state of environment %q? This cannot be undone", snapshotID, env.Name))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			return apperrors.NewConfirmationDeclined("restore aborted by operator, state unmodified")
		}
	}

	// Unlike backup, a push failure aborts the remaining phases: pushing more
	// state onto a backend that just failed a push mid-restore compounds the
	// damage, and the error already names the phase to resume from.
	for _, target := range targets {
		entry := phaseEntries[target.Phase]
		if err := m.engine.StatePush(ctx, target.Dir, entry.StoragePath); err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeEngine, "failed to push snapshot state").
				WithPhase(target.Phase).
				WithRemediation(fmt.Sprintf("inspect %s and re-run state restore --snapshot=%s", entry.StoragePath, snapshotID))
		}
		m.log.Info("snapshot restored",
			logger.String("snapshot", snapshotID),
			logger.String("phase", target.Phase),
			logger.Int("resources", entry.ResourceCount))
	}
	return nil
}

// List returns all snapshots recorded for an environment, newest first
func (m *Manager) List(envName string) ([]Snapshot, error) {
	var snapshots []Snapshot

	err := filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // backup root may not exist yet
		}
		if info.IsDir() || filepath.Base(path) != metadataName {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			m.log.Warn("skipping unreadable snapshot metadata", logger.String("path", path))
			return nil
		}
		if snap.Environment == envName {
			snapshots = append(snapshots, snap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup root: %w", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].CreatedAt.Equal(snapshots[j].CreatedAt) {
			return snapshots[i].Phase < snapshots[j].Phase
		}
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// findSnapshot locates all per-phase entries of one snapshot ID
func (m *Manager) findSnapshot(envName, snapshotID string) ([]Snapshot, error) {
	if !strings.HasPrefix(snapshotID, envName+"-") {
		return nil, apperrors.NewValidationError(
			"snapshot %q does not belong to environment %q", snapshotID, envName)
	}

	all, err := m.List(envName)
	if err != nil {
		return nil, err
	}

	var entries []Snapshot
	for _, snap := range all {
		if snap.ID == snapshotID {
			entries = append(entries, snap)
		}
	}
	if len(entries) == 0 {
		return nil, apperrors.NewValidationError("snapshot %q not found", snapshotID)
	}
	return entries, nil
}

func (m *Manager) snapshotDir(category, envName, phase, stamp string) string {
	if phase == "" {
		return filepath.Join(m.root, category, envName, stamp)
	}
	return filepath.Join(m.root, category, envName, phase, stamp)
}
