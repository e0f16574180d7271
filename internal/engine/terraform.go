package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/logger"
)

// engineWaitDelay bounds how long a finished-or-killed engine invocation may
// hold its output pipes open through surviving children
const engineWaitDelay = 3 * time.Second

// TerraformCLI drives the terraform (or tofu) binary as the provisioning
// engine. It never parses or constructs state bytes itself beyond passing
// them through.
type TerraformCLI struct {
	binary  string
	timeout time.Duration
	log     logger.Logger
}

// NewTerraformCLI creates an engine driver for the given binary
func NewTerraformCLI(binary string, timeout time.Duration) *TerraformCLI {
	return &TerraformCLI{
		binary:  binary,
		timeout: timeout,
		log:     logger.Get(),
	}
}

// Preflight verifies the engine binary is present and recent enough.
// Called before any operation that shells out.
func (t *TerraformCLI) Preflight(ctx context.Context, minVersion string) error {
	if _, err := exec.LookPath(t.binary); err != nil {
		return apperrors.NewPrerequisiteError("provisioning engine %q not found on PATH", t.binary).
			WithRemediation(fmt.Sprintf("install %s or set engine.binary in stateops.yaml", t.binary))
	}

	if minVersion == "" {
		return nil
	}

	current, err := t.Version(ctx)
	if err != nil {
		return err
	}

	have, err := goversion.NewVersion(current)
	if err != nil {
		return apperrors.Newf(apperrors.ErrorTypePrerequisite, "cannot parse engine version %q", current)
	}
	want, err := goversion.NewVersion(minVersion)
	if err != nil {
		return apperrors.NewValidationError("invalid minimum engine version %q", minVersion)
	}
	if have.LessThan(want) {
		return apperrors.NewPrerequisiteError("engine version %s is older than required %s", current, minVersion)
	}
	return nil
}

// Version returns the engine version from `version -json`
func (t *TerraformCLI) Version(ctx context.Context) (string, error) {
	res, err := t.run(ctx, "", "version", "-json")
	if err != nil {
		return "", err
	}

	var payload struct {
		Version string `json:"terraform_version"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeEngine, "failed to parse engine version output")
	}
	return payload.Version, nil
}

// Init initializes the working directory against its declared backend
func (t *TerraformCLI) Init(ctx context.Context, dir string, opts InitOptions) error {
	args := []string{"init", "-input=false", "-no-color"}
	if opts.Reconfigure {
		args = append(args, "-reconfigure")
	}
	if opts.ForceCopy {
		args = append(args, "-force-copy")
	}
	_, err := t.run(ctx, dir, args...)
	return err
}

// StatePull reads the authoritative state through the engine
func (t *TerraformCLI) StatePull(ctx context.Context, dir string) ([]byte, error) {
	res, err := t.run(ctx, dir, "state", "pull")
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// StatePush pushes a local state artifact as the authoritative state
func (t *TerraformCLI) StatePush(ctx context.Context, dir, stateFile string) error {
	_, err := t.run(ctx, dir, "state", "push", stateFile)
	return err
}

// Plan runs the diff with -detailed-exitcode: 0 no changes, 1 error,
// 2 changes pending. Only exit code 1 is treated as an engine failure.
func (t *TerraformCLI) Plan(ctx context.Context, dir string) (PlanOutcome, string, error) {
	res, err := t.run(ctx, dir, "plan", "-input=false", "-no-color", "-detailed-exitcode")
	if err == nil {
		return PlanNoChanges, res.Stdout, nil
	}

	var structured *apperrors.Error
	if errors.As(err, &structured) && structured.Type == apperrors.ErrorTypeTimeout {
		return PlanError, "", err
	}

	if res != nil && res.ExitCode == 2 {
		return PlanChanges, res.Stdout, nil
	}
	if res != nil {
		return PlanError, res.Stdout, err
	}
	return PlanError, "", err
}

// ShowJSON returns the engine's structured rendering of the current state
func (t *TerraformCLI) ShowJSON(ctx context.Context, dir string) ([]byte, error) {
	res, err := t.run(ctx, dir, "show", "-json")
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// WorkspaceList lists named workspaces
func (t *TerraformCLI) WorkspaceList(ctx context.Context, dir string) (string, error) {
	res, err := t.run(ctx, dir, "workspace", "list")
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// WorkspaceNew creates a named workspace
func (t *TerraformCLI) WorkspaceNew(ctx context.Context, dir, name string) error {
	_, err := t.run(ctx, dir, "workspace", "new", name)
	return err
}

// WorkspaceSelect switches to a named workspace
func (t *TerraformCLI) WorkspaceSelect(ctx context.Context, dir, name string) error {
	_, err := t.run(ctx, dir, "workspace", "select", name)
	return err
}

// WorkspaceDelete removes a named workspace
func (t *TerraformCLI) WorkspaceDelete(ctx context.Context, dir, name string) error {
	_, err := t.run(ctx, dir, "workspace", "delete", name)
	return err
}

// runResult captures one subprocess invocation
type runResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// run executes the engine binary in an explicit working directory. The
// caller-supplied context bounds the call; on expiry the subprocess is
// abandoned and a timeout error surfaces. The remote side may still be
// completing, which is a documented limitation of a lockless backend.
func (t *TerraformCLI) run(ctx context.Context, dir string, args ...string) (*runResult, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.binary, args...)
	// Engine child processes (providers, provisioners) inherit the output
	// pipes and can outlive the killed parent; without a wait delay, Run
	// blocks past the deadline until the whole process tree drains.
	cmd.WaitDelay = engineWaitDelay
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(),
		"TF_IN_AUTOMATION=1",
		"TF_INPUT=0",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &runResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	t.log.Debug("engine command finished",
		logger.String("args", strings.Join(args, " ")),
		logger.String("dir", dir),
		logger.Field{Key: "duration", Value: result.Duration})

	if err == nil {
		return result, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return result, apperrors.NewTimeoutError("engine command %q timed out after %s", args[0], t.timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, apperrors.NewEngineError(err, strings.TrimSpace(result.Stderr))
	}

	return result, apperrors.Wrap(err, apperrors.ErrorTypeEngine, "failed to start provisioning engine")
}
