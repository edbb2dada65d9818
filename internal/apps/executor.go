package apps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"github.com/JaneliaSciComp/fileglancer-server/internal/store"
	"go.uber.org/zap"
)

var pathUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Executor runs jobs as local processes, one work directory per job,
// and records their lifecycle in the store.
type Executor struct {
	store         *store.Store
	log           *logging.Logger
	fetcher       *Fetcher
	baseDir       string
	zombieTimeout time.Duration

	mu      sync.Mutex
	running map[string]*exec.Cmd
	wg      sync.WaitGroup
}

// NewExecutor creates an executor rooted at baseDir (work directories
// live under baseDir/jobs).
func NewExecutor(st *store.Store, fetcher *Fetcher, cfg config.AppsConfig, log *logging.Logger) *Executor {
	return &Executor{
		store:         st,
		log:           log,
		fetcher:       fetcher,
		baseDir:       config.ExpandHome(cfg.Dir),
		zombieTimeout: time.Duration(cfg.ZombieTimeoutMinutes) * time.Minute,
		running:       make(map[string]*exec.Cmd),
	}
}

// Manifest fetches an app manifest without submitting anything.
func (e *Executor) Manifest(repoURL, manifestPath string) (*Manifest, error) {
	return e.fetcher.Fetch(repoURL, manifestPath)
}

// SubmitRequest describes one job submission.
type SubmitRequest struct {
	AppURL       string            `json:"app_url"`
	ManifestPath string            `json:"manifest_path,omitempty"`
	EntryPointID string            `json:"entry_point_id"`
	Parameters   map[string]any    `json:"parameters,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	PreRun       string            `json:"pre_run,omitempty"`
	PostRun      string            `json:"post_run,omitempty"`
}

// Submit fetches the manifest, validates parameters, builds the job
// script, and starts the process.
func (e *Executor) Submit(ctx context.Context, username string, req SubmitRequest) (model.Job, error) {
	manifest, err := e.fetcher.Fetch(req.AppURL, req.ManifestPath)
	if err != nil {
		return model.Job{}, err
	}
	ep, ok := manifest.EntryPoint(req.EntryPointID)
	if !ok {
		return model.Job{}, fmt.Errorf("entry point %q not found in manifest", req.EntryPointID)
	}

	command, err := BuildCommand(ep, req.Parameters)
	if err != nil {
		return model.Job{}, err
	}

	// Manifest env defaults overridden by user values.
	env := make(map[string]string, len(ep.Env)+len(req.Env))
	for k, v := range ep.Env {
		env[k] = v
	}
	for k, v := range req.Env {
		env[k] = v
	}
	envExports, err := BuildEnvExports(env)
	if err != nil {
		return model.Job{}, err
	}

	preRun := ep.PreRun
	if req.PreRun != "" {
		preRun = req.PreRun
	}
	postRun := ep.PostRun
	if req.PostRun != "" {
		postRun = req.PostRun
	}

	job := model.Job{
		ID:           uuid.NewString(),
		Username:     username,
		AppURL:       req.AppURL,
		AppName:      manifest.Name,
		EntryPointID: ep.ID,
		Parameters:   stringifyParams(req.Parameters),
		Status:       model.JobPending,
		CreatedAt:    time.Now().UTC(),
	}
	job.WorkDir = e.workDir(job.ID, manifest.Name, ep.ID)
	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return model.Job{}, fmt.Errorf("creating work directory: %w", err)
	}

	script := buildScript(job.WorkDir, envExports, preRun, command, postRun)
	scriptPath := filepath.Join(job.WorkDir, "run.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		return model.Job{}, fmt.Errorf("writing job script: %w", err)
	}

	if err := e.store.CreateJob(ctx, job); err != nil {
		return model.Job{}, err
	}

	if err := e.start(job, scriptPath); err != nil {
		now := time.Now().UTC()
		code := -1
		_ = e.store.UpdateJobStatus(context.Background(), job.ID, model.JobFailed, &code, nil, &now)
		return model.Job{}, err
	}

	e.log.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("user", username),
		zap.String("app", manifest.Name),
		zap.String("entry_point", ep.ID),
		zap.String("work_dir", job.WorkDir))
	return e.store.GetJob(ctx, username, job.ID)
}

// start launches the job process with stdout/stderr captured to log
// files, then watches it in a goroutine.
func (e *Executor) start(job model.Job, scriptPath string) error {
	stdout, err := os.Create(filepath.Join(job.WorkDir, "stdout.log"))
	if err != nil {
		return err
	}
	stderr, err := os.Create(filepath.Join(job.WorkDir, "stderr.log"))
	if err != nil {
		stdout.Close()
		return err
	}

	cmd := exec.Command("bash", scriptPath)
	cmd.Dir = job.WorkDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own process group so Cancel can kill the whole job tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("starting job process: %w", err)
	}

	started := time.Now().UTC()
	_ = e.store.UpdateJobStatus(context.Background(), job.ID, model.JobRunning, nil, &started, nil)
	_ = e.store.SetJobClusterID(context.Background(), job.ID, strconv.Itoa(cmd.Process.Pid))

	e.mu.Lock()
	e.running[job.ID] = cmd
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer stdout.Close()
		defer stderr.Close()

		err := cmd.Wait()
		finished := time.Now().UTC()
		code := 0
		status := model.JobDone
		if err != nil {
			status = model.JobFailed
			code = -1
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			}
		}

		e.mu.Lock()
		_, stillTracked := e.running[job.ID]
		delete(e.running, job.ID)
		e.mu.Unlock()

		// Cancel already recorded KILLED and untracked the job.
		if !stillTracked {
			return
		}
		if uerr := e.store.UpdateJobStatus(context.Background(), job.ID, status, &code, nil, &finished); uerr != nil {
			e.log.Error("failed to record job exit", zap.String("job_id", job.ID), zap.Error(uerr))
		}
		e.log.Info("job finished",
			zap.String("job_id", job.ID),
			zap.String("status", string(status)),
			zap.Int("exit_code", code))
	}()
	return nil
}

// Cancel kills a running job's process group and marks it KILLED.
func (e *Executor) Cancel(ctx context.Context, username, jobID string) (model.Job, error) {
	job, err := e.store.GetJob(ctx, username, jobID)
	if err != nil {
		return model.Job{}, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	e.mu.Lock()
	cmd, ok := e.running[jobID]
	delete(e.running, jobID)
	e.mu.Unlock()

	if ok && cmd.Process != nil {
		// Negative pid targets the process group.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}

	now := time.Now().UTC()
	if err := e.store.UpdateJobStatus(ctx, jobID, model.JobKilled, nil, nil, &now); err != nil {
		return model.Job{}, err
	}
	return e.store.GetJob(ctx, username, jobID)
}

// Reconcile marks store-active jobs that no longer have a live process
// as FAILED. Jobs are given a grace period before being declared
// zombies.
func (e *Executor) Reconcile(ctx context.Context) error {
	active, err := e.store.ListActiveJobs(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, job := range active {
		e.mu.Lock()
		_, live := e.running[job.ID]
		e.mu.Unlock()
		if live {
			continue
		}
		if now.Sub(job.CreatedAt) < e.zombieTimeout {
			continue
		}
		e.log.Warn("reconciling zombie job", zap.String("job_id", job.ID))
		code := -1
		if err := e.store.UpdateJobStatus(ctx, job.ID, model.JobFailed, &code, nil, &now); err != nil {
			return err
		}
	}
	return nil
}

// RunReconciler periodically reconciles until the context is cancelled.
func (e *Executor) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Reconcile(ctx); err != nil {
				e.log.Error("job reconciliation failed", zap.Error(err))
			}
		}
	}
}

// Wait blocks until all watcher goroutines have finished. Used in
// shutdown and tests.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) workDir(jobID, appName, entryPointID string) string {
	name := fmt.Sprintf("%s-%s-%s", jobID, sanitizeForPath(appName), sanitizeForPath(entryPointID))
	return filepath.Join(e.baseDir, "jobs", name)
}

func sanitizeForPath(s string) string {
	return pathUnsafe.ReplaceAllString(s, "_")
}

// buildScript assembles the job script: env exports, pre-run, the
// command, post-run.
func buildScript(workDir, envExports, preRun, command, postRun string) string {
	parts := []string{"#!/bin/bash", "set -o pipefail", "cd " + ShellQuote(workDir)}
	if envExports != "" {
		parts = append(parts, envExports)
	}
	if preRun != "" {
		parts = append(parts, strings.TrimSpace(preRun))
	}
	parts = append(parts, command)
	if postRun != "" {
		parts = append(parts, strings.TrimSpace(postRun))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func stringifyParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprint(v)
	}
	return out
}
