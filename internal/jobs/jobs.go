// Package jobs orchestrates asynchronous song-identification requests.
// A submission is validated against its tier up front, then runs
// through a fixed stage pipeline in its own goroutine:
//
//	queued -> preprocessing -> transcribing -> matching -> complete
//
// with error as the single early-exit state. A weighted semaphore
// bounds how many jobs run concurrently; excess jobs stay queued until
// a slot frees. All mutable job state lives behind one mutex, and
// callers only ever see deep-copied snapshots.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/lyricmatch/internal/audio"
	"github.com/dshills/lyricmatch/internal/tier"
	"github.com/dshills/lyricmatch/internal/transcribe"
	"github.com/dshills/lyricmatch/pkg/types"
)

// Common errors
var (
	ErrJobNotFound      = errors.New("job not found")
	ErrShutdown         = errors.New("orchestrator is shut down")
	ErrModelUnavailable = errors.New("embedding model not loaded")
)

// Orchestration defaults.
const (
	DefaultPoolSize      = 4
	DefaultStageTimeout  = 5 * time.Minute
	DefaultRetention     = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Matcher is the matching engine surface the pipeline needs. Model
// reports the embedding model the engine actually runs, so Submit can
// reject requests naming a model that is not loaded instead of
// silently serving vectors from another one.
type Matcher interface {
	Match(ctx context.Context, query string, mode types.EngineMode, topK int, hybridWeight float64) ([]types.MatchResult, error)
	Model() string
}

// Config tunes the orchestrator. Zero values select the defaults.
type Config struct {
	PoolSize      int
	StageTimeout  time.Duration
	Retention     time.Duration
	SweepInterval time.Duration
}

func (c *Config) normalize() {
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = DefaultStageTimeout
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
}

// SubmitRequest is one identification request.
type SubmitRequest struct {
	Caller       string // quota key, typically an API key or user id
	Tier         string
	AudioPath    string
	UploadBytes  int64
	LanguageHint string
	Config       types.EngineConfig
}

// Orchestrator owns the job map and the worker pool.
type Orchestrator struct {
	gate        *tier.Gate
	quota       *tier.Quota
	processor   audio.Processor
	transcriber transcribe.Transcriber
	matcher     Matcher
	cfg         Config

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*types.Job
}

// New creates an orchestrator and starts its retention sweeper.
func New(gate *tier.Gate, quota *tier.Quota, proc audio.Processor, tr transcribe.Transcriber, m Matcher, cfg Config) *Orchestrator {
	cfg.normalize()

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		gate:        gate,
		quota:       quota,
		processor:   proc,
		transcriber: tr,
		matcher:     m,
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(cfg.PoolSize)),
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*types.Job),
	}

	o.wg.Add(1)
	go o.sweep()
	return o
}

// Submit validates the request and enqueues a job. Validation failures
// surface here with no job created; everything after this point is
// reported through the job's own state.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := o.ctx.Err(); err != nil {
		return "", ErrShutdown
	}

	if err := o.gate.Validate(req.Tier, req.Config, req.UploadBytes); err != nil {
		return "", err
	}
	if req.Config.Mode != types.ModeLexical && req.Config.EmbeddingModel != "" && req.Config.EmbeddingModel != o.matcher.Model() {
		return "", fmt.Errorf("%w: %q (active model is %q)", ErrModelUnavailable, req.Config.EmbeddingModel, o.matcher.Model())
	}
	catalog, _ := o.gate.Lookup(req.Tier)
	if err := o.quota.Reserve(req.Caller, catalog); err != nil {
		return "", err
	}

	now := time.Now()
	job := &types.Job{
		ID:        uuid.NewString(),
		State:     types.StateQueued,
		Progress:  types.StateQueued.Progress(),
		Tier:      req.Tier,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(job.ID, req)

	return job.ID, nil
}

// Status returns a snapshot of the job. The copy is deep, so a
// concurrent stage transition can never tear what the caller sees.
func (o *Orchestrator) Status(jobID string) (*types.Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return copyJob(job), nil
}

// Close stops accepting submissions, cancels running stages, and waits
// for job goroutines and the sweeper to exit.
func (o *Orchestrator) Close() error {
	o.cancel()
	o.wg.Wait()
	return nil
}

// run executes the stage pipeline for one job. The semaphore is
// acquired here rather than in Submit, so a full pool queues jobs
// instead of rejecting them.
func (o *Orchestrator) run(jobID string, req SubmitRequest) {
	defer o.wg.Done()

	if err := o.sem.Acquire(o.ctx, 1); err != nil {
		o.fail(jobID, fmt.Errorf("orchestrator shutting down: %w", err))
		return
	}
	defer o.sem.Release(1)

	// Preprocessing
	o.transition(jobID, types.StatePreprocessing)
	info, err := o.stage1Preprocess(req)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	o.update(jobID, func(j *types.Job) { j.Audio = info })

	// Transcription
	o.transition(jobID, types.StateTranscribing)
	result, err := o.stage2Transcribe(req)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	o.update(jobID, func(j *types.Job) {
		j.Transcript = result.Text
		j.Language = result.Language
		j.LanguageConfidence = result.Confidence
		if j.Audio != nil && j.Audio.Duration == 0 {
			j.Audio.Duration = result.Duration
		}
	})

	// A clip with no recognizable speech is a valid outcome, not an
	// error: complete with zero results
	if strings.TrimSpace(result.Text) == "" {
		o.update(jobID, func(j *types.Job) { j.Results = []types.MatchResult{} })
		o.transition(jobID, types.StateComplete)
		return
	}

	// Matching
	o.transition(jobID, types.StateMatching)
	results, err := o.stage3Match(req, result.Text)
	if err != nil {
		o.fail(jobID, err)
		return
	}

	o.update(jobID, func(j *types.Job) { j.Results = results })
	o.transition(jobID, types.StateComplete)
}

func (o *Orchestrator) stage1Preprocess(req SubmitRequest) (*types.AudioInfo, error) {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.StageTimeout)
	defer cancel()

	info, err := o.processor.Preprocess(ctx, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("preprocessing failed: %w", err)
	}
	return info, nil
}

func (o *Orchestrator) stage2Transcribe(req SubmitRequest) (*transcribe.Result, error) {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.StageTimeout)
	defer cancel()

	result, err := o.transcriber.Transcribe(ctx, req.AudioPath, req.Config.TranscriptionQuality, req.LanguageHint)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	return result, nil
}

// stage3Match runs the requested engine. When the embedding backend is
// unavailable for a semantic or hybrid job, the job degrades to
// lexical matching rather than failing outright.
func (o *Orchestrator) stage3Match(req SubmitRequest, transcript string) ([]types.MatchResult, error) {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.StageTimeout)
	defer cancel()

	results, err := o.matcher.Match(ctx, transcript, req.Config.Mode, req.Config.TopK, req.Config.HybridWeight)
	if err == nil {
		return results, nil
	}

	if errors.Is(err, types.ErrEmbeddingUnavailable) && req.Config.Mode != types.ModeLexical {
		log.Printf("job matching: embeddings unavailable, falling back to lexical: %v", err)
		results, err = o.matcher.Match(ctx, transcript, types.ModeLexical, req.Config.TopK, 0)
		if err == nil {
			return results, nil
		}
	}

	return nil, fmt.Errorf("matching failed: %w", err)
}

// transition moves a job into state and syncs its progress. Terminal
// jobs are never moved again.
func (o *Orchestrator) transition(jobID string, state types.State) {
	o.update(jobID, func(j *types.Job) {
		if j.State.Terminal() {
			return
		}
		j.State = state
		j.Progress = state.Progress()
	})
}

func (o *Orchestrator) fail(jobID string, cause error) {
	o.update(jobID, func(j *types.Job) {
		if j.State.Terminal() {
			return
		}
		j.State = types.StateError
		j.Err = cause.Error()
	})
}

func (o *Orchestrator) update(jobID string, fn func(*types.Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[jobID]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now()
}

// sweep periodically deletes jobs past the retention window.
func (o *Orchestrator) sweep() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.sweepOnce(time.Now())
		}
	}
}

// sweepOnce removes every job created before the retention cutoff,
// whatever its state. A job parked behind a saturated pool has no
// stage timeout running, so sweeping only terminal jobs would let the
// job table grow without bound. Late updates from a swept job's
// goroutine land on a missing map entry and are dropped.
func (o *Orchestrator) sweepOnce(now time.Time) {
	cutoff := now.Add(-o.cfg.Retention)

	o.mu.Lock()
	defer o.mu.Unlock()

	for id, job := range o.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(o.jobs, id)
		}
	}
}

func copyJob(src *types.Job) *types.Job {
	dst := *src

	if src.Audio != nil {
		a := *src.Audio
		dst.Audio = &a
	}
	if src.Results != nil {
		dst.Results = make([]types.MatchResult, len(src.Results))
		copy(dst.Results, src.Results)
		for i := range dst.Results {
			dst.Results[i].LexicalScore = cloneScore(dst.Results[i].LexicalScore)
			dst.Results[i].SemanticScore = cloneScore(dst.Results[i].SemanticScore)
			dst.Results[i].FuzzyScore = cloneScore(dst.Results[i].FuzzyScore)
		}
	}
	return &dst
}

func cloneScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
