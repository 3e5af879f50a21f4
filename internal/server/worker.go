package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/dotscan/internal/detect"
	"github.com/cwbudde/dotscan/internal/extract"
	"github.com/cwbudde/dotscan/internal/raster"
)

// runJob executes a detection job in the background. Cancellation through
// ctx lands the job in the cancelled state; any other error marks it
// failed with the message preserved on the job.
func runJob(ctx context.Context, jm *JobManager, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.Stage = StageLoading
	})
	if err != nil {
		return err
	}
	broadcastState(jm, jobID)

	slog.Info("Starting job", "job_id", jobID, "source", job.Request.Source)

	img, err := raster.Load(job.Request.Source)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to load source: %w", err))
		return err
	}

	pal, err := resolvePalette(img, job.Request)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	cfg := job.Request.DetectConfig()
	if err := cfg.Validate(); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	slog.Info("Loaded source image",
		"job_id", jobID,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"palette", pal.Names(),
	)

	if job.Request.Calibrate {
		setStage(jm, jobID, StageCalibrating)
		minR, maxR, err := detect.Calibrate(ctx, img, pal, job.Request.Reference, cfg)
		if err != nil {
			if ctx.Err() != nil {
				markJobCancelled(jm, jobID)
				return ctx.Err()
			}
			markJobFailed(jm, jobID, fmt.Errorf("calibration failed: %w", err))
			return err
		}
		cfg.MinRadius, cfg.MaxRadius = minR, maxR
		slog.Info("Calibrated radius bounds", "job_id", jobID, "min_radius", minR, "max_radius", maxR)
	}

	// Check for cancellation before the expensive pass
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	setStage(jm, jobID, StageDetecting)
	start := time.Now()

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	circles, err := detect.Run(ctx, img, pal, cfg)
	close(progressDone)
	if err != nil {
		if ctx.Err() != nil {
			markJobCancelled(jm, jobID)
			return ctx.Err()
		}
		markJobFailed(jm, jobID, err)
		return err
	}
	elapsed := time.Since(start)

	if method := job.Request.ExtractMethod; method != "" {
		setStage(jm, jobID, StageExtracting)
		circles, err = extract.Extract(img, circles, method)
		if err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Stage = StageDone
		j.Circles = circles
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"circles", len(circles),
	)

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Stage:     StageDone,
		Circles:   len(circles),
		Timestamp: time.Now(),
	})

	return nil
}

// monitorProgress periodically rebroadcasts job state during detection
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			broadcastState(jm, jobID)
		}
	}
}

// broadcastState pushes the job's current state to stream subscribers
func broadcastState(jm *JobManager, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     job.State,
		Stage:     job.Stage,
		Circles:   len(job.Circles),
		Timestamp: time.Now(),
	})
}

// setStage records the worker's stage and notifies subscribers
func setStage(jm *JobManager, jobID, stage string) {
	jm.UpdateJob(jobID, func(j *Job) {
		j.Stage = stage
	})
	broadcastState(jm, jobID)
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
	broadcastState(jm, jobID)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
	broadcastState(jm, jobID)
}
