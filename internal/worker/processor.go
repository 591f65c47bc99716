package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/extract"
	"github.com/dharsanguruparan/doctranslate/internal/model"
	"github.com/dharsanguruparan/doctranslate/internal/processing"
	"github.com/dharsanguruparan/doctranslate/internal/queue"
	"github.com/dharsanguruparan/doctranslate/internal/status"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

// Messages stored on failed jobs. Details stay in the log.
const (
	MsgTranslationUnavailable = "Translation service unavailable"
	MsgInvalidArchive         = "Invalid or empty ZIP file"
	MsgUnsupportedFormat      = "Unsupported file format"
	MsgProcessingFailed       = "Processing failed"
)

// Processor turns uploaded bytes into a stored, translated artifact.
type Processor interface {
	Process(ctx context.Context, data []byte, originalName, lang string) (string, error)
}

// Dispatcher is plugged into the worker loop. It routes each job to the
// single-file or archive processor and records the outcome.
type Dispatcher struct {
	statuses status.Store
	inputs   artifact.Store
	single   Processor
	archive  Processor
	logger   *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(statuses status.Store, inputs artifact.Store, single, archive Processor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		statuses: statuses,
		inputs:   inputs,
		single:   single,
		archive:  archive,
		logger:   logger,
	}
}

// Dispatch processes one job. The input artifact is removed on every path.
// The returned error has already been recorded as the job's failed status.
func (d *Dispatcher) Dispatch(ctx context.Context, job model.Job) error {
	logger := d.logger.With("job_id", job.ID)
	defer d.removeInput(ctx, job, logger)

	cur, err := d.statuses.Get(ctx, job.ID)
	switch {
	case err == nil && cur.IsDone():
		logger.Info("job already finished, acknowledging", "status", cur.State)
		return nil
	case errors.Is(err, status.ErrNotFound):
		// Producers that bypass the API may not have recorded acceptance.
		if err := d.statuses.Set(ctx, job.ID, model.Processing()); err != nil {
			return fmt.Errorf("record processing: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read status: %w", err)
	}

	// Terminal statuses are written even when ctx was cancelled mid-job: the
	// input is removed regardless, so the job could never be retried.
	record := context.WithoutCancel(ctx)
	failure := func(err error) error {
		logger.Error("translation failed", "kind", job.Kind(), "error", err)
		if serr := d.statuses.Set(record, job.ID, model.Failed(FailureMessage(err))); serr != nil {
			logger.Error("record failure", "error", serr)
		}
		return err
	}

	data, err := d.inputs.Get(ctx, job.InputPath)
	if err != nil {
		return failure(fmt.Errorf("read input: %w", err))
	}
	proc := d.single
	if job.Kind() == model.KindArchive {
		proc = d.archive
	}
	out, err := proc.Process(ctx, data, job.OriginalName, job.TargetLanguage)
	if err != nil {
		return failure(err)
	}
	if err := d.statuses.Set(record, job.ID, model.Completed(out)); err != nil {
		logger.Error("record completion", "error", err)
		return fmt.Errorf("record completion: %w", err)
	}
	logger.Info("job completed", "output", out)
	return nil
}

// Abandon fails a job that was accepted but will never be dispatched, such as
// one still buffered when the in-process pool shuts down.
func (d *Dispatcher) Abandon(ctx context.Context, job model.Job) error {
	logger := d.logger.With("job_id", job.ID)
	defer d.removeInput(ctx, job, logger)
	err := d.statuses.Set(context.WithoutCancel(ctx), job.ID, model.Failed(MsgProcessingFailed))
	if err != nil && !errors.Is(err, status.ErrInvalidTransition) {
		return fmt.Errorf("record abandoned job: %w", err)
	}
	logger.Warn("job abandoned on shutdown")
	return nil
}

func (d *Dispatcher) removeInput(ctx context.Context, job model.Job, logger *slog.Logger) {
	if job.InputPath == "" {
		return
	}
	if err := d.inputs.Remove(context.WithoutCancel(ctx), job.InputPath); err != nil {
		logger.Warn("remove input", "path", job.InputPath, "error", err)
	}
}

// FailureMessage maps a processing error to the message stored on the job.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, translator.ErrUnavailable):
		return MsgTranslationUnavailable
	case errors.Is(err, processing.ErrInvalidArchive):
		return MsgInvalidArchive
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return MsgUnsupportedFormat
	default:
		return MsgProcessingFailed
	}
}

// Handler registers the translate job handler.
func (d *Dispatcher) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TranslateDocumentTask, d.handleTranslate)
	return mux
}

func (d *Dispatcher) handleTranslate(ctx context.Context, task *asynq.Task) error {
	job, err := queue.DecodeJob(task)
	if err != nil {
		d.logger.Error("dropping malformed task", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := d.Dispatch(ctx, job); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}
