package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"callscribe/internal/logging"
	"callscribe/internal/queue"
	"callscribe/internal/services"
)

func (m *Manager) processCall(ctx context.Context, call *queue.Call) error {
	stg, ok := m.stageByStart[call.Status]
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(call.Status)))
		m.waitOrShutdown(ctx, m.pollInterval)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithCallID(ctx, call.ID)
	stageCtx = services.WithStage(stageCtx, stg.name)
	stageCtx = services.WithRequestID(stageCtx, requestID)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if err := m.transitionToProcessing(stageCtx, stg, call); err != nil {
		stageLogger.Error("failed to transition call to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, call)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, call *queue.Call) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("title", strings.TrimSpace(call.Title)),
		logging.String("source_file", strings.TrimSpace(call.SourcePath)),
	)

	if stg.handler == nil {
		call.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, call); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := stg.handler.Prepare(ctx, call); err != nil {
		m.handleStageFailure(ctx, stg.name, call, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, call); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithTimeout(ctx, stg, call)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, call, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if call.Status == stg.processingStatus || call.Status == "" {
		call.Status = stg.doneStatus
	}
	if call.Status == queue.StatusCompleted && call.NeedsReview {
		call.Status = queue.StatusReview
	}
	if err := m.store.Update(ctx, call); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(call.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// executeWithTimeout bounds a single stage execution so one stuck call cannot
// wedge the daemon.
func (m *Manager) executeWithTimeout(ctx context.Context, stg pipelineStage, call *queue.Call) error {
	timeout := time.Duration(m.cfg.Workflow.CallTimeoutSeconds) * time.Second
	if timeout <= 0 {
		return stg.handler.Execute(ctx, call)
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := stg.handler.Execute(execCtx, call)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return services.Wrap(services.ErrTimeout, stg.name, "execute",
			fmt.Sprintf("stage exceeded %s timeout", timeout), err)
	}
	return err
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, call *queue.Call) error {
	call.Status = stg.processingStatus
	call.ProgressPercent = 0
	call.ErrorMessage = ""
	if err := m.store.Update(ctx, call); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	return nil
}

// handleStageFailure classifies the error into a terminal status and persists
// it. Validation and configuration problems land in review since retrying
// them unchanged cannot succeed; everything else is failed and retryable.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, call *queue.Call, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stageName)
	}

	status := services.FailureStatus(stageErr)
	call.SetFailed(message)
	call.Status = status
	if status == queue.StatusReview {
		call.NeedsReview = true
		if call.ReviewReason == "" {
			call.ReviewReason = message
		}
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(status)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, call); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
}
