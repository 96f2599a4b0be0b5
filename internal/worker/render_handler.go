package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certforge/internal/database"
	"certforge/internal/errcode"
	"certforge/internal/render"
	"certforge/internal/storage"
	"certforge/internal/tasks"
)

// RenderTaskHandler consumes certificate render tasks: it renders the
// certificate, uploads the artifact and caches the object key on the record.
type RenderTaskHandler struct {
	db           *gorm.DB
	storage      *storage.Client
	redisClient  *redis.Client
	orchestrator *render.Orchestrator
	logger       *slog.Logger
}

// NewRenderTaskHandler creates the task handler.
func NewRenderTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	orchestrator *render.Orchestrator,
	logger *slog.Logger,
) *RenderTaskHandler {
	return &RenderTaskHandler{
		db:           db,
		storage:      storageClient,
		redisClient:  redisClient,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *RenderTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CertificateRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("certificate_id", uint64(payload.CertificateID)),
		slog.String("format", payload.Format),
	)
	log.Info("starting certificate render task")

	format, ok := render.ParseFormat(payload.Format)
	if !ok {
		log.Error("unsupported format in payload, skipping task")
		return nil
	}

	var cert database.Certificate
	if err := h.db.WithContext(ctx).First(&cert, payload.CertificateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("certificate not found, skipping task")
			return nil
		}
		log.Error("query certificate failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := RenderNotifyMessage{
			Status:        "error",
			CertificateID: cert.ID,
			Format:        string(format),
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishRenderNotify(ctx, cert.ID, notify); err != nil {
			log.Error("publish render error notification failed", slog.Any("error", err))
		}
	}()

	data, err := cert.RenderData()
	if err != nil {
		log.Error("decode certificate template data failed", slog.Any("error", err))
		return err
	}

	missingKeys, err := h.storage.InlineElementImages(ctx, &data.TemplateData)
	if err != nil {
		log.Error("inline element images failed", slog.Any("error", err))
		return err
	}

	result, err := h.orchestrator.Render(ctx, data, format)
	if err != nil {
		log.Error("render certificate failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("certificates/%d/%s.%s", cert.ID, uuid.NewString(), result.Format.Ext())
	reader := bytes.NewReader(result.Data)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(result.Data)), result.Format.ContentType()); err != nil {
		log.Error("upload artifact to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{"status": "completed"}
	switch result.Format {
	case render.FormatPDF:
		update["pdf_path"] = objectName
	case render.FormatPNG:
		update["png_path"] = objectName
	}
	if err := h.db.WithContext(ctx).Model(&cert).Updates(update).Error; err != nil {
		log.Error("update certificate failed", slog.Any("error", err))
		return err
	}

	notify := RenderNotifyMessage{
		Status:        "completed",
		CertificateID: cert.ID,
		Format:        string(result.Format),
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if result.Format != format {
		notify.ErrorCode = errcode.FormatFellBack
		notify.ErrorMessage = fmt.Sprintf("requested %s was unavailable, rendered %s instead", format, result.Format)
		log.Warn("render fell back to another format",
			slog.String("requested", string(format)),
			slog.String("produced", string(result.Format)),
		)
	}
	if len(missingKeys) > 0 {
		if notify.ErrorCode == errcode.OK {
			notify.ErrorCode = errcode.ResourceMissing
			notify.ErrorMessage = "some image assets were missing and have been skipped"
		}
		notify.MissingKeys = missingKeys
		log.Warn("rendered with missing assets",
			slog.Int("missing_count", len(missingKeys)),
			slog.Any("missing_keys", missingKeys),
		)
	}
	if err := h.publishRenderNotify(ctx, cert.ID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("certificate render task completed")
	return nil
}

func (h *RenderTaskHandler) publishRenderNotify(ctx context.Context, certID uint, notify RenderNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("cert_notify:%d", certID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
