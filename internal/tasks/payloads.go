package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep queue producers and consumers in agreement.
const (
	TypeCertificateRender = "certificate:render"
)

// CertificateRenderPayload carries the minimum needed to render and cache a
// certificate artifact in the background.
type CertificateRenderPayload struct {
	CertificateID uint   `json:"certificate_id"`
	Format        string `json:"format"`
	CorrelationID string `json:"correlation_id"`
}

// NewCertificateRenderTask builds a background render task.
func NewCertificateRenderTask(id uint, format, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CertificateRenderPayload{
		CertificateID: id,
		Format:        format,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCertificateRender, payload), nil
}
