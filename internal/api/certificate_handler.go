package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"certforge/internal/api/middleware"
	"certforge/internal/database"
	"certforge/internal/render"
	"certforge/internal/tasks"
	"certforge/internal/template"
)

// Renderer is the export pipeline the handler drives. Satisfied by
// *render.Orchestrator; tests substitute a fake.
type Renderer interface {
	Render(ctx context.Context, cert template.CertificateData, format render.Format) (*render.Result, error)
	Preview(cert template.CertificateData) (string, error)
}

// ArtifactStore is the slice of the storage client the handler needs.
type ArtifactStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	InlineElementImages(ctx context.Context, doc *template.TemplateData) ([]string, error)
}

// CertificateHandler serves certificate export, preview and verification.
type CertificateHandler struct {
	db            *gorm.DB
	asynqClient   *asynq.Client
	storage       ArtifactStore
	renderer      Renderer
	publicBaseURL string
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(
	db *gorm.DB,
	asynqClient *asynq.Client,
	storageClient ArtifactStore,
	renderer Renderer,
	publicBaseURL string,
) *CertificateHandler {
	return &CertificateHandler{
		db:            db,
		asynqClient:   asynqClient,
		storage:       storageClient,
		renderer:      renderer,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

var errInvalidCertificateID = errors.New("invalid certificate id")

// errorAlternative is one manual path left to the user after a total render
// failure.
type errorAlternative struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// DownloadCertificate renders the certificate in the requested format and
// streams the binary artifact. Every failure path resolves to either a valid
// artifact or a structured, actionable error payload.
func (h *CertificateHandler) DownloadCertificate(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	format, ok := render.ParseFormat(c.Query("format"))
	if !ok {
		BadRequest(c, "unsupported format, use pdf or png")
		return
	}

	cert, err := h.certificateFromParam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	data, err := cert.RenderData()
	if err != nil {
		Internal(c, "certificate template data is corrupt")
		return
	}

	if missing, inlineErr := h.storage.InlineElementImages(c.Request.Context(), &data.TemplateData); inlineErr != nil {
		Internal(c, "failed to load certificate assets")
		return
	} else if len(missing) > 0 {
		log.Warn("rendering with missing assets", "missing_keys", missing)
	}

	result, err := h.renderer.Render(c.Request.Context(), data, format)
	if err != nil {
		log.Error("certificate render failed",
			"certificate_id", cert.CertificateNumber,
			"error", err,
		)
		h.respondRenderFailure(c, cert, format)
		return
	}

	filename := artifactFilename(cert, result.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", strconv.Itoa(len(result.Data)))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, result.Format.ContentType(), result.Data)
}

// respondRenderFailure builds the structured failure payload: the user must
// always be left with at least one manual path to their document.
func (h *CertificateHandler) respondRenderFailure(c *gin.Context, cert *database.Certificate, requested render.Format) {
	alternate := render.FormatPNG
	if requested == render.FormatPNG {
		alternate = render.FormatPDF
	}

	base := fmt.Sprintf("%s/v1/certificates/%d", h.publicBaseURL, cert.ID)
	viewURL := base + "/view"

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "render_failed",
		"message": "The certificate could not be exported automatically.\n" +
			"You can open the preview page and use your browser's print dialog,\n" +
			"retry the download in the alternate format, or download the raw HTML.",
		"certificateId": cert.CertificateNumber,
		"viewUrl":       viewURL,
		"alternatives": []errorAlternative{
			{
				Method:      http.MethodGet,
				URL:         viewURL,
				Description: "Open the live preview and print it manually",
			},
			{
				Method:      http.MethodGet,
				URL:         fmt.Sprintf("%s/download?format=%s", base, alternate),
				Description: fmt.Sprintf("Retry the download as %s", strings.ToUpper(string(alternate))),
			},
			{
				Method:      http.MethodGet,
				URL:         base + "/html",
				Description: "Download the raw HTML document",
			},
		},
	})
}

// ViewCertificate serves the live HTML preview of the certificate.
func (h *CertificateHandler) ViewCertificate(c *gin.Context) {
	cert, err := h.certificateFromParam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	html, err := h.previewHTML(c.Request.Context(), cert)
	if err != nil {
		Internal(c, "failed to compose preview")
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// DownloadHTML serves the composed document as an attachment, the last
// manual escape hatch when binary export keeps failing.
func (h *CertificateHandler) DownloadHTML(c *gin.Context) {
	cert, err := h.certificateFromParam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	html, err := h.previewHTML(c.Request.Context(), cert)
	if err != nil {
		Internal(c, "failed to compose document")
		return
	}

	filename := strings.TrimSuffix(artifactFilename(cert, render.FormatPDF), ".pdf") + ".html"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *CertificateHandler) previewHTML(ctx context.Context, cert *database.Certificate) (string, error) {
	data, err := cert.RenderData()
	if err != nil {
		return "", err
	}
	if _, err := h.storage.InlineElementImages(ctx, &data.TemplateData); err != nil {
		return "", err
	}
	return h.renderer.Preview(data)
}

// GetDownloadLink returns a presigned URL for a cached artifact.
func (h *CertificateHandler) GetDownloadLink(c *gin.Context) {
	format, ok := render.ParseFormat(c.Query("format"))
	if !ok {
		BadRequest(c, "unsupported format, use pdf or png")
		return
	}

	cert, err := h.certificateFromParam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	objectKey := cert.PdfPath
	if format == render.FormatPNG {
		objectKey = cert.PngPath
	}
	if objectKey == "" {
		Conflict(c, "artifact not rendered yet")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

type enqueueRenderRequest struct {
	Format string `json:"format"`
}

// EnqueueRender queues a background render-and-cache task for the
// certificate.
func (h *CertificateHandler) EnqueueRender(c *gin.Context) {
	var req enqueueRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, err.Error())
		return
	}

	format, ok := render.ParseFormat(req.Format)
	if !ok {
		BadRequest(c, "unsupported format, use pdf or png")
		return
	}

	cert, err := h.certificateFromParam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCertificateRenderTask(cert.ID, string(format), correlationID)
	if err != nil {
		Internal(c, "failed to build render task")
		return
	}
	if _, err := h.asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
		Internal(c, "failed to enqueue render task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":         "queued",
		"certificate_id": cert.ID,
		"format":         string(format),
		"correlation_id": correlationID,
	})
}

// VerifyCertificate is the public trust surface: given a verification ID it
// returns certificate metadata plus a validity verdict.
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	verificationID := strings.TrimSpace(c.Param("verificationId"))
	if verificationID == "" {
		BadRequest(c, "verification id is required")
		return
	}

	var cert database.Certificate
	err := h.db.WithContext(c.Request.Context()).
		Where("verification_id = ?", verificationID).
		First(&cert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"valid":   false,
				"message": "No certificate matches this verification code.",
			})
			return
		}
		Internal(c, "failed to look up certificate")
		return
	}

	valid := cert.Status != "revoked"
	message := "This certificate is authentic and was issued by " + cert.IssuerName + "."
	if !valid {
		message = "This certificate has been revoked and is no longer valid."
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":             valid,
		"message":           message,
		"certificateNumber": cert.CertificateNumber,
		"recipientName":     strings.TrimSpace(cert.RecipientFirstName + " " + cert.RecipientLastName),
		"issuerName":        cert.IssuerName,
		"issueDate":         cert.IssueDate.Format("2006-01-02"),
	})
}

func (h *CertificateHandler) certificateFromParam(ctx context.Context, idParam string) (*database.Certificate, error) {
	certID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidCertificateID
	}

	var cert database.Certificate
	if err := h.db.WithContext(ctx).
		Preload("Template").
		First(&cert, uint(certID)).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (h *CertificateHandler) respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidCertificateID):
		BadRequest(c, "invalid certificate id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "certificate not found")
	default:
		Internal(c, "failed to query certificate")
	}
}

// artifactFilename builds "<Template>-<FirstName>-<LastName>.<ext>".
func artifactFilename(cert *database.Certificate, format render.Format) string {
	templateName := cert.Template.Name
	if templateName == "" {
		templateName = "Certificate"
	}
	name := fmt.Sprintf("%s-%s-%s.%s",
		sanitizeFilenamePart(templateName),
		sanitizeFilenamePart(cert.RecipientFirstName),
		sanitizeFilenamePart(cert.RecipientLastName),
		format.Ext(),
	)
	return name
}

func sanitizeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		"\"", "",
		"\n", "",
		"\r", "",
	)
	s = replacer.Replace(s)
	if s == "" {
		return "Unknown"
	}
	return s
}
