package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"certforge/internal/config"
	"certforge/internal/metrics"
	"certforge/internal/template"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Attempt records one backend try inside a render request.
type Attempt struct {
	Backend string
	Err     error
}

// Failure is returned when every backend has been exhausted. It carries
// enough context for the HTTP layer to build an actionable error payload
// instead of a bare 500.
type Failure struct {
	CertificateID string
	Requested     Format
	Attempts      []Attempt
}

func (f *Failure) Error() string {
	parts := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return fmt.Sprintf("all render backends failed for certificate %s: %s",
		f.CertificateID, strings.Join(parts, "; "))
}

// Orchestrator runs the requested backend first and falls back across the
// remaining strategies, validating every artifact before accepting it. It
// never lets a backend error escape unclassified: callers get either a valid
// artifact or a *Failure.
type Orchestrator struct {
	printPDF   Backend
	screenshot Backend
	directPDF  Backend

	// Browser processes are heavyweight; sem bounds how many run at once.
	sem           *semaphore.Weighted
	logger        *slog.Logger
	publicBaseURL string
}

// NewOrchestrator wires the default backend set from configuration.
func NewOrchestrator(cfg config.RenderConfig, publicBaseURL string, factory SessionFactory, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		printPDF:      NewBrowserPrintBackend(cfg, factory, logger),
		screenshot:    NewBrowserScreenshotBackend(cfg, factory, logger),
		directPDF:     NewDirectPDFBackend(cfg.AssetTimeout, logger),
		sem:           semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger:        logger,
		publicBaseURL: publicBaseURL,
	}
}

// chain orders backends for a requested format: the primary first, the
// browser screenshot as the universal fallback (fewest failure modes), and
// the browser-free direct-draw path as the last resort.
func (o *Orchestrator) chain(format Format) []Backend {
	if format == FormatPNG {
		return []Backend{o.screenshot, o.printPDF, o.directPDF}
	}
	return []Backend{o.printPDF, o.screenshot, o.directPDF}
}

// Render produces a binary artifact for the certificate in the requested
// format, falling back to the alternate format when the primary path fails.
func (o *Orchestrator) Render(ctx context.Context, cert template.CertificateData, format Format) (*Result, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire render slot: %w", err)
	}
	defer o.sem.Release(1)

	log := o.logger.With(
		slog.String("certificate_id", cert.ID),
		slog.String("requested_format", string(format)),
	)

	doc := o.resolve(cert)

	failure := &Failure{CertificateID: cert.ID, Requested: format}
	for _, backend := range o.chain(format) {
		start := time.Now()
		result, err := backend.Render(ctx, doc)
		if err == nil {
			err = validateArtifact(result.Data, backend.Format())
		}
		metrics.ObserveRender(backend.Name(), string(backend.Format()), err, time.Since(start))

		if err == nil {
			if backend.Format() != format {
				log.Info("render fell back to alternate format",
					slog.String("backend", backend.Name()),
					slog.String("format", string(backend.Format())),
				)
			}
			return result, nil
		}

		failure.Attempts = append(failure.Attempts, Attempt{Backend: backend.Name(), Err: err})
		log.Warn("render backend failed",
			slog.String("backend", backend.Name()),
			slog.Any("error", err),
		)

		if ctx.Err() != nil {
			// Request canceled: stop burning backends.
			break
		}
	}

	return nil, failure
}

// Preview composes the substituted HTML document without driving a browser.
// It backs the live preview page, the raw-HTML download and the manual-print
// escape hatch in error responses.
func (o *Orchestrator) Preview(cert template.CertificateData) (string, error) {
	return template.Compose(o.resolve(cert))
}

// resolve runs value resolution and placeholder substitution over a deep
// copy of the stored document.
func (o *Orchestrator) resolve(cert template.CertificateData) template.TemplateData {
	values := template.ValuesFor(cert, "", o.publicBaseURL)
	values.QRCodeSource = qrSourceFor(o.logger, cert.QRCodeData, values.VerificationURL)
	return template.ResolveElements(cert.TemplateData, values)
}

// validateArtifact rejects empty buffers and wrong file signatures so an
// invalid backend result is treated as recoverable rather than served.
func validateArtifact(data []byte, format Format) error {
	if len(data) == 0 {
		return fmt.Errorf("backend produced an empty %s buffer", format)
	}
	switch format {
	case FormatPDF:
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			return fmt.Errorf("backend output missing pdf signature")
		}
	case FormatPNG:
		if !bytes.HasPrefix(data, pngSignature) {
			return fmt.Errorf("backend output missing png signature")
		}
	}
	return nil
}
