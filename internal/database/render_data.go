package database

import (
	"encoding/json"
	"fmt"

	"certforge/internal/template"
)

// issueDateLayout is the display format placeholders substitute for
// {{issueDate}}.
const issueDateLayout = "January 2, 2006"

// RenderData builds the read-only render input from a persisted certificate
// row. The stored TemplateData JSON is the renderer's sole structured input.
func (cert *Certificate) RenderData() (template.CertificateData, error) {
	var doc template.TemplateData
	if len(cert.TemplateData) > 0 {
		if err := json.Unmarshal(cert.TemplateData, &doc); err != nil {
			return template.CertificateData{}, fmt.Errorf("decode template data for certificate %d: %w", cert.ID, err)
		}
	}

	return template.CertificateData{
		ID:                 cert.CertificateNumber,
		RecipientFirstName: cert.RecipientFirstName,
		RecipientLastName:  cert.RecipientLastName,
		RecipientEmail:     cert.RecipientEmail,
		IssuerName:         cert.IssuerName,
		IssueDate:          cert.IssueDate.Format(issueDateLayout),
		TemplateData:       doc,
		QRCodeData:         cert.QRCodeData,
		VerificationID:     cert.VerificationID,
	}, nil
}
