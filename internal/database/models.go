package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CertificateTemplate is a reusable certificate design. Content holds the
// TemplateData JSON (page settings plus positioned elements).
type CertificateTemplate struct {
	gorm.Model
	Name        string         `gorm:"size:255"`
	Description string         `gorm:"size:1024"`
	Content     datatypes.JSON `gorm:"type:jsonb"`
	IsActive    bool           `gorm:"default:true"`
}

// Certificate is one issued certificate. TemplateData is the recipient's own
// customized copy of the design, so later template edits never change an
// already-issued document. PdfPath/PngPath point at cached artifacts in
// object storage; empty means not rendered yet.
type Certificate struct {
	gorm.Model
	CertificateNumber  string         `gorm:"uniqueIndex;size:64"`
	RecipientFirstName string         `gorm:"size:128"`
	RecipientLastName  string         `gorm:"size:128"`
	RecipientEmail     string         `gorm:"size:255"`
	IssuerName         string         `gorm:"size:255"`
	IssueDate          time.Time
	TemplateID         uint                `gorm:"index"`
	Template           CertificateTemplate `gorm:"constraint:OnDelete:SET NULL"`
	TemplateData       datatypes.JSON      `gorm:"type:jsonb"`
	QRCodeData         string              `gorm:"size:1024"`
	VerificationID     string              `gorm:"uniqueIndex;size:64"`
	PdfPath            string              `gorm:"size:512"`
	PngPath            string              `gorm:"size:512"`
	Status             string              `gorm:"size:32"`
}
