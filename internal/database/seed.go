package database

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// defaultTemplateContent is a classic landscape layout used when no template
// has been created yet. Placeholder tokens are substituted at render time.
const defaultTemplateContent = `{
  "pageSettings": {
    "width": 800,
    "height": 600,
    "margin": {"top": 40, "right": 40, "bottom": 40, "left": 40},
    "background": {"color": "#fdfbf7", "border": true, "borderColor": "#b08d57", "borderWidth": 3}
  },
  "elements": [
    {
      "id": "title",
      "type": "text",
      "content": "Certificate of Completion",
      "position": {"x": 100, "y": 80, "width": 600, "height": 60},
      "style": {"fontSize": "36px", "fontWeight": "bold", "textAlign": "center", "color": "#2c3e50"}
    },
    {
      "id": "presented-to",
      "type": "text",
      "content": "This certificate is proudly presented to",
      "position": {"x": 150, "y": 170, "width": 500, "height": 30},
      "style": {"fontSize": "16px", "textAlign": "center", "color": "#555555"}
    },
    {
      "id": "recipient",
      "type": "text",
      "content": "{{recipientName}}",
      "position": {"x": 100, "y": 220, "width": 600, "height": 50},
      "style": {"fontSize": "30px", "fontWeight": "bold", "textAlign": "center", "color": "#1a1a2e"}
    },
    {
      "id": "issuer-line",
      "type": "text",
      "content": "Issued by {{issuerName}} on {{issueDate}}",
      "position": {"x": 150, "y": 320, "width": 500, "height": 30},
      "style": {"fontSize": "14px", "textAlign": "center", "color": "#555555"}
    },
    {
      "id": "certificate-number",
      "type": "text",
      "content": "Certificate ID: {{certificateId}}",
      "position": {"x": 250, "y": 500, "width": 300, "height": 24},
      "style": {"fontSize": "12px", "textAlign": "center", "color": "#888888"}
    },
    {
      "id": "verification-qr",
      "type": "qr",
      "content": "{{qrCode}}",
      "position": {"x": 660, "y": 460, "width": 100, "height": 100},
      "style": {}
    }
  ]
}`

// SeedDefaultTemplate creates the built-in template when none exists.
func SeedDefaultTemplate(db *gorm.DB) error {
	var count int64
	if err := db.Model(&CertificateTemplate{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count templates: %w", err)
	}
	if count > 0 {
		return nil
	}

	tpl := CertificateTemplate{
		Name:        "Classic Completion",
		Description: "Default landscape certificate with a verification QR code",
		Content:     datatypes.JSON([]byte(defaultTemplateContent)),
		IsActive:    true,
	}
	if err := db.Create(&tpl).Error; err != nil {
		return fmt.Errorf("seed default template: %w", err)
	}
	return nil
}
