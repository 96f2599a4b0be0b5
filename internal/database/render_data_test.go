package database

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRenderData(t *testing.T) {
	cert := Certificate{
		CertificateNumber:  "CERT-2026-0042",
		RecipientFirstName: "Maria",
		RecipientLastName:  "Santos",
		IssuerName:         "Freedom Online Academy",
		IssueDate:          time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		TemplateData:       []byte(`{"pageSettings":{"width":800,"height":600},"elements":[{"id":"t","type":"text","content":"{{recipientName}}","position":{"x":1,"y":2,"width":3,"height":4}}]}`),
		QRCodeData:         "https://example.com/qr",
		VerificationID:     "abc-123",
	}

	data, err := cert.RenderData()
	if err != nil {
		t.Fatalf("render data: %v", err)
	}
	if data.ID != "CERT-2026-0042" {
		t.Errorf("id = %q", data.ID)
	}
	if data.IssueDate != "March 15, 2026" {
		t.Errorf("issue date = %q", data.IssueDate)
	}
	if len(data.TemplateData.Elements) != 1 || data.TemplateData.Elements[0].ID != "t" {
		t.Errorf("template data not decoded: %+v", data.TemplateData)
	}
	if data.TemplateData.PageSettings.Width != 800 {
		t.Errorf("page width = %v", data.TemplateData.PageSettings.Width)
	}
}

func TestRenderDataEmptyTemplate(t *testing.T) {
	cert := Certificate{CertificateNumber: "CERT-1"}
	data, err := cert.RenderData()
	if err != nil {
		t.Fatalf("render data: %v", err)
	}
	if len(data.TemplateData.Elements) != 0 {
		t.Errorf("elements = %d", len(data.TemplateData.Elements))
	}
}

func TestRenderDataCorruptJSON(t *testing.T) {
	cert := Certificate{CertificateNumber: "CERT-1", TemplateData: []byte("{not json")}
	if _, err := cert.RenderData(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSeedDefaultTemplate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seed_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&CertificateTemplate{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := SeedDefaultTemplate(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var count int64
	if err := db.Model(&CertificateTemplate{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	// Idempotent: a second run must not duplicate the template.
	if err := SeedDefaultTemplate(db); err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if err := db.Model(&CertificateTemplate{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after reseed = %d, want 1", count)
	}

	var tpl CertificateTemplate
	if err := db.First(&tpl).Error; err != nil {
		t.Fatalf("load template: %v", err)
	}
	var cert Certificate
	cert.TemplateData = tpl.Content
	data, err := cert.RenderData()
	if err != nil {
		t.Fatalf("seeded template content invalid: %v", err)
	}
	if len(data.TemplateData.Elements) == 0 {
		t.Fatal("seeded template has no elements")
	}
}
