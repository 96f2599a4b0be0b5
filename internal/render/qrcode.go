package render

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	qrcode "github.com/skip2/go-qrcode"
)

// qrImageSize is the pixel size of generated QR codes. Large enough to stay
// scanable after the print backends rasterize it at scale 1.
const qrImageSize = 256

// QRDataURI encodes content as a QR code and returns it as a PNG data URI
// suitable for an <img> src or the direct-draw image path.
func QRDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// qrSourceFor resolves the QR image source for a render pass: the explicit
// QR payload when present, otherwise the verification URL. Returns "" when
// there is nothing to encode or generation fails; substitution then falls
// back to the built-in placeholder graphic instead of failing the render.
func qrSourceFor(logger *slog.Logger, qrData, verificationURL string) string {
	content := qrData
	if content == "" {
		content = verificationURL
	}
	if content == "" {
		return ""
	}
	src, err := QRDataURI(content)
	if err != nil {
		logger.Warn("qr code generation failed, using placeholder", slog.Any("error", err))
		return ""
	}
	return src
}
