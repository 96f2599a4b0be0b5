package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"certforge/internal/template"
)

// AssetKeyPrefix marks element content that references an uploaded asset in
// the bucket instead of a URL or data URI.
const AssetKeyPrefix = "assets/"

// InlineElementImages replaces object-key image sources with data URIs so
// the composed document is fully self-contained for every backend. Missing
// objects are cleared (the substitution pass then falls back to the
// placeholder graphic) and reported by key; any other storage error aborts.
func (c *Client) InlineElementImages(ctx context.Context, doc *template.TemplateData) (missing []string, err error) {
	for i := range doc.Elements {
		el := &doc.Elements[i]
		if el.Type != template.TypeImage && el.Type != template.TypeQR {
			continue
		}
		objectKey := strings.TrimSpace(el.Content)
		if !strings.HasPrefix(objectKey, AssetKeyPrefix) {
			continue
		}

		dataURI, inlineErr := c.inlineObject(ctx, objectKey)
		if inlineErr != nil {
			if IsNoSuchKey(inlineErr) {
				missing = append(missing, objectKey)
				el.Content = ""
				continue
			}
			return missing, fmt.Errorf("inline asset %q: %w", objectKey, inlineErr)
		}
		el.Content = dataURI
	}
	return missing, nil
}

func (c *Client) inlineObject(ctx context.Context, objectKey string) (string, error) {
	obj, err := c.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	contentType := "image/png"
	if stat, statErr := obj.Stat(); statErr != nil {
		// Stat is where a missing key actually surfaces for GetObject.
		return "", statErr
	} else if stat.ContentType != "" {
		contentType = stat.ContentType
	}

	raw, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw)), nil
}
