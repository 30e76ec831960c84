package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when a decoded image exceeds the configured limit.
var ErrTooLarge = errors.New("photo exceeds size limit")

// Archive stores encoded images and returns the URL they are served from.
type Archive interface {
	Store(ctx context.Context, encoded, owner, ticketID string, index int) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
}

// DiskArchive writes photos to one folder per owner under Root.
type DiskArchive struct {
	root      string
	urlPrefix string
	maxBytes  int
}

// NewDiskArchive creates the root directory if needed.
func NewDiskArchive(root, urlPrefix string, maxBytes int) (*DiskArchive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &DiskArchive{
		root:      root,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Root returns the directory served under the URL prefix.
func (a *DiskArchive) Root() string {
	return a.root
}

// Store decodes encoded and writes it as <ticketID>_<index+1><ext>.
func (a *DiskArchive) Store(ctx context.Context, encoded, owner, ticketID string, index int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mime, data, err := DecodeDataURL(encoded)
	if err != nil {
		return "", err
	}
	if a.maxBytes > 0 && len(data) > a.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", mime)
	}

	folder := safeSegment(owner)
	name := fmt.Sprintf("%s_%d%s", safeSegment(ticketID), index+1, ext)
	dir := filepath.Join(a.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return a.urlPrefix + "/" + url.PathEscape(folder) + "/" + url.PathEscape(name), nil
}

// DecodeDataURL accepts "data:<mime>;base64,<payload>" or bare base64, which
// is assumed to be JPEG.
func DecodeDataURL(encoded string) (string, []byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", nil, errors.New("empty photo payload")
	}

	mime := "image/jpeg"
	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok {
			return "", nil, errors.New("malformed data url")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, errors.New("data url is not base64 encoded")
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = strings.ToLower(m)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode photo: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty photo payload")
	}
	return mime, data, nil
}

// safeSegment turns an identifier into a single path element.
func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "_"
	}
	return out
}
