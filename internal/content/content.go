// Package content loads mintable assets and derives their stable
// identities. An asset's id is the blake3 hash of its body, so the same
// bytes always map to the same content item no matter where they were
// loaded from.
package content

import (
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// MaxAssetBytes bounds a single asset body. A reveal transaction must
// stay under standardness limits, so anything past this cannot be
// inscribed in one envelope.
const MaxAssetBytes = 390 * 1024

// Asset is one mintable piece of content.
type Asset struct {
	// ID is the hex blake3 hash of Body.
	ID          string
	Name        string
	ContentType string
	Body        []byte
}

// Source enumerates assets from some backing store.
type Source interface {
	// List returns the names of all available assets, sorted.
	List() ([]string, error)
	// Load returns the named asset with its id and content type
	// resolved.
	Load(name string) (*Asset, error)
}

// HashBody returns the hex blake3 hash of body.
func HashBody(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// NewAsset builds an Asset from raw bytes, hashing the body and
// resolving the content type from the name's extension with a sniffing
// fallback.
func NewAsset(name string, body []byte) (*Asset, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("content: asset %q is empty", name)
	}
	if len(body) > MaxAssetBytes {
		return nil, fmt.Errorf("content: asset %q is %d bytes, max %d", name, len(body), MaxAssetBytes)
	}
	return &Asset{
		ID:          HashBody(body),
		Name:        name,
		ContentType: detectContentType(name, body),
		Body:        body,
	}, nil
}

// detectContentType prefers the file extension and falls back to
// sniffing the body.
func detectContentType(name string, body []byte) string {
	ct := ""
	if ext := filepath.Ext(name); ext != "" {
		ct = mime.TypeByExtension(ext)
	}
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	// Strip charset parameters; the envelope carries the bare media
	// type.
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
