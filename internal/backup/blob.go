// Package backup produces and consumes portable encrypted backups of a
// profile's dataset, keeps local restore points, and optionally syncs blobs
// to a remote object store.
package backup

import (
	"encoding/json"
	"time"

	"profilevault/internal/common"
)

// DataVersion is the current blob format version. Import refuses blobs
// written with a different version.
const DataVersion = 1

// Header is the unencrypted part of a backup blob. It is enough to identify
// a backup without knowing the export password.
type Header struct {
	ProfileID          string    `json:"profile_id"`
	CreatedAt          time.Time `json:"created_at"`
	DataVersion        int       `json:"data_version"`
	Partial            bool      `json:"partial"`
	IncludedCategories []string  `json:"included_categories,omitempty"`
}

// Blob is the on-disk and on-wire backup format: a cleartext header plus an
// AES-GCM payload under a key derived from (password, export_salt). The
// verifier is a digest of that key, so a wrong password is detected before
// any decryption is attempted.
type Blob struct {
	Header     Header `json:"header"`
	ExportSalt []byte `json:"export_salt"`
	Verifier   []byte `json:"verifier"`
	Payload    []byte `json:"payload"`
	Nonce      []byte `json:"nonce"`
}

// Encode serializes the blob.
func (b *Blob) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBlob parses raw blob bytes. Malformed input or a structurally
// incomplete blob yields common.ErrFormat.
func DecodeBlob(raw []byte) (*Blob, error) {
	var b Blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, common.ErrFormat
	}
	if b.Header.ProfileID == "" || len(b.ExportSalt) == 0 || len(b.Verifier) == 0 || len(b.Nonce) == 0 {
		return nil, common.ErrFormat
	}
	return &b, nil
}
