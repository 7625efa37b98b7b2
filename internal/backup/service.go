package backup

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"profilevault/internal/common"
	"profilevault/internal/cryptox"
	"profilevault/internal/logging"
	"profilevault/internal/profiles"
	"profilevault/internal/store"
)

const restoreDirName = "restore"

// ExportOptions narrow a backup to the given metadata categories. Empty
// means a full backup.
type ExportOptions struct {
	Categories []string
}

// Service builds backups of the unlocked profile's dataset and restores
// them. A Remote is optional; when nil only local operations are available.
type Service struct {
	profiles *profiles.Manager
	store    *store.MultiProfileStore
	dir      string
	remote   Remote
	logger   logging.Logger
}

// NewService wires a backup service. dir is the application data directory;
// restore points live under dir/restore. remote may be nil.
func NewService(pm *profiles.Manager, st *store.MultiProfileStore, dir string, remote Remote, logger logging.Logger) *Service {
	return &Service{profiles: pm, store: st, dir: dir, remote: remote, logger: logger}
}

// ExportBackup re-encrypts the active profile's dataset into a portable
// blob. The password is verified against the profile's stored hash before
// any data is read, even though the export key is derived independently.
func (s *Service) ExportBackup(ctx context.Context, password string, opts ExportOptions) ([]byte, error) {
	p := s.profiles.ActiveProfile()
	if p == nil {
		return nil, common.ErrNoActiveContext
	}
	if p.IsGuest {
		return nil, common.ErrGuestProfile
	}
	if !cryptox.VerifyPassword([]byte(password), p.Salt, p.PasswordHash) {
		return nil, common.ErrUnauthorized
	}

	exportSalt := cryptox.GenerateSalt()
	ciphertext, nonce, err := s.store.ExportActive(ctx, []byte(password), exportSalt, opts.Categories)
	if err != nil {
		return nil, fmt.Errorf("error exporting dataset: %w", err)
	}

	exportKey := cryptox.DeriveDataKey([]byte(password), exportSalt)
	verifier := cryptox.MakeVerifier(exportKey)
	common.WipeByteArray(exportKey)

	blob := &Blob{
		Header: Header{
			ProfileID:          p.ID,
			CreatedAt:          time.Now().UTC(),
			DataVersion:        DataVersion,
			Partial:            len(opts.Categories) > 0,
			IncludedCategories: opts.Categories,
		},
		ExportSalt: exportSalt,
		Verifier:   verifier,
		Payload:    ciphertext,
		Nonce:      nonce,
	}

	raw, err := blob.Encode()
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "backup exported",
		"profile_id", p.ID, "partial", blob.Header.Partial, "size", len(raw))
	return raw, nil
}

// ImportBackup restores a blob into the active profile's store. The
// password is proved against the blob's verifier before decryption; a
// version mismatch is rejected up front.
func (s *Service) ImportBackup(ctx context.Context, raw []byte, password string) error {
	blob, err := DecodeBlob(raw)
	if err != nil {
		return err
	}
	if blob.Header.DataVersion != DataVersion {
		return fmt.Errorf("%w: blob version %d", common.ErrIncompatibleVersion, blob.Header.DataVersion)
	}

	exportKey := cryptox.DeriveDataKey([]byte(password), blob.ExportSalt)
	match := subtle.ConstantTimeCompare(cryptox.MakeVerifier(exportKey), blob.Verifier) == 1
	common.WipeByteArray(exportKey)
	if !match {
		return common.ErrUnauthorized
	}

	if err := s.store.ImportActive(ctx, blob.Payload, blob.Nonce, []byte(password), blob.ExportSalt); err != nil {
		return fmt.Errorf("error importing dataset: %w", err)
	}

	s.logger.Info(ctx, "backup imported", "source_profile_id", blob.Header.ProfileID)
	return nil
}

// ValidateBackupMetadata parses a blob's header without requiring the
// password.
func (s *Service) ValidateBackupMetadata(raw []byte) (*Header, error) {
	blob, err := DecodeBlob(raw)
	if err != nil {
		return nil, err
	}
	return &blob.Header, nil
}

func (s *Service) restoreDir() string {
	return filepath.Join(s.dir, restoreDirName)
}

func (s *Service) restorePath(id string) string {
	return filepath.Join(s.restoreDir(), id+".vaultbak")
}

// CreateRestorePoint writes a full backup of the active profile under the
// data directory and returns its id.
func (s *Service) CreateRestorePoint(ctx context.Context, password string) (string, error) {
	raw, err := s.ExportBackup(ctx, password, ExportOptions{})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.restoreDir(), 0o700); err != nil {
		return "", fmt.Errorf("error creating restore directory: %w", err)
	}

	id := fmt.Sprintf("%d-%s", time.Now().UTC().Unix(), uuid.NewString()[:8])
	if err := os.WriteFile(s.restorePath(id), raw, 0o600); err != nil {
		return "", fmt.Errorf("error writing restore point: %w", err)
	}

	s.logger.Info(ctx, "restore point created", "id", id)
	return id, nil
}

// RestoreFromPoint imports a previously created restore point.
func (s *Service) RestoreFromPoint(ctx context.Context, id, password string) error {
	raw, err := os.ReadFile(s.restorePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("error reading restore point: %w", err)
	}
	return s.ImportBackup(ctx, raw, password)
}

// ListRestorePoints returns the ids of all stored restore points, newest
// first (ids sort lexicographically by creation time).
func (s *Service) ListRestorePoints() ([]string, error) {
	entries, err := os.ReadDir(s.restoreDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".vaultbak") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".vaultbak"))
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// PruneRestorePoints deletes restore points older than maxAge and returns
// how many were removed. Files that do not parse as blobs are left alone.
func (s *Service) PruneRestorePoints(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := s.ListRestorePoints()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, id := range ids {
		raw, err := os.ReadFile(s.restorePath(id))
		if err != nil {
			continue
		}
		blob, err := DecodeBlob(raw)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable restore point", "id", id)
			continue
		}
		if blob.Header.CreatedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(s.restorePath(id)); err != nil {
			return removed, fmt.Errorf("error removing restore point: %w", err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info(ctx, "restore points pruned", "removed", removed)
	}
	return removed, nil
}

// UploadBackup exports a backup and pushes it to the remote. Returns the
// remote object key.
func (s *Service) UploadBackup(ctx context.Context, password string, opts ExportOptions) (string, error) {
	if s.remote == nil {
		return "", fmt.Errorf("no remote configured")
	}

	p := s.profiles.ActiveProfile()
	if p == nil {
		return "", common.ErrNoActiveContext
	}

	raw, err := s.ExportBackup(ctx, password, opts)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("backups/%s/%d.vaultbak", p.ID, time.Now().UTC().Unix())
	if err := s.remote.Upload(ctx, key, raw); err != nil {
		return "", fmt.Errorf("error uploading backup: %w", err)
	}
	s.logger.Info(ctx, "backup uploaded", "key", key)
	return key, nil
}

// DownloadBackup fetches a blob from the remote and imports it.
func (s *Service) DownloadBackup(ctx context.Context, key, password string) error {
	if s.remote == nil {
		return fmt.Errorf("no remote configured")
	}
	raw, err := s.remote.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("error downloading backup: %w", err)
	}
	return s.ImportBackup(ctx, raw, password)
}

// ListRemoteBackups lists the remote backup keys of a profile.
func (s *Service) ListRemoteBackups(ctx context.Context, profileID string) ([]string, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("no remote configured")
	}
	return s.remote.List(ctx, "backups/"+profileID+"/")
}
