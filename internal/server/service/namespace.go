package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"canopy/internal/core"
	"canopy/internal/server/config"
	"canopy/internal/server/storage"
)

// Sentinel errors for the service layer.
var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrExpired           = errors.New("namespace has expired")
	ErrPasswordRequired  = errors.New("password required")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidToken      = errors.New("invalid deletion token")
	ErrArchiveTooLarge   = errors.New("archive exceeds maximum allowed size")
	ErrInvalidArchive    = errors.New("invalid or corrupt ZIP archive")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrLimitReached      = errors.New("namespace limit reached")
)

// DefaultRootName names the root of a namespace created without a name.
const DefaultRootName = "root"

// CreateResult is returned after a namespace has been created.
type CreateResult struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	DeletionToken string    `json:"deletion_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ImportResult is returned after an archive has been imported.
type ImportResult struct {
	CreateResult
	Report core.ImportReport `json:"report"`
}

// NamespaceInfo is returned for metadata queries.
type NamespaceInfo struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	AccessCount     int       `json:"access_count"`
	HasPassword     bool      `json:"has_password"`
	Nodes           int       `json:"nodes"`
	TotalChildCount int       `json:"total_child_count"`
	DiskUsage       uint64    `json:"disk_usage"`
}

// NamespaceService contains the business logic for hosted namespaces.
type NamespaceService struct {
	store storage.Store
	cfg   *config.Config
	clock clock.Clock
}

// NewNamespaceService creates a new namespace service. A nil clock means the
// wall clock.
func NewNamespaceService(store storage.Store, cfg *config.Config, clk clock.Clock) *NamespaceService {
	if clk == nil {
		clk = clock.New()
	}
	return &NamespaceService{
		store: store,
		cfg:   cfg,
		clock: clk,
	}
}

// CreateNamespace creates an empty namespace whose root is called name.
func (s *NamespaceService) CreateNamespace(ctx context.Context, name, password string) (*CreateResult, error) {
	rootName, err := rootNameFor(name)
	if err != nil {
		return nil, err
	}
	root := core.NewRootDir(rootName, core.WithClock(s.clock))

	ns, err := s.register(ctx, root, password)
	if err != nil {
		return nil, err
	}

	slog.Info("namespace created", "namespace_id", ns.ID, "name", ns.Name)
	return s.createResult(ns), nil
}

// ImportNamespace creates a namespace from a ZIP archive. Entry content is
// never kept; only names, structure and sizes are.
func (s *NamespaceService) ImportNamespace(ctx context.Context, name string, data io.Reader, size int64, password string) (*ImportResult, error) {
	if size > s.cfg.MaxArchiveSize {
		return nil, ErrArchiveTooLarge
	}
	rootName, err := rootNameFor(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(data, s.cfg.MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if n > s.cfg.MaxArchiveSize {
		return nil, ErrArchiveTooLarge
	}
	zipData := buf.Bytes()

	if err := validateZipMagicBytes(zipData); err != nil {
		return nil, err
	}

	root := core.NewRootDir(rootName, core.WithClock(s.clock))
	report, err := core.ImportZip(root, zipData, s.cfg.MaxArchiveEntries)
	if err != nil {
		if errors.Is(err, core.ErrInvalidArgument) {
			return nil, fmt.Errorf("%w: %v", ErrArchiveTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	ns, err := s.register(ctx, root, password)
	if err != nil {
		return nil, err
	}

	slog.Info("namespace imported",
		"namespace_id", ns.ID,
		"name", ns.Name,
		"archive_size", n,
		"dirs", report.Dirs,
		"files", report.Files,
		"links", report.Links,
		"skipped", report.Skipped,
	)

	return &ImportResult{CreateResult: *s.createResult(ns), Report: *report}, nil
}

func (s *NamespaceService) register(ctx context.Context, root *core.Dir, password string) (*storage.Namespace, error) {
	deletionToken, err := generateSecureToken(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate deletion token: %w", err)
	}

	var passwordHash *string
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	now := s.clock.Now().UTC()
	ns := &storage.Namespace{
		ID:            uuid.NewString(),
		Name:          root.Name(),
		Root:          root,
		PasswordHash:  passwordHash,
		DeletionToken: "del_" + deletionToken,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.DefaultExpiry),
	}

	if err := s.store.Create(ctx, ns); err != nil {
		if errors.Is(err, storage.ErrLimitReached) {
			return nil, ErrLimitReached
		}
		return nil, fmt.Errorf("failed to store namespace: %w", err)
	}
	return ns, nil
}

func (s *NamespaceService) createResult(ns *storage.Namespace) *CreateResult {
	return &CreateResult{
		ID:            ns.ID,
		Name:          ns.Name,
		URL:           fmt.Sprintf("%s/api/namespaces/%s", s.cfg.BaseURL, ns.ID),
		DeletionToken: ns.DeletionToken,
		ExpiresAt:     ns.ExpiresAt,
	}
}

// GetInfo returns metadata about a namespace. No password is needed.
func (s *NamespaceService) GetInfo(ctx context.Context, id string) (*NamespaceInfo, error) {
	ns, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	ns.Lock()
	defer ns.Unlock()
	return &NamespaceInfo{
		ID:              ns.ID,
		Name:            ns.Name,
		CreatedAt:       ns.CreatedAt,
		ExpiresAt:       ns.ExpiresAt,
		AccessCount:     ns.AccessCount,
		HasPassword:     ns.PasswordHash != nil,
		Nodes:           len(core.FlattenTree(ns.Root)),
		TotalChildCount: ns.Root.TotalChildCount(),
		DiskUsage:       ns.Root.TotalDiskUsage(),
	}, nil
}

// DeleteNamespace validates the deletion token and removes the namespace.
func (s *NamespaceService) DeleteNamespace(ctx context.Context, id string, token string) error {
	ns, err := s.store.Get(ctx, id)
	if err != nil {
		return translateStoreError(err)
	}

	if ns.DeletionToken != token {
		return ErrInvalidToken
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return translateStoreError(err)
	}

	slog.Info("namespace deleted", "namespace_id", id, "name", ns.Name)
	return nil
}

// GetStats returns aggregate server statistics.
func (s *NamespaceService) GetStats(ctx context.Context) (*storage.Stats, error) {
	return s.store.Stats(ctx)
}

// lookup fetches a live namespace.
func (s *NamespaceService) lookup(ctx context.Context, id string) (*storage.Namespace, error) {
	ns, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if s.clock.Now().After(ns.ExpiresAt) {
		return nil, ErrExpired
	}
	return ns, nil
}

// open fetches a live namespace, checks its password and counts the access.
// The namespace is returned locked; the caller must Unlock it.
func (s *NamespaceService) open(ctx context.Context, id, password string) (*storage.Namespace, error) {
	ns, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if ns.PasswordHash != nil {
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*ns.PasswordHash), []byte(password)); err != nil {
			return nil, ErrInvalidPassword
		}
	}

	// Best-effort, don't fail the request
	if err := s.store.Touch(ctx, id); err != nil {
		slog.Error("failed to count namespace access", "namespace_id", id, "error", err)
	}

	ns.Lock()
	return ns, nil
}

func translateStoreError(err error) error {
	if errors.Is(err, storage.ErrNamespaceNotFound) {
		return ErrNamespaceNotFound
	}
	return err
}

// --- Helpers ---

func rootNameFor(name string) (string, error) {
	if name == "" {
		return DefaultRootName, nil
	}
	if !core.IsValidDirName(name) {
		return "", fmt.Errorf("%w: invalid namespace name %q", ErrInvalidRequest, name)
	}
	return name, nil
}

// generateSecureToken produces a cryptographically secure, URL-safe random string.
func generateSecureToken(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// validateZipMagicBytes checks that data starts with the ZIP magic number (PK\x03\x04).
func validateZipMagicBytes(data []byte) error {
	if len(data) < 4 {
		return ErrInvalidArchive
	}
	// Standard ZIP local file header: PK\x03\x04
	// Empty ZIP (end of central directory): PK\x05\x06
	if data[0] == 0x50 && data[1] == 0x4B {
		if (data[2] == 0x03 && data[3] == 0x04) || // local file header
			(data[2] == 0x05 && data[3] == 0x06) { // empty archive
			return nil
		}
	}
	return ErrInvalidArchive
}
