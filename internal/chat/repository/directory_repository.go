package repository

import (
	"context"
	"errors"
	"sync"

	"apartment_chat_service/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DirectoryRepository apartment directory owned by the identity service, read only here
type DirectoryRepository interface {
	// IsApprovedAdmin caller administers apartmentID
	IsApprovedAdmin(ctx context.Context, userID, apartmentID string) (bool, error)
	FindResident(ctx context.Context, userID string) (*domain.Resident, error)
	// DisplayName falls back to the user id when the directory has no name
	DisplayName(ctx context.Context, userID string) string
}

type directoryRepository struct {
	db *pgxpool.Pool
}

// NewDirectoryRepository create a DirectoryRepository on the directory database
func NewDirectoryRepository(db *pgxpool.Pool) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) IsApprovedAdmin(ctx context.Context, userID, apartmentID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM apartment_admins WHERE user_id = $1 AND apartment_id = $2 AND status = 'APPROVED')",
		userID, apartmentID,
	).Scan(&ok)
	return ok, err
}

func (r *directoryRepository) FindResident(ctx context.Context, userID string) (*domain.Resident, error) {
	var res domain.Resident
	err := r.db.QueryRow(ctx,
		"SELECT r.user_id, r.apartment_id, COALESCE(u.name, '') FROM residents r LEFT JOIN users u ON u.id = r.user_id WHERE r.user_id = $1",
		userID,
	).Scan(&res.UserID, &res.ApartmentID, &res.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *directoryRepository) DisplayName(ctx context.Context, userID string) string {
	var name string
	err := r.db.QueryRow(ctx, "SELECT COALESCE(name, '') FROM users WHERE id = $1", userID).Scan(&name)
	if err != nil || name == "" {
		return userID
	}
	return name
}

// MemoryDirectory in-process directory. With TrustTokens set an admin token is taken
// as proof of administering its apartment, for local runs without a directory db.
type MemoryDirectory struct {
	TrustTokens bool

	mu        sync.RWMutex
	admins    map[string]map[string]bool // apartmentID -> userID
	residents map[string]domain.Resident
	names     map[string]string
}

// NewMemoryDirectory create an empty directory
func NewMemoryDirectory(trustTokens bool) *MemoryDirectory {
	return &MemoryDirectory{
		TrustTokens: trustTokens,
		admins:      map[string]map[string]bool{},
		residents:   map[string]domain.Resident{},
		names:       map[string]string{},
	}
}

// AddAdmin register an approved admin
func (d *MemoryDirectory) AddAdmin(userID, apartmentID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.admins[apartmentID] == nil {
		d.admins[apartmentID] = map[string]bool{}
	}
	d.admins[apartmentID][userID] = true
	if name != "" {
		d.names[userID] = name
	}
}

// AddResident register a resident
func (d *MemoryDirectory) AddResident(r domain.Resident) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.residents[r.UserID] = r
	if r.Name != "" {
		d.names[r.UserID] = r.Name
	}
}

func (d *MemoryDirectory) IsApprovedAdmin(_ context.Context, userID, apartmentID string) (bool, error) {
	if d.TrustTokens {
		return true, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.admins[apartmentID][userID], nil
}

func (d *MemoryDirectory) FindResident(_ context.Context, userID string) (*domain.Resident, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.residents[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (d *MemoryDirectory) DisplayName(_ context.Context, userID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n, ok := d.names[userID]; ok {
		return n
	}
	return userID
}
