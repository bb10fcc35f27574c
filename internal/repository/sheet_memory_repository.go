package repository

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

// MemorySheetRepository keeps sheet snapshots in process memory. Entries idle
// for longer than the TTL are treated as gone.
type MemorySheetRepository struct {
	mu     sync.RWMutex
	sheets map[string]models.SheetSnapshot
	ttl    time.Duration
	now    func() time.Time
}

// NewMemorySheetRepository constructs an in-memory repository. A non-positive TTL disables expiry.
func NewMemorySheetRepository(ttl time.Duration) *MemorySheetRepository {
	return &MemorySheetRepository{sheets: make(map[string]models.SheetSnapshot), ttl: ttl, now: time.Now}
}

// Get returns a copy of the stored snapshot.
func (r *MemorySheetRepository) Get(ctx context.Context, id string) (*models.SheetSnapshot, error) {
	r.mu.RLock()
	snap, ok := r.sheets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrSheetNotFound
	}
	if r.expired(snap) {
		r.mu.Lock()
		// A concurrent Save may have refreshed the sheet since the read lock was released.
		current, still := r.sheets[id]
		if still && r.expired(current) {
			delete(r.sheets, id)
			still = false
		}
		r.mu.Unlock()
		if !still {
			return nil, appErrors.ErrSheetNotFound
		}
		snap = current
	}
	out := cloneSnapshot(snap)
	return &out, nil
}

// Save stores a copy of the snapshot.
func (r *MemorySheetRepository) Save(ctx context.Context, snap *models.SheetSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sheets[snap.ID] = cloneSnapshot(*snap)
	return nil
}

// Delete drops the snapshot. Missing sheets report ErrSheetNotFound.
func (r *MemorySheetRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sheets[id]; !ok {
		return appErrors.ErrSheetNotFound
	}
	delete(r.sheets, id)
	return nil
}

// Count returns the number of live sheets.
func (r *MemorySheetRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, snap := range r.sheets {
		if !r.expired(snap) {
			n++
		}
	}
	return n, nil
}

// Purge drops expired snapshots and reports how many were removed.
func (r *MemorySheetRepository) Purge(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, snap := range r.sheets {
		if r.expired(snap) {
			delete(r.sheets, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemorySheetRepository) expired(snap models.SheetSnapshot) bool {
	return r.ttl > 0 && r.now().Sub(snap.UpdatedAt) > r.ttl
}

func cloneSnapshot(s models.SheetSnapshot) models.SheetSnapshot {
	out := s
	out.Rows = append([]models.SheetRow(nil), s.Rows...)
	out.Slots = make(map[string]string, len(s.Slots))
	for k, v := range s.Slots {
		out.Slots[k] = v
	}
	return out
}
