package persistence

import (
	"time"

	"github.com/google/uuid"
)

// Record is implemented by every tenant-owned domain record.
type Record interface {
	RecordID() uuid.UUID
	RecordTenantID() uuid.UUID
}

// OwnedRecord is a Record that can be re-stamped with a tenant id. WithTenant
// returns a copy; records are never mutated in place.
type OwnedRecord[T any] interface {
	Record
	WithTenant(tenantID uuid.UUID) T
}

// Meta carries the fields shared by all tenant-owned records. Domain structs
// embed it and inherit the Record accessors.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m Meta) RecordID() uuid.UUID { return m.ID }

func (m Meta) RecordTenantID() uuid.UUID { return m.TenantID }

// NewMeta stamps identity and creation time for a new record. The tenant id
// is left for the tenant-scoped repository to fill in.
func NewMeta(now time.Time) Meta {
	return Meta{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}
