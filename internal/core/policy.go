package core

import "fmt"

// EntityKind names the record types a deletion policy applies to.
type EntityKind string

const (
	KindCategory EntityKind = "category"
	KindItem     EntityKind = "item"
	KindEntry    EntityKind = "entry"
)

// DeletionMode decides what "delete" means for an entity kind.
type DeletionMode string

const (
	// SoftDelete deactivates the record; history keeps rendering it.
	SoftDelete DeletionMode = "soft"
	// HardDelete removes the record from the store.
	HardDelete DeletionMode = "hard"
)

// DeletionPolicy maps each entity kind to its deletion mode.
type DeletionPolicy map[EntityKind]DeletionMode

// DefaultDeletionPolicy keeps taxonomy nodes forever and removes entries outright.
func DefaultDeletionPolicy() DeletionPolicy {
	return DeletionPolicy{
		KindCategory: SoftDelete,
		KindItem:     SoftDelete,
		KindEntry:    HardDelete,
	}
}

// ModeFor returns the configured mode, defaulting to soft for unknown kinds.
func (p DeletionPolicy) ModeFor(kind EntityKind) DeletionMode {
	if m, ok := p[kind]; ok {
		return m
	}
	return SoftDelete
}

// Validate rejects combinations the stores cannot honour: taxonomy nodes are
// referenced by historical entries and cannot be removed.
func (p DeletionPolicy) Validate() error {
	for kind, mode := range p {
		switch mode {
		case SoftDelete, HardDelete:
		default:
			return fmt.Errorf("invalid deletion mode %q for %s", mode, kind)
		}
		if mode == HardDelete && (kind == KindCategory || kind == KindItem) {
			return fmt.Errorf("%s: %w", kind, ErrHardDeleteUnsupported)
		}
		if mode == SoftDelete && kind == KindEntry {
			return fmt.Errorf("%s: soft delete not supported", kind)
		}
	}
	return nil
}
