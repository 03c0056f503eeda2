package simplecms

import "github.com/google/uuid"

// NewLogicalID returns a fresh random (v4) identifier for a new logical entity.
func NewLogicalID() uuid.UUID {
	return uuid.New()
}

// IsSameLogical reports whether two instances belong to the same logical entity.
func IsSameLogical(a, b *Instance) bool {
	if a == nil || b == nil {
		return false
	}
	return a.LogicalID == b.LogicalID
}
