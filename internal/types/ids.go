package types

import (
	"time"

	"github.com/google/uuid"
)

// RootID is the id of the canonical default root group.
const RootID = "root"

// DocumentID identifies one stored version of a query document.
type DocumentID string

// NewNodeID generates a UUIDv7 identifier for a new rule or group.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewNodeID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewDocumentID generates a UUIDv7 document identifier.
// Time-ordered IDs let "latest document" be an ORDER BY on the primary key.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.Must(uuid.NewV7()).String())
}

// ParseDocumentID validates and converts a string to DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return DocumentID(s), nil
}

// DocumentIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func DocumentIDTime(id DocumentID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
