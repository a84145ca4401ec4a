package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 generation fails
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RecordID ID
	RunID    ID
	StudyKey ID
)

// String conversions for domain IDs
func (id RecordID) String() string { return ID(id).String() }
func (id RunID) String() string    { return ID(id).String() }
func (id StudyKey) String() string { return ID(id).String() }

// NewRecordID creates a new evidence record identifier
func NewRecordID() RecordID { return RecordID(NewID()) }

// NewRunID creates a new pipeline run identifier
func NewRunID() RunID { return RunID(NewID()) }

// ParseStudyKey parses a string into StudyKey
func ParseStudyKey(s string) (StudyKey, error) {
	key := strings.TrimSpace(s)
	if key == "" {
		return "", fmt.Errorf("study key cannot be empty")
	}
	return StudyKey(key), nil
}
