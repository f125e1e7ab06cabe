package index

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable indicates the vector backend could not be reached.
var ErrStoreUnavailable = errors.New("index store unavailable")

// FailedEntry records one entry that was rejected during a bulk write.
type FailedEntry struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PartialWriteError is returned when some entries of a bulk write were
// rejected while the rest were written. Succeeded carries the chunk IDs that
// made it into the index; Failed carries per-entry reasons.
type PartialWriteError struct {
	Succeeded []string
	Failed    []FailedEntry
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("bulk write partially failed: %d written, %d rejected", len(e.Succeeded), len(e.Failed))
}
