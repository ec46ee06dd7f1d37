package archive

import (
	"fmt"
	"strings"
	"sync"
)

// Summary accumulates the run outcome: ordered display-name lists for
// archived and failed items. Appends are safe from concurrent copy
// callbacks. Transient, rebuilt every run.
type Summary struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
}

// AddSuccess appends an archived item's display name.
func (s *Summary) AddSuccess(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = append(s.succeeded, name)
}

// AddFailure appends a failed item's display name.
func (s *Summary) AddFailure(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, name)
}

// Counts returns the number of archived and failed items.
func (s *Summary) Counts() (succeeded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.succeeded), len(s.failed)
}

// Format renders the notification message for the run.
func (s *Summary) Format() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Archive run finished: %d archived, %d failed.",
		len(s.succeeded), len(s.failed))

	if len(s.succeeded) > 0 {
		b.WriteString("\n\nArchived:")
		for _, name := range s.succeeded {
			b.WriteString("\n- " + name)
		}
	}

	if len(s.failed) > 0 {
		b.WriteString("\n\nFailed:")
		for _, name := range s.failed {
			b.WriteString("\n- " + name)
		}
	}

	return b.String()
}
