package memory

import "github.com/user/site-mirror/internal/repository"

// NewRunState returns a fresh registry and ledger. runID is ignored since
// in-process state is never shared between runs.
func NewRunState(string) (repository.VisitedRegistry, repository.ReplacementLedger) {
	return NewRegistry(), NewLedger()
}
