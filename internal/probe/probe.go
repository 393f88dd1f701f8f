package probe

import (
	"context"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// Executor performs one attempt against a check's target. It always returns
// a resolved outcome and never retries.
type Executor interface {
	Execute(ctx context.Context, c domain.Check) domain.Outcome
}
