package interfaces

import (
	"context"
	"sync"

	"github.com/kreeztoph/damaged-trays/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for pulling tabular snapshots from the remote store.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchSnapshot re-fetches all four tables in full. Per-table failures
	// are recorded inside the snapshot; the error is non-nil only when no
	// table could be read at all.
	FetchSnapshot(ctx context.Context) (*models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	// Start begins the periodic fetch loop
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel snapshots are pushed to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- *models.MSnapshot, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the fetch loop (manual stop; context cancellation
	// via Start is the usual path)
	Stop() error

	// -----------------------------------------------------------------------------

	// TriggerRefresh requests an immediate out-of-cycle fetch. The call is
	// request-scoped: it does not flip any long-lived state, it just wakes
	// the loop once.
	TriggerRefresh() error
}

// -----------------------------------------------------------------------------
// IRefresher is the narrow surface the HTTP layer needs for the manual
// refresh control.
// -----------------------------------------------------------------------------

type IRefresher interface {
	TriggerRefresh() error
}
