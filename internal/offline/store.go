package offline

import (
	"context"

	"github.com/mrlokans/offlineshelf/internal/entities"
)

// Store is the durable, keyed persistence of offline copies. It is the only
// component that touches on-device storage. Implementations overwrite on Put,
// report a missing key as (nil, false, nil) and treat Delete of an unknown id
// as success. They do not lock across operations; callers serialise writes
// to the same id.
type Store interface {
	Put(ctx context.Context, book *entities.OfflineBook) (*entities.OfflineBook, error)
	Get(ctx context.Context, id string) (*entities.OfflineBook, bool, error)
	GetAll(ctx context.Context) ([]entities.OfflineBook, error)
	Delete(ctx context.Context, id string) error

	// Summaries lists complete records without loading their payloads.
	Summaries(ctx context.Context) ([]entities.OfflineBookSummary, error)
	// Usage sums Size over complete records.
	Usage(ctx context.Context) (int64, error)
}
