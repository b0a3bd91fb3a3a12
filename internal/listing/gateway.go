package listing

import (
	"context"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

// Gateway persists listings.  Create assigns ID and CreatedAt on l.
// Update overwrites every column of the row identified by id.
type Gateway interface {
	Create(ctx context.Context, l *model.Listing) error
	Update(ctx context.Context, id string, l *model.Listing) error
}

// Events receives workflow notifications.  Implementations must not block
// for long; failures are logged by the caller and otherwise ignored.
type Events interface {
	ListingSaved(ctx context.Context, l model.Listing, created bool) error
	UploadsOrphaned(ctx context.Context, keys []string, reason string) error
}
