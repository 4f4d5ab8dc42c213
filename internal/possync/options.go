package possync

import "time"

const DefaultPageSize = 100

// Options select what a run does. Enabled is the deployment kill switch and
// is always passed explicitly.
type Options struct {
	Enabled bool
	Catalog bool
	Orders  bool
	// Prune tombstones local orders the remote sweep did not return.
	Prune    bool
	PageSize int
	// Since restricts orders to those modified at or after it.
	Since *time.Time
}

// FullSync runs every phase without pruning.
func FullSync(enabled bool) Options {
	return Options{
		Enabled:  enabled,
		Catalog:  true,
		Orders:   true,
		PageSize: DefaultPageSize,
	}
}

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}
