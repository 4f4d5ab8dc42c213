package possync

import (
	"fmt"
	"time"

	"github.com/fekuna/omnipos-pos-sync/internal/database"
)

// PhaseReport is the outcome of one catalog phase. Processed counts records
// applied without error; Skipped ones referenced rows that do not exist
// locally.
type PhaseReport struct {
	Success    bool     `json:"success"`
	Processed  int      `json:"processed"`
	Inserted   int      `json:"inserted"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Skipped    int      `json:"skipped"`
	Pages      int      `json:"pages"`
	Errors     []string `json:"errors"`
	DurationMS int64    `json:"duration"`
}

type OrderReport struct {
	Success         bool     `json:"success"`
	Processed       int      `json:"processed"`
	Inserted        int      `json:"inserted"`
	Updated         int      `json:"updated"`
	Unchanged       int      `json:"unchanged"`
	MarkedForDelete int      `json:"marked_for_delete"`
	Unmatched       int      `json:"unmatched"`
	Pruned          bool     `json:"pruned"`
	Errors          []string `json:"errors"`
	DurationMS      int64    `json:"duration"`
}

type Report struct {
	Success     bool        `json:"success"`
	Enabled     bool        `json:"enabled"`
	MerchantID  string      `json:"merchant_id"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	DurationMS  int64       `json:"duration"`
	Error       string      `json:"error,omitempty"`
	Categories  PhaseReport `json:"categories"`
	Products    PhaseReport `json:"products"`
	Inventory   PhaseReport `json:"inventory"`
	Orders      OrderReport `json:"orders"`
}

// TotalErrors counts record-level errors across phases.
func (r *Report) TotalErrors() int {
	return len(r.Categories.Errors) + len(r.Products.Errors) + len(r.Inventory.Errors) + len(r.Orders.Errors)
}

func (r *Report) finish(now time.Time, err error) {
	r.CompletedAt = now
	r.DurationMS = now.Sub(r.StartedAt).Milliseconds()
	r.Success = err == nil
	if err != nil {
		r.Error = err.Error()
	}
}

func (p *PhaseReport) count(outcome database.UpsertOutcome) {
	p.Processed++
	switch outcome {
	case database.Inserted:
		p.Inserted++
	case database.Updated:
		p.Updated++
	default:
		p.Unchanged++
	}
}

func (o *OrderReport) count(outcome database.UpsertOutcome) {
	o.Processed++
	switch outcome {
	case database.Inserted:
		o.Inserted++
	case database.Updated:
		o.Updated++
	default:
		o.Unchanged++
	}
}

func recordError(key string, err error) string {
	return fmt.Sprintf("%s: %v", key, err)
}
