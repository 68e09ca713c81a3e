package models

// DetailState tracks the lifecycle of a watchlist entry's detail record.
type DetailState int

const (
	// DetailPending marks an entry whose detail fetch has not finished.
	DetailPending DetailState = iota
	// DetailResolved marks an entry with a full detail record attached.
	DetailResolved
	// DetailFailed marks an entry whose detail fetch failed. Failed entries
	// stay visible as failed-to-load placeholders and are not retried until
	// the next full load.
	DetailFailed
)

// WatchlistEntry is one movie on a user's watchlist together with whatever
// detail has been resolved for it so far.
type WatchlistEntry struct {
	OwnerID string       `json:"ownerId"`
	MovieID string       `json:"movieId"`
	State   DetailState  `json:"state"`
	Detail  *MovieDetail `json:"detail,omitempty"`
}

// Resolved reports whether the entry carries a full detail record.
func (e WatchlistEntry) Resolved() bool {
	return e.State == DetailResolved && e.Detail != nil
}
