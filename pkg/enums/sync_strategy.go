package enums

// SyncStrategy selects how the sync driver enumerates the token population.
type SyncStrategy string

const (
	// SyncStrategySupply walks the contiguous range [0, totalSupply).
	SyncStrategySupply SyncStrategy = "supply"
	// SyncStrategyEvents collects token ids from historical Transfer events.
	SyncStrategyEvents SyncStrategy = "events"
)

// Valid reports whether the strategy is recognized.
func (s SyncStrategy) Valid() bool {
	return s == SyncStrategySupply || s == SyncStrategyEvents
}
