package enums

// OrderStatus tracks the lifecycle of a marketplace listing.
type OrderStatus string

const (
	// OrderStatusActive marks a signed listing awaiting settlement.
	OrderStatusActive OrderStatus = "active"
	// OrderStatusFulfilled marks a listing settled on-chain.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled marks a listing cancelled before settlement.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String returns the wire form of the status.
func (s OrderStatus) String() string {
	return string(s)
}

// IsActive reports whether the listing still awaits settlement.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusActive
}

// Valid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusActive, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}
