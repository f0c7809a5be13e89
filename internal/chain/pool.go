package chain

import (
	"errors"
	"sync/atomic"
)

// EndpointPool hands out RPC endpoints round-robin. Selection never fails and
// never blocks; reachability is the reader's concern. Failed endpoints are
// simply rotated past, so transient outages heal without operator action.
type EndpointPool struct {
	endpoints []string
	cursor    atomic.Uint64
}

// NewEndpointPool builds a pool over an ordered, non-empty endpoint list.
func NewEndpointPool(endpoints []string) (*EndpointPool, error) {
	cleaned := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e == "" {
			continue
		}
		cleaned = append(cleaned, e)
	}
	if len(cleaned) == 0 {
		return nil, errors.New("at least one rpc endpoint is required")
	}
	return &EndpointPool{endpoints: cleaned}, nil
}

// Next returns the next endpoint, wrapping at the end of the list.
func (p *EndpointPool) Next() string {
	n := p.cursor.Add(1) - 1
	return p.endpoints[n%uint64(len(p.endpoints))]
}

// Size returns the number of endpoints in rotation.
func (p *EndpointPool) Size() int {
	return len(p.endpoints)
}
