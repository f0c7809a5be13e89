package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTokenNotMinted reports that the ledger itself says the token does not
// exist. It is an expected outcome, not a transport failure, and is never
// retried.
var ErrTokenNotMinted = errors.New("token not minted")

// AllEndpointsFailedError reports that one logical read was attempted against
// every endpoint in the pool and none answered.
type AllEndpointsFailedError struct {
	Attempts int
	Last     error
}

func (e *AllEndpointsFailedError) Error() string {
	return fmt.Sprintf("all %d rpc endpoints failed: %v", e.Attempts, e.Last)
}

func (e *AllEndpointsFailedError) Unwrap() error {
	return e.Last
}

// Revert messages the major ERC-721 implementations emit for reads against
// unminted ids (OpenZeppelin v4, v5 and solmate variants).
var notMintedMarkers = []string{
	"nonexistent token",
	"invalid token id",
	"erc721nonexistenttoken",
	"token does not exist",
	"not_minted",
}

func isNotMinted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range notMintedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
