package redis

import (
	"fmt"

	"github.com/kirinyoku/seat-market/internal/domain"
)

const ns = "seatmarket:v1"

func KeyQuery(addr domain.Addr, hash string) string {
	return fmt.Sprintf("%s:contract:%s:query:%s", ns, addr, hash)
}

// KeyQueryIndex holds the query keys cached for a contract.
func KeyQueryIndex(addr domain.Addr) string {
	return fmt.Sprintf("%s:contract:%s:queries", ns, addr)
}

// KeyIdemExecute scopes an idempotency key to the contract, the sender and a
// fingerprint of the request body.
func KeyIdemExecute(addr, sender domain.Addr, fingerprint, idemKey string) string {
	return fmt.Sprintf("%s:idem:execute:%s:%s:%s:%s", ns, addr, sender, fingerprint, idemKey)
}

func KeyIdemInstantiate(sender domain.Addr, fingerprint, idemKey string) string {
	return fmt.Sprintf("%s:idem:instantiate:%s:%s:%s", ns, sender, fingerprint, idemKey)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelContractsChanged() string {
	return ns + ":contracts:changed"
}
