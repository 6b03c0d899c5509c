// Package ledger provides access to the supply-chain canister: the Gateway
// interface over its command-invocation boundary, a dfx-backed implementation
// for real deployments, and an in-memory implementation for development and
// tests.
//
// Replies are Candid textual values; decoding them is the caller's concern
// (internal/candid). The ledger itself is append-only: products are created
// once and never mutated, events are appended and never removed.
package ledger

import (
	"context"
	"fmt"
	"strings"
)

// Canister method names. The four core operations plus the participant and
// verification methods the canister also exposes.
const (
	MethodGetAllProducts      = "get_all_products"
	MethodCreateProduct       = "create_product"
	MethodGetTrace            = "get_supply_chain_trace"
	MethodAddEvent            = "add_supply_chain_event"
	MethodGetProduct          = "get_product"
	MethodRegisterParticipant = "register_participant"
	MethodGetParticipants     = "get_participants"
	MethodVerifyAuthenticity  = "verify_product_authenticity"
)

// Gateway invokes a single canister method and returns its raw textual reply.
// An empty args string means the method takes no arguments.
//
// Implementations must not retry: retry and timeout policy belongs to the
// caller via ctx.
type Gateway interface {
	Call(ctx context.Context, method, args string) (string, error)
}

// GatewayError reports that the underlying command could not be executed or
// that the process itself failed. It is distinct from a reply that decodes
// to a canister-level rejection (see IsRejectText).
type GatewayError struct {
	Method string
	Stderr string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("canister call %s: %v: %s", e.Method, e.Err, e.Stderr)
	}
	return fmt.Sprintf("canister call %s: %v", e.Method, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// rejectMarkers are the substrings the canister embeds in an otherwise
// successful reply to signal a rejected operation. The gateway exits zero in
// these cases, so the reply text itself must be inspected.
var rejectMarkers = []string{
	"not found",
	"not initialized",
}

// IsRejectText reports whether a decoded reply string carries one of the
// canister's rejection markers rather than a real result.
func IsRejectText(s string) bool {
	for _, m := range rejectMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
