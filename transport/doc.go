// Package transport moves encoded CPOR frames between peers and owns
// the session-continuity state the protocol core deliberately does not:
// sequence counters, resume nonces, and their persistence.
//
// Two conduits are provided: a NATS publish/subscribe conduit for
// networked deployments and a length-prefixed vsock conduit for
// enclave deployments. Both call cpor.Encode and cpor.Parse only at
// the frame boundary; a frame that fails to parse is dropped and
// logged, never retried. Retry and backoff policy beyond the NATS
// client's own reconnect handling belongs to the caller.
package transport
