// Package crypto implements the CPOR cryptography manager: Ed25519 key
// generation, signing and verification over a pluggable secure-storage
// abstraction, plus the protocol's nonce and session-key utilities.
//
// Keys live either in the Manager's in-process software keystore or in
// a hardware-backed SecureStore from which private material never
// leaves. When hardware storage is requested but unavailable the
// manager falls back to software storage; the decision is logged and
// visible in the returned KeyPair, and can be turned into a hard error
// with WithRequireHardware for deployments with compliance constraints.
package crypto
