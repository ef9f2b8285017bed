// Package cpor implements the CPOR-2 session protocol message layer:
// ten signed, versioned, CBOR-encoded message kinds covering connection
// establishment, session resumption, batched delivery, heartbeats,
// acknowledgments and closure.
//
// Messages are immutable values. They are built through the New*
// constructors, which validate every field before the instance becomes
// observable, and re-validated when decoded off the wire. Encoding is
// canonical (deterministic) CBOR, so the byte stream produced by Encode
// is the exact payload that Sign and Verify operate on.
//
// Decoding dispatches on the explicit "type" discriminant via Parse.
// Legacy peers that omit the discriminant are only supported through
// ParseLegacy, which applies the historical structural inference rules.
package cpor
