// Package messages holds the launcher protocol: the append-only tag catalog,
// one struct per message variant, the tag registry and the envelope codec.
//
// An envelope is a 2-byte little-endian tag followed by a UTF-8 JSON object
// naming the variant's fields:
//
//	offset 0..1 : tag (uint16, little-endian)
//	offset 2..N : payload, e.g. {"seconds_remaining":60,"counting":true}
//
// Decoding distinguishes three failures so callers can react differently:
// UnknownTagError (tag not in the registry, typically version skew),
// MalformedPayloadError (payload unreadable, a field missing, unexpected or
// out of range) and TagMismatchError (the decoded value disagrees with the
// envelope tag). None of them affect later calls; the registry is read-only
// and Encode/Decode may run concurrently.
package messages
