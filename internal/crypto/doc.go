// Package crypto derives rolling proximity identifiers from daily tracing keys.
//
// Derivation
//
//   - rolling key: HKDF-SHA256 over the 16-byte daily tracing key, no salt,
//     info "EN-RPIK", 16 bytes of output
//   - identifier: AES-128 of the block "EN-RPI" || 0x00*6 || uint32_le(window)
//     under the rolling key
//
// The block cipher is a pseudorandom permutation keyed by the daily key, so
// identifiers of different windows or keys are indistinguishable from random
// without the key, and an observed identifier cannot be traced back to it.
//
// # Notes
//
// Every function is deterministic: the same key and window always yield the
// same identifier. Intermediate rolling keys are wiped after use.
package crypto
