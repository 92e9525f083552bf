// Package token implements the bearer-token codec: a structured claim set
// signed under a shared HS256 secret with a fixed issuance TTL.
//
// The codec is stateless and side-effect free. A token is either valid as a
// whole or rejected as a whole; decoding never partially trusts a payload.
// Expiration is compared against UTC wall clock with zero leeway — there is
// no clock-skew grace window.
package token
