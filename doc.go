// Package authgate provides the trust core of a phone-number-based
// authentication service: bearer-token issuance over signed claim sets,
// cross-process token verification over a message-broker RPC protocol, and a
// cache-backed SMS verification-code workflow.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Service], [Builder], [Config],
// the request variants, and sentinel errors. Protocol and storage concerns
// live in the token, cache, broker, and rpc subpackages; the user directory,
// SMS sender, and document store stay behind interfaces supplied by the
// caller.
//
// # What this package must NOT do
//
//   - Persist users, roles, or provinces itself; the document store is an
//     external collaborator reached through [UserDirectory].
//   - Hold process-global service state; every dependency is injected
//     through [Builder].
//   - Distinguish credential failures to remote callers; verification
//     failure is uniform by design.
package authgate
