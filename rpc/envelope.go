// Package rpc implements request/reply over the message-broker port: a
// client that correlates each outstanding call with a private reply queue,
// and a server loop that dispatches requests to registered operations.
//
// The wire contract is fixed across processes. A request body is a flat JSON
// object carrying "service_name" next to the operation's own fields. A reply
// body is {"message": <result>} on success or {"error": <string>} when
// dispatch rejects the request. Correlation ids and reply routing ride on the
// transport envelope, never inside the JSON body.
package rpc

import "encoding/json"

// envelope is the dispatch-relevant slice of a request body.
type envelope struct {
	ServiceName string `json:"service_name"`
}

// Reply is the wire shape of every RPC reply body.
type Reply struct {
	Message json.RawMessage `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}
