// Package auth defines the v5.0 enhanced-authentication exchange
// (spec.md §4.4.1/§6: CONNECT's AuthenticationMethod/AuthenticationData
// properties, the AUTH packet challenge/response loop, and completion
// on a successful CONNACK) and ships one concrete implementation,
// ScramAuthenticator, for SCRAM-SHA-256.
//
// Grounded on the teacher's Authenticator interface (auth.go) and its
// invocation from handleAuth (auth_handler.go): the engine package
// never calls an Authenticator itself (engine/connection.go treats
// AUTH like any other inbound packet and hands it upward as a Deliver
// event), because HandleChallenge is arbitrary user code that must not
// run inside the engine's pure dispatch step. The endpoint loop (package
// mqttendpoint) is the one that owns an Authenticator and drives it.
package auth

// Authenticator performs one v5.0 enhanced-authentication exchange.
// Implementations are supplied via the endpoint's Authenticator option
// and driven entirely by the endpoint loop, never by the engine.
type Authenticator interface {
	// Method names the authentication method, sent in CONNECT's
	// AuthenticationMethod property (e.g. "SCRAM-SHA-256").
	Method() string

	// InitialData returns the data to attach to CONNECT's
	// AuthenticationData property. Nil or empty means no initial data.
	InitialData() ([]byte, error)

	// HandleChallenge is called for each AUTH packet received from the
	// peer during the exchange and returns the response data to send
	// back in the next AUTH packet. It runs on the endpoint's single
	// event-loop goroutine and must return quickly: a slow challenge
	// handler blocks every other inbound packet behind it, which
	// matters most during re-authentication of a live connection.
	HandleChallenge(challengeData []byte, reasonCode uint8) ([]byte, error)

	// Complete is invoked once CONNACK reports success. Its error is
	// reported but does not affect the already-successful connection.
	Complete() error
}
