package mqttendpoint

import (
	"io"
	"log/slog"
	"time"

	"github.com/arrowmq/endpoint/auth"
	"github.com/arrowmq/endpoint/engine"
	"github.com/arrowmq/endpoint/packet"
)

// config holds the construction-time options spec.md §6's Configuration
// table enumerates, generalized from the teacher's clientOptions
// (options.go) the same way engine.Config is, plus the two reserved
// timeouts spec §9 leaves to the implementation.
type config struct {
	engine engine.Config

	// ConnectTimeout bounds how long Connect waits for the transport to
	// report Connected before failing with ErrTransportError (spec §9's
	// connection_establish_timeout_ms). Zero disables the watchdog.
	ConnectTimeout time.Duration

	// CloseTimeout bounds how long Close waits for the transport to
	// confirm Closed before returning anyway (spec §9's
	// shutdown_timeout_ms). Zero disables the watchdog.
	CloseTimeout time.Duration

	// Authenticator drives the v5.0 enhanced-authentication exchange
	// (spec §4.4.1, §6), if set.
	Authenticator auth.Authenticator

	Logger *slog.Logger
}

func defaultConfig() config {
	return config{
		engine: engine.Config{
			Version:         packet.V5_0,
			AutoPubResponse: true,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures an Endpoint at construction, the way the teacher's
// Option func(*clientOptions) configures a Client (options.go).
type Option func(*config)

// WithVersion selects the MQTT protocol version (default V5_0).
func WithVersion(v packet.Version) Option {
	return func(c *config) { c.engine.Version = v }
}

// WithPingreqSendInterval overrides the PINGREQ cadence; zero (the
// default) derives it from half the negotiated keep-alive.
func WithPingreqSendInterval(d time.Duration) Option {
	return func(c *config) { c.engine.PingreqSendInterval = d }
}

// WithPingrespRecvTimeout bounds how long the engine waits for PINGRESP
// after PINGREQ; zero disables the timer.
func WithPingrespRecvTimeout(d time.Duration) Option {
	return func(c *config) { c.engine.PingrespRecvTimeout = d }
}

// WithAutoPubResponse controls whether the engine auto-emits
// PUBACK/PUBREC/PUBREL/PUBCOMP as QoS flows advance (default true).
func WithAutoPubResponse(enable bool) Option {
	return func(c *config) { c.engine.AutoPubResponse = enable }
}

// WithAutoPingResponse controls whether the engine auto-emits PINGRESP
// for an inbound PINGREQ (default false).
func WithAutoPingResponse(enable bool) Option {
	return func(c *config) { c.engine.AutoPingResponse = enable }
}

// WithAutoMapTopicAliasSend enables automatic outbound topic-alias
// allocation for v5.0 PUBLISH (spec §4.4.2).
func WithAutoMapTopicAliasSend(enable bool) Option {
	return func(c *config) { c.engine.AutoMapTopicAliasSend = enable }
}

// WithAutoReplaceTopicAliasSend allows evicting the oldest outbound
// alias entry when the map is full and a new topic needs one.
func WithAutoReplaceTopicAliasSend(enable bool) Option {
	return func(c *config) { c.engine.AutoReplaceTopicAliasSend = enable }
}

// WithMaxIncomingPacket bounds the Remaining Length accepted from the
// peer; zero (the default) means unbounded.
func WithMaxIncomingPacket(n int) Option {
	return func(c *config) { c.engine.MaxIncomingPacket = n }
}

// WithConnectTimeout arms the connection_establish_timeout_ms watchdog
// (spec §9): Connect fails with ErrTransportError if the transport has
// not reported Connected within d. Zero (the default) disables it.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) { c.ConnectTimeout = d }
}

// WithCloseTimeout arms the shutdown_timeout_ms watchdog (spec §9):
// Close waits up to d for the transport to confirm Closed before
// returning anyway. Zero (the default) disables it.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *config) { c.CloseTimeout = d }
}

// WithAuthenticator installs the v5.0 enhanced-authentication handler
// driven by the endpoint loop on CONNECT/AUTH (spec §4.4.1, §6).
func WithAuthenticator(a auth.Authenticator) Option {
	return func(c *config) { c.Authenticator = a }
}

// WithLogger attaches a *slog.Logger (default: discard), the way the
// teacher's clientOptions.Logger does (options.go).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}
