package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
)

// TCP is a plain-TCP or TLS Transport, grounded on the teacher's
// dialServer (client.go): scheme-based default ports (1883 for
// tcp/mqtt, 8883 for tls/ssl/mqtts) and an optional *tls.Config.
type TCP struct {
	*connTransport
	tlsConfig *tls.Config
}

// NewTCP returns a TCP transport. tlsConfig may be nil; a nil config
// with a tls/ssl/mqtts scheme URL still dials TLS, using the zero
// tls.Config, the same fallback dialServer applies.
func NewTCP(tlsConfig *tls.Config) *TCP {
	return &TCP{connTransport: newConnTransport(), tlsConfig: tlsConfig}
}

func (t *TCP) Connect(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("transport: invalid server URL: %w", err)
	}
	if u.Port() == "" {
		switch u.Scheme {
		case "tls", "ssl", "mqtts":
			u.Host = net.JoinHostPort(u.Host, "8883")
		case "tcp", "mqtt", "":
			u.Host = net.JoinHostPort(u.Host, "1883")
		}
	}

	useTLS := u.Scheme == "tls" || u.Scheme == "ssl" || u.Scheme == "mqtts" || t.tlsConfig != nil
	if !useTLS && u.Scheme != "tcp" && u.Scheme != "mqtt" {
		return fmt.Errorf("transport: unsupported scheme %q (supported: tcp, mqtt, tls, ssl, mqtts)", u.Scheme)
	}

	return t.dialContext(ctx, func(ctx context.Context) (net.Conn, error) {
		if useTLS {
			cfg := t.tlsConfig
			if cfg == nil {
				cfg = &tls.Config{}
			}
			dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
			return dialer.DialContext(ctx, "tcp", u.Host)
		}
		var d net.Dialer
		return d.DialContext(ctx, "tcp", u.Host)
	})
}
