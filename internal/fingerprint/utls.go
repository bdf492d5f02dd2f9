package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	utls "github.com/refraction-networking/utls"
)

// Config tunes the transport built for a profile.
type Config struct {
	// Proxy is installed as the transport's Proxy func when set.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate verification on both the uTLS
	// and the crypto/tls paths.
	InsecureSkipVerify bool
}

// Transport returns an http.RoundTripper whose TLS ClientHello matches the
// given profile. ProfileGo yields a plain clone of http.DefaultTransport; every
// other profile dials through utls.UClient.
//
// uTLS connections are not *tls.Conn, so net/http always speaks HTTP/1.1 over
// them. The ALPN extension is rewritten to offer only http/1.1 to keep the
// server from selecting h2.
//
// Proxied HTTPS requests are tunnelled by net/http itself and handshake with
// crypto/tls after CONNECT; only direct connections carry the uTLS hello.
func Transport(p Profile, cfg Config) (*http.Transport, error) {
	id, ok := catalog[p]
	if !ok {
		return nil, fmt.Errorf("context: unknown profile %q", p)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != nil {
		transport.Proxy = cfg.Proxy
	}
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	if p == ProfileGo {
		return transport, nil
	}

	// Clone() leaves HTTP/2 configured for the crypto/tls path; the proxied
	// path handshakes there too, so keep it on http/1.1 for consistency.
	transport.ForceAttemptHTTP2 = false
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newUConn(tcpConn, host, id.hello, cfg.InsecureSkipVerify)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("context: utls handshake failed: %w", err)
		}
		return uConn, nil
	}

	return transport, nil
}

// newUConn builds a client connection for hello. Fixed browser hellos are
// expanded to a spec so the ALPN list can be pinned; randomized hellos have
// no spec and are used as they are.
func newUConn(conn net.Conn, host string, hello utls.ClientHelloID, insecure bool) (*utls.UConn, error) {
	cfg := &utls.Config{ServerName: host, InsecureSkipVerify: insecure}

	if hello == utls.HelloRandomizedNoALPN {
		return utls.UClient(conn, cfg, hello), nil
	}

	// A fresh spec per connection: ApplyPreset takes ownership of the
	// extension values.
	spec, err := utls.UTLSIdToSpec(hello)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	pinALPN(&spec)

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("context: apply preset: %w", err)
	}
	return uConn, nil
}

func pinALPN(spec *utls.ClientHelloSpec) {
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
}
