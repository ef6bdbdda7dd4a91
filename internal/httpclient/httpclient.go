// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package httpclient builds *http.Client values bound to a single network
// interface (spec.md §2.C), for the WISPr probe (internal/captiveportal) and
// the 6to4 reachability check (internal/tunnel6to4) — both need to issue a
// request down one specific service's interface regardless of what the
// system's current default route says, which a stock http.Client has no way
// to express.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/sys/unix"

	"grimm.is/connd/internal/errors"
)

// Config controls how a bound client resolves, connects and proxies.
type Config struct {
	// Interface is the network interface every connection must egress
	// through, enforced via SO_BINDTODEVICE.
	Interface string
	// Timeout bounds the whole request, matching the teacher's
	// context-deadline-first convention (oui_updater.go's 30s client
	// timeout) rather than per-phase timeouts.
	Timeout time.Duration
	// ProxyFromEnvironment consults the process's standard http_proxy/
	// https_proxy/no_proxy variables via golang.org/x/net/http/httpproxy,
	// the same resolution order browsers and curl use. A service's own
	// Proxy.* keyfile settings are not consulted.
	ProxyFromEnvironment bool
}

// DefaultConfig returns a 10-second, unbound, no-proxy configuration.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second}
}

// New builds an *http.Client whose underlying TCP connections are bound to
// cfg.Interface via SO_BINDTODEVICE, so traffic always egresses there even
// if the kernel's default route points elsewhere.
func New(cfg Config) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout: cfg.Timeout,
	}
	if cfg.Interface != "" {
		dialer.Control = bindToDevice(cfg.Interface)
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
		Proxy:       proxyFunc(cfg),
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

func proxyFunc(cfg Config) func(*http.Request) (*url.URL, error) {
	if !cfg.ProxyFromEnvironment {
		return nil
	}
	pc := httpproxy.FromEnvironment()
	return func(req *http.Request) (*url.URL, error) {
		u, err := pc.ProxyFunc()(req.URL)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindProtocol, "httpclient: proxy resolution failed")
		}
		return u, nil
	}
}

// bindToDevice returns a net.Dialer.Control function that applies
// SO_BINDTODEVICE to every socket this dialer creates, pinning it to iface.
func bindToDevice(iface string) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = unix.BindToDevice(int(fd), iface)
		})
		if err != nil {
			return errors.Wrapf(err, errors.KindIO, "httpclient: raw control failed for %s", iface)
		}
		if ctrlErr != nil {
			return errors.Wrapf(ctrlErr, errors.KindIO, "httpclient: SO_BINDTODEVICE failed for %s", iface)
		}
		return nil
	}
}

// Get performs a bound GET request and returns the response; the caller
// must Close its body.
func Get(ctx context.Context, cfg Config, rawURL string) (*http.Response, error) {
	client, err := New(cfg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "httpclient: bad request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "httpclient: request failed")
	}
	return resp, nil
}
