// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package httpclient

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"

	"grimm.is/connd/internal/errors"
)

// StaticProxy builds a proxy resolver from a single explicit URL, the
// "manual" Proxy.Method case of spec.md §6 (Proxy.Servers / Proxy.URL keys),
// as opposed to ProxyFromEnvironment's "auto" method which defers to
// environment variables.
func StaticProxy(rawURL string) (func(*http.Request) (*url.URL, error), error) {
	if rawURL == "" {
		return nil, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "httpclient: invalid proxy url %q", rawURL)
	}
	return http.ProxyURL(u), nil
}

// ExcludeList builds the httpproxy NoProxy-style comma list spec.md §6's
// Proxy.Excludes key holds, for use alongside StaticProxy.
func ExcludeList(excludes []string) string {
	return strings.Join(excludes, ",")
}

// proxyConfigFromKeys mirrors httpproxy.Config's shape for services using
// the PAC-less "manual" method with an explicit server list rather than a
// single Proxy.URL.
func proxyConfigFromKeys(servers, excludes []string) httpproxy.Config {
	var httpURL string
	if len(servers) > 0 {
		httpURL = servers[0]
	}
	return httpproxy.Config{
		HTTPProxy:  httpURL,
		HTTPSProxy: httpURL,
		NoProxy:    ExcludeList(excludes),
	}
}
