// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package captiveportal implements component K, spec.md §4.K: per
// (service, family) WISPr probe-and-login state machine. It asks
// internal/httpclient for an interface-and-family-bound client, parses the
// probe response as either connd's own status document or a WISPr
// <WISPAccessGatewayParam> document, and drives an internal/agent prompt
// when a login is required.
package captiveportal

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"grimm.is/connd/internal/errors"
	"grimm.is/connd/internal/httpclient"
	"grimm.is/connd/internal/ipconfig"
	"grimm.is/connd/internal/logging"
)

// StatusURLv4 and StatusURLv6 are the well-known probe targets, per family.
var (
	StatusURLv4 = "http://ipv4.connman.net/online/status.html"
	StatusURLv6 = "http://ipv6.connman.net/online/status.html"
)

// userAgent identifies connd to portals the way a browser would.
const userAgent = "connd/1.0 (WISPr)"

// wisprDocument mirrors the fields spec.md §4.K names from a WISPr
// <WISPAccessGatewayParam> response body.
type wisprDocument struct {
	XMLName  xml.Name `xml:"WISPAccessGatewayParam"`
	Redirect struct {
		MessageType     int    `xml:"MessageType"`
		ResponseCode    int    `xml:"ResponseCode"`
		AccessProcedure string `xml:"AccessProcedure"`
		AccessLocation  string `xml:"AccessLocation"`
		LocationName    string `xml:"LocationName"`
		LoginURL        string `xml:"LoginURL"`
		AbortLoginURL   string `xml:"AbortLoginURL"`
	} `xml:"Redirect"`
	AuthenticationReply struct {
		MessageType  int    `xml:"MessageType"`
		ResponseCode int    `xml:"ResponseCode"`
		LogoffURL    string `xml:"LogoffURL"`
	} `xml:"AuthenticationReply"`
}

// messageType returns whichever of Redirect/AuthenticationReply was
// populated; spec.md §4.K's {MessageType, ResponseCode, ...} field set is a
// union of the two WISPr element shapes.
func (d *wisprDocument) messageType() int {
	if d.Redirect.MessageType != 0 {
		return d.Redirect.MessageType
	}
	return d.AuthenticationReply.MessageType
}

func (d *wisprDocument) responseCode() int {
	if d.Redirect.ResponseCode != 0 {
		return d.Redirect.ResponseCode
	}
	return d.AuthenticationReply.ResponseCode
}

func (d *wisprDocument) loginURL() string { return d.Redirect.LoginURL }

// Outcome is what a probe concluded.
type Outcome int

const (
	OutcomeOnline Outcome = iota
	OutcomeLoginRequired
	OutcomeLoginSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOnline:
		return "online"
	case OutcomeLoginRequired:
		return "login-required"
	case OutcomeLoginSucceeded:
		return "login-succeeded"
	default:
		return "failed"
	}
}

// CredentialRequester asks the external agent for WISPr login fields,
// spec.md §4.K "triggers an agent credential request".
type CredentialRequester interface {
	RequestWISPrCredentials(ctx context.Context, serviceIdentifier string) (username, password string, err error)
}

// Engine drives one (service, family) context's portal probe.
type Engine struct {
	ServiceIdentifier string
	Interface         string
	Family            ipconfig.Family
	ProxyFromEnv      bool
	Agent             CredentialRequester

	cancel context.CancelFunc
}

func statusURL(family ipconfig.Family) string {
	if family == ipconfig.FamilyV6 {
		return StatusURLv6
	}
	return StatusURLv4
}

// Start launches a probe, cancelling any probe already in progress for this
// engine first — spec.md §4.K "idempotent: calling start when a probe is
// already in progress cancels the prior one".
func (e *Engine) Start(ctx context.Context) Outcome {
	if e.cancel != nil {
		e.cancel()
	}
	probeCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	defer func() {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}()

	return e.probe(probeCtx, statusURL(e.Family), 0)
}

// Cancel aborts an in-progress probe, spec.md §5 "Captive-portal probes are
// cancelled when the service leaves READY".
func (e *Engine) Cancel() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// probe issues one GET and interprets the result, following at most one
// redirect hop per spec.md §4.K step 2/Result handling.
func (e *Engine) probe(ctx context.Context, target string, hop int) Outcome {
	logger := logging.WithComponent("captiveportal")
	cfg := httpclient.Config{
		Interface:            e.Interface,
		Timeout:              httpclient.DefaultConfig().Timeout,
		ProxyFromEnvironment: e.ProxyFromEnv,
	}

	resp, err := e.get(ctx, cfg, target)
	if err != nil {
		logger.WithError(err).Warn("portal probe transport error", "service", e.ServiceIdentifier)
		return OutcomeFailed
	}
	defer resp.Body.Close()

	if status := resp.Header.Get("X-ConnMan-Status"); status != "" {
		logger.Info("portal probe resolved via status endpoint",
			"service", e.ServiceIdentifier,
			"client_ip", resp.Header.Get("Client-IP"),
			"client_country", resp.Header.Get("Client-Country"),
			"client_region", resp.Header.Get("Client-Region"))
		return OutcomeOnline
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return e.handleBody(ctx, resp)
	case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther:
		if hop > 0 {
			return OutcomeFailed
		}
		loc := resp.Header.Get("Location")
		if loc == "" {
			return OutcomeFailed
		}
		return e.probe(ctx, loc, hop+1)
	case http.StatusNotFound:
		return OutcomeFailed
	default:
		return OutcomeFailed
	}
}

func (e *Engine) get(ctx context.Context, cfg httpclient.Config, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "captiveportal: bad probe url")
	}
	req.Header.Set("Accept", "")
	req.Header.Set("User-Agent", userAgent)
	req.Close = true

	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "captiveportal: probe request failed")
	}
	return resp, nil
}

func (e *Engine) handleBody(ctx context.Context, resp *http.Response) Outcome {
	logger := logging.WithComponent("captiveportal")

	var doc wisprDocument
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		// A 200 with neither an X-ConnMan-Status header (checked by the
		// caller) nor a decodable WISPr document is indistinguishable from
		// a portal that served its login page over plain 200 instead of a
		// redirect; treat it as requiring login rather than as online.
		logger.Info("portal probe returned undecodable body, requesting login", "service", e.ServiceIdentifier)
		return OutcomeLoginRequired
	}

	msgType := doc.messageType()
	code := doc.responseCode()

	switch msgType {
	case 100:
		if e.Agent == nil {
			logger.Warn("login required but no agent registered", "service", e.ServiceIdentifier)
			return OutcomeFailed
		}
		user, pass, err := e.Agent.RequestWISPrCredentials(ctx, e.ServiceIdentifier)
		if err != nil {
			return OutcomeFailed
		}
		return e.login(ctx, doc.loginURL(), statusURL(e.Family), user, pass)
	case 120, 140:
		if code == 50 {
			return OutcomeLoginSucceeded
		}
		return OutcomeFailed
	default:
		return OutcomeFailed
	}
}

// login POSTs the WISPr-mandated form to loginURL, spec.md §4.K's exact
// field list.
func (e *Engine) login(ctx context.Context, loginURL, statusURL, username, password string) Outcome {
	if loginURL == "" {
		return OutcomeFailed
	}
	form := url.Values{
		"button":            {"Login"},
		"UserName":          {username},
		"Password":          {password},
		"FNAME":             {"0"},
		"OriginatingServer": {statusURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	cfg := httpclient.Config{Interface: e.Interface, Timeout: httpclient.DefaultConfig().Timeout, ProxyFromEnvironment: e.ProxyFromEnv}
	client, err := httpclient.New(cfg)
	if err != nil {
		return OutcomeFailed
	}
	resp, err := client.Do(req)
	if err != nil {
		return OutcomeFailed
	}
	defer resp.Body.Close()

	return e.probe(ctx, statusURL, 1)
}

func (e *Engine) String() string {
	return fmt.Sprintf("captiveportal(%s/%s)", e.ServiceIdentifier, familyLabel(e.Family))
}

func familyLabel(f ipconfig.Family) string {
	if f == ipconfig.FamilyV6 {
		return "ipv6"
	}
	return "ipv4"
}
