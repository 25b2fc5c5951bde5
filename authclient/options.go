package authclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/voicegate/internal/audit"
)

// Action names one of the service's endpoints.
type Action string

const (
	ActionCreateAccount Action = "create_account"
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionAccountLogout Action = "account_logout"
)

// CredentialsMode controls when stored cookies are attached to a request
// and when cookies set by the response are kept.
type CredentialsMode string

const (
	CredentialsInclude    CredentialsMode = "include"
	CredentialsSameOrigin CredentialsMode = "same-origin"
	CredentialsOmit       CredentialsMode = "omit"
)

// ParseCredentialsMode accepts include, same-origin and omit.
func ParseCredentialsMode(s string) (CredentialsMode, error) {
	switch m := CredentialsMode(s); m {
	case CredentialsInclude, CredentialsSameOrigin, CredentialsOmit:
		return m, nil
	case "":
		return CredentialsSameOrigin, nil
	default:
		return "", fmt.Errorf("unknown credentials mode %q", s)
	}
}

// Endpoint is the transport configuration of one action.
type Endpoint struct {
	// Path is resolved against the base URL; an absolute URL is used as is.
	Path        string
	Credentials CredentialsMode
}

// DefaultEndpoints returns the service's paths. Both logout pathways share
// an endpoint; the account-page one always sends cookies.
func DefaultEndpoints() map[Action]Endpoint {
	return map[Action]Endpoint{
		ActionCreateAccount: {Path: "/account/create", Credentials: CredentialsSameOrigin},
		ActionLogin:         {Path: "/account/login", Credentials: CredentialsSameOrigin},
		ActionLogout:        {Path: "/account/logout", Credentials: CredentialsSameOrigin},
		ActionAccountLogout: {Path: "/account/logout", Credentials: CredentialsInclude},
	}
}

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "voicegate"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the transport configuration of one action.
func WithEndpoint(action Action, ep Endpoint) Option {
	return func(c *Client) {
		c.endpoints[action] = ep
	}
}

// WithCookieJar sets where session cookies are kept.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the client logger. Audit events go to the same handler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuditLogger overrides the audit logger derived from WithLogger.
func WithAuditLogger(a *audit.Logger) Option {
	return func(c *Client) {
		c.audit = a
	}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithRequestIDGenerator overrides how X-Request-ID values are made.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}
