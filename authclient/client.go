// Package authclient talks to the voice authentication service: account
// creation, login with a voice sample, and logout.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmcleod/voicegate/internal/audit"
	"github.com/jmcleod/voicegate/internal/util"
	"github.com/jmcleod/voicegate/internal/uuid"
	"github.com/jmcleod/voicegate/payload"
)

// Client sends authentication requests. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	endpoints map[Action]Endpoint
	jar       http.CookieJar
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
	logger    *slog.Logger
	audit     *audit.Logger
	newID     func() string

	http *resty.Client
}

// New returns a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrValidation, baseURL)
	}
	c := &Client{
		base:      base,
		endpoints: DefaultEndpoints(),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	for action, ep := range c.endpoints {
		if _, err := ParseCredentialsMode(string(ep.Credentials)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrValidation, action, err)
		}
		if _, err := c.resolve(ep.Path); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrValidation, action, err)
		}
	}
	if c.audit == nil {
		c.audit = audit.New(c.logger)
	}
	c.logger = c.logger.With("component", "authclient")

	// Cookies are attached and stored per request according to each
	// action's credentials mode, so resty's own jar is disabled.
	rc := resty.New().
		SetCookieJar(nil).
		SetTimeout(c.timeout).
		SetHeader("User-Agent", c.userAgent).
		SetLogger(restyLogger{c.logger})
	if c.transport != nil {
		rc.SetTransport(c.transport)
	}
	c.http = rc
	return c, nil
}

// BaseURL returns the service URL requests are resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

// CreateAccount enrolls a new account with a voice sample. Blank credentials
// or an empty payload fail with ErrValidation before any request is made.
// For any response the result carries the body text verbatim.
func (c *Client) CreateAccount(ctx context.Context, creds *Credentials, p payload.Payload) (*CreateAccountResult, error) {
	resp, err := c.sendCredentials(ctx, ActionCreateAccount, creds, p)
	if err != nil {
		return nil, err
	}
	res := &CreateAccountResult{
		OK:         resp.IsSuccess(),
		StatusCode: resp.StatusCode(),
		Message:    string(resp.Body()),
	}
	attrs := []slog.Attr{
		slog.String("username", creds.Username()),
		slog.Int("status", res.StatusCode),
	}
	if res.OK {
		c.audit.Log(ctx, audit.AccountCreateSuccess, attrs...)
	} else {
		c.audit.Failure(ctx, audit.AccountCreateFailure, res.Message, attrs...)
	}
	return res, nil
}

// Login authenticates with a voice sample. A success response must carry
// {"similarity": n} with n in [0,1]; anything else fails with ErrNetwork.
// Whether the score is good enough is decided by the server alone.
func (c *Client) Login(ctx context.Context, creds *Credentials, p payload.Payload) (*LoginResult, error) {
	resp, err := c.sendCredentials(ctx, ActionLogin, creds, p)
	if err != nil {
		return nil, err
	}
	attrs := []slog.Attr{
		slog.String("username", creds.Username()),
		slog.Int("status", resp.StatusCode()),
	}
	if !resp.IsSuccess() {
		res := &LoginResult{StatusCode: resp.StatusCode(), Message: string(resp.Body())}
		c.audit.Failure(ctx, audit.LoginFailure, res.Message, attrs...)
		return res, nil
	}
	similarity, err := parseSimilarity(resp.Body())
	if err != nil {
		c.audit.Failure(ctx, audit.LoginFailure, err.Error(), attrs...)
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, ActionLogin, err)
	}
	c.audit.Log(ctx, audit.LoginSuccess, append(attrs, slog.Float64("similarity", similarity))...)
	return &LoginResult{OK: true, StatusCode: resp.StatusCode(), Similarity: similarity}, nil
}

// Logout ends the session from the recording page.
func (c *Client) Logout(ctx context.Context) (*LogoutResult, error) {
	return c.logout(ctx, ActionLogout)
}

// EndSession ends the session from the account page. It shares the logout
// endpoint but always sends the session cookie by default.
func (c *Client) EndSession(ctx context.Context) (*LogoutResult, error) {
	return c.logout(ctx, ActionAccountLogout)
}

func (c *Client) logout(ctx context.Context, action Action) (*LogoutResult, error) {
	resp, err := c.post(ctx, action, nil)
	if err != nil {
		return nil, err
	}
	res := &LogoutResult{
		OK:         resp.IsSuccess(),
		StatusCode: resp.StatusCode(),
		action:     action,
	}
	attrs := []slog.Attr{
		slog.String("action", string(action)),
		slog.Int("status", res.StatusCode),
	}
	if res.OK {
		c.audit.Log(ctx, audit.LogoutSuccess, attrs...)
		return res, nil
	}
	res.Message = string(resp.Body())
	if strings.TrimSpace(res.Message) == "" {
		res.Message = defaultLogoutMessage
	}
	c.audit.Failure(ctx, audit.LogoutFailure, res.Message, attrs...)
	return res, nil
}

func (c *Client) sendCredentials(ctx context.Context, action Action, creds *Credentials, p payload.Payload) (*resty.Response, error) {
	if err := validateCredentialRequest(creds, p); err != nil {
		c.audit.Failure(ctx, audit.RequestValidationFailed, err.Error(),
			slog.String("action", string(action)),
		)
		return nil, err
	}
	var body []byte
	if err := creds.withPassword(func(password []byte) error {
		var err error
		body, err = credentialBody(creds.Username(), password, p)
		return err
	}); err != nil {
		return nil, err
	}
	defer util.WipeBytes(body)
	return c.post(ctx, action, body)
}

func validateCredentialRequest(creds *Credentials, p payload.Payload) error {
	if !creds.Valid() {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if p.Empty() {
		return fmt.Errorf("%w: record a voice sample first", ErrValidation)
	}
	return nil
}

// post sends one request. A nil body posts without content.
func (c *Client) post(ctx context.Context, action Action, body []byte) (*resty.Response, error) {
	ep := c.endpoints[action]
	target, err := c.resolve(ep.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, action, err)
	}
	requestID := c.newID()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	withCookies := c.jar != nil && c.cookiesAllowed(ep.Credentials, target)
	if withCookies {
		req.SetCookies(c.jar.Cookies(target))
	}

	start := time.Now()
	resp, err := req.Post(target.String())
	if err != nil {
		c.audit.Failure(ctx, audit.RequestTransportFailed, err.Error(),
			slog.String("action", string(action)),
			slog.String("request_id", requestID),
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, action, err)
	}
	if withCookies {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(target, cookies)
		}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "request completed",
		slog.String("action", string(action)),
		slog.String("request_id", requestID),
		slog.String("url", target.String()),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref), nil
}

func (c *Client) cookiesAllowed(mode CredentialsMode, target *url.URL) bool {
	switch mode {
	case CredentialsInclude:
		return true
	case CredentialsOmit:
		return false
	default:
		return sameOrigin(c.base, target)
	}
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func parseSimilarity(body []byte) (float64, error) {
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if lr.Similarity == nil {
		return 0, errors.New("response has no similarity")
	}
	s := *lr.Similarity
	if s < 0 || s > 1 {
		return 0, fmt.Errorf("similarity %v outside [0,1]", s)
	}
	return s, nil
}

type credentialRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AudioData string `json:"audio_data"`
}

func credentialBody(username string, password []byte, p payload.Payload) ([]byte, error) {
	body, err := json.Marshal(credentialRequest{
		Username:  username,
		Password:  string(password),
		AudioData: string(p),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return body, nil
}

// restyLogger routes resty's internal messages to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
