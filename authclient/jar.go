package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/net/publicsuffix"

	"github.com/jmcleod/voicegate/internal/util"
	"github.com/jmcleod/voicegate/storage"
)

const (
	cookieNamespace  = "cookies"
	cookieRecordType = "HOST"
	masterKeySize    = 32
)

// Jar is an http.CookieJar whose contents survive restarts. Cookie matching is
// done by net/http/cookiejar; every change is written through to a
// storage.Repository as one sealed record per host.
type Jar struct {
	repo   storage.Repository
	key    *memguard.Enclave
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	inner *cookiejar.Jar
	hosts map[string]*hostCookies
}

type hostCookies struct {
	URL     string         `json:"url"`
	Cookies []storedCookie `json:"cookies"`
}

type storedCookie struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path,omitempty"`
	Domain   string        `json:"domain,omitempty"`
	Expires  time.Time     `json:"expires,omitzero"`
	Secure   bool          `json:"secure,omitempty"`
	HttpOnly bool          `json:"http_only,omitempty"`
	SameSite http.SameSite `json:"same_site,omitempty"`
}

// JarOption configures a Jar.
type JarOption func(*Jar)

// WithJarLogger sets the jar logger.
func WithJarLogger(logger *slog.Logger) JarOption {
	return func(j *Jar) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJar opens a jar over repo and loads the cookies already stored there.
// masterKey seals the records; it is copied into a memguard Enclave and the
// caller's slice is wiped.
func NewJar(repo storage.Repository, masterKey []byte, opts ...JarOption) (*Jar, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("cookie master key must be %d bytes, got %d", masterKeySize, len(masterKey))
	}
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	j := &Jar{
		repo:   repo,
		key:    memguard.NewEnclave(masterKey),
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		inner:  inner,
		hosts:  make(map[string]*hostCookies),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "cookiejar")
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// SetCookies implements http.CookieJar. Errors writing the record are logged;
// the cookies stay usable for this process.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)

	host := hostKey(u)
	hc := j.hosts[host]
	if hc == nil {
		hc = &hostCookies{URL: originURL(u)}
		j.hosts[host] = hc
	}
	now := j.now()
	for _, c := range cookies {
		hc.merge(c, now)
	}
	hc.prune(now)
	if err := j.persist(host, hc); err != nil {
		j.logger.Warn("persisting cookies", "host", host, "error", err)
	}
}

// Clear removes every cookie stored for the host of u.
func (j *Jar) Clear(u *url.URL) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	host := hostKey(u)
	hc := j.hosts[host]
	if hc == nil {
		return nil
	}
	expired := make([]*http.Cookie, 0, len(hc.Cookies))
	for _, c := range hc.Cookies {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: c.Path, Domain: c.Domain, MaxAge: -1})
	}
	j.inner.SetCookies(u, expired)
	delete(j.hosts, host)
	if err := j.repo.Delete(cookieNamespace, cookieRecordType, host); err != nil && !missing(err) {
		return fmt.Errorf("deleting cookies for %s: %w", host, err)
	}
	return nil
}

func missing(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrNamespaceNotFound)
}

func (j *Jar) load() error {
	ids, err := j.repo.List(cookieNamespace, cookieRecordType)
	if err != nil {
		if errors.Is(err, storage.ErrNamespaceNotFound) {
			return nil
		}
		return fmt.Errorf("listing stored cookies: %w", err)
	}
	now := j.now()
	for _, host := range ids {
		hc, err := j.read(host)
		if err != nil {
			// A record that cannot be opened, for example after the key file
			// was replaced, is dropped rather than blocking startup.
			j.logger.Warn("discarding unreadable cookie record", "host", host, "error", err)
			_ = j.repo.Delete(cookieNamespace, cookieRecordType, host)
			continue
		}
		hc.prune(now)
		u, err := url.Parse(hc.URL)
		if err != nil || len(hc.Cookies) == 0 {
			continue
		}
		j.inner.SetCookies(u, hc.httpCookies())
		j.hosts[host] = hc
	}
	return nil
}

func (j *Jar) read(host string) (*hostCookies, error) {
	env, err := j.repo.Get(cookieNamespace, cookieRecordType, host)
	if err != nil {
		return nil, err
	}
	key, err := j.recordKey(host)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(key)
	plain, err := storage.OpenRecord(key, env, recordAAD(host))
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(plain)
	var hc hostCookies
	if err := json.Unmarshal(plain, &hc); err != nil {
		return nil, fmt.Errorf("decoding cookie record: %w", err)
	}
	return &hc, nil
}

func (j *Jar) persist(host string, hc *hostCookies) error {
	if len(hc.Cookies) == 0 {
		delete(j.hosts, host)
		if err := j.repo.Delete(cookieNamespace, cookieRecordType, host); err != nil && !missing(err) {
			return err
		}
		return nil
	}
	plain, err := json.Marshal(hc)
	if err != nil {
		return fmt.Errorf("encoding cookie record: %w", err)
	}
	defer util.WipeBytes(plain)
	key, err := j.recordKey(host)
	if err != nil {
		return err
	}
	defer util.WipeBytes(key)
	env, err := storage.SealRecord(key, plain, recordAAD(host))
	if err != nil {
		return err
	}
	return j.repo.Put(cookieNamespace, cookieRecordType, host, env)
}

func (j *Jar) recordKey(host string) ([]byte, error) {
	buf, err := j.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening cookie key enclave: %w", err)
	}
	defer buf.Destroy()
	return util.DeriveKey(buf.Bytes(), nil, []byte("voicegate:cookies:"+host))
}

func recordAAD(host string) []byte {
	return []byte("cookies:" + host)
}

func hostKey(u *url.URL) string {
	return strings.ToLower(u.Hostname())
}

func originURL(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

func (hc *hostCookies) merge(c *http.Cookie, now time.Time) {
	sc := storedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
	switch {
	case c.MaxAge < 0:
		sc.Expires = now.Add(-time.Second)
	case c.MaxAge > 0:
		sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	}
	for i, existing := range hc.Cookies {
		if existing.Name == sc.Name && existing.Path == sc.Path && existing.Domain == sc.Domain {
			hc.Cookies[i] = sc
			return
		}
	}
	hc.Cookies = append(hc.Cookies, sc)
}

// prune drops expired cookies. Session cookies without an expiry are kept so
// that a later invocation can still send them.
func (hc *hostCookies) prune(now time.Time) {
	kept := hc.Cookies[:0]
	for _, c := range hc.Cookies {
		if c.Expires.IsZero() || c.Expires.After(now) {
			kept = append(kept, c)
		}
	}
	hc.Cookies = kept
}

func (hc *hostCookies) httpCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(hc.Cookies))
	for _, c := range hc.Cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: c.SameSite,
		})
	}
	return out
}

// LoadOrCreateKey reads a hex-encoded 32-byte key from path, creating the
// file with a fresh random key and mode 0600 when it does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := util.HexDecode(string(data))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if len(key) != masterKeySize {
			return nil, fmt.Errorf("%s: expected %d-byte key, got %d", path, masterKeySize, len(key))
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	key, err := util.RandomBytes(masterKeySize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(util.HexEncode(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return key, nil
}
