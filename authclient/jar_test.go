package authclient

import (
	"bytes"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/voicegate/storage"
	bboltstore "github.com/jmcleod/voicegate/storage/bbolt"
	"github.com/jmcleod/voicegate/storage/memory"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, masterKeySize)
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name+"="+c.Value)
	}
	return names
}

func TestJar_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.db")
	u := mustURL(t, "http://auth.example.com/account/login")

	store, err := bboltstore.NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	jar, err := NewJar(store, testKey(7))
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "abc", Path: "/"},
		{Name: "pref", Value: "dark", Path: "/", MaxAge: 3600},
	})
	require.NoError(t, store.Close())

	store, err = bboltstore.NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	defer store.Close()
	reopened, err := NewJar(store, testKey(7))
	require.NoError(t, err)

	got := cookieNames(reopened.Cookies(mustURL(t, "http://auth.example.com/account/logout")))
	assert.ElementsMatch(t, []string{"session=abc", "pref=dark"}, got)
	assert.Empty(t, reopened.Cookies(mustURL(t, "http://other.example.com/")))
}

func TestJar_RecordsAreSealed(t *testing.T) {
	repo := memory.NewRepository()
	jar, err := NewJar(repo, testKey(1))
	require.NoError(t, err)
	jar.SetCookies(mustURL(t, "http://auth.example.com/"), []*http.Cookie{{Name: "session", Value: "very-secret-token"}})

	env, err := repo.Get(cookieNamespace, cookieRecordType, "auth.example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, env.Ver)
	assert.NotEmpty(t, env.Scheme)
	assert.NotContains(t, string(env.Ciphertext), "very-secret-token")
}

func TestJar_WrongKeyDropsRecords(t *testing.T) {
	repo := memory.NewRepository()
	jar, err := NewJar(repo, testKey(1))
	require.NoError(t, err)
	u := mustURL(t, "http://auth.example.com/")
	jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc"}})

	other, err := NewJar(repo, testKey(2))
	require.NoError(t, err)
	assert.Empty(t, other.Cookies(u))

	_, err = repo.Get(cookieNamespace, cookieRecordType, "auth.example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJar_ExpiredCookiesAreRemoved(t *testing.T) {
	repo := memory.NewRepository()
	jar, err := NewJar(repo, testKey(3))
	require.NoError(t, err)
	u := mustURL(t, "http://auth.example.com/")

	jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc", Path: "/"}})
	require.Len(t, jar.Cookies(u), 1)

	jar.SetCookies(u, []*http.Cookie{{Name: "session", Path: "/", MaxAge: -1}})
	assert.Empty(t, jar.Cookies(u))

	ids, err := repo.List(cookieNamespace, cookieRecordType)
	require.NoError(t, err)
	assert.Empty(t, ids)

	past := time.Now().Add(-time.Hour)
	jar.SetCookies(u, []*http.Cookie{{Name: "old", Value: "x", Expires: past}})
	reopened, err := NewJar(repo, testKey(3))
	require.NoError(t, err)
	assert.Empty(t, reopened.Cookies(u))
}

func TestJar_Clear(t *testing.T) {
	repo := memory.NewRepository()
	jar, err := NewJar(repo, testKey(4))
	require.NoError(t, err)
	u := mustURL(t, "http://auth.example.com/")

	require.NoError(t, jar.Clear(u))
	jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc", Path: "/"}})
	require.NoError(t, jar.Clear(u))
	assert.Empty(t, jar.Cookies(u))

	reopened, err := NewJar(repo, testKey(4))
	require.NoError(t, err)
	assert.Empty(t, reopened.Cookies(u))
}

func TestNewJar_KeyLength(t *testing.T) {
	_, err := NewJar(memory.NewRepository(), []byte("short"))
	require.Error(t, err)
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookie.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Len(t, key, masterKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	require.NoError(t, os.WriteFile(path, []byte("abcd\n"), 0o600))
	_, err = LoadOrCreateKey(path)
	require.Error(t, err)
}
