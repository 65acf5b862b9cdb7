package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/appointments", nil)
}

func TestChain_DefaultsToAnonymous(t *testing.T) {
	id := DefaultChain(string(secret)).Resolve(newRequest())
	assert.Equal(t, Anonymous, id.UserID)
	assert.True(t, id.Anonymous())
	assert.Empty(t, id.Roles)
}

func TestChain_JWTWins(t *testing.T) {
	token, err := IssueToken(secret, "DOC-7", []string{"doctor"}, time.Hour)
	require.NoError(t, err)

	r := newRequest()
	r.Header.Set("Authorization", "Bearer "+token)
	r.AddCookie(&http.Cookie{Name: "userId", Value: "cookie-user"})
	r.Header.Set(HeaderUserID, "header-user")

	id := DefaultChain(string(secret)).Resolve(r)
	assert.Equal(t, "DOC-7", id.UserID)
	assert.Equal(t, []string{"DOCTOR"}, id.Roles)
	assert.Equal(t, "jwt", id.Source)
}

func TestChain_BadTokenFallsThrough(t *testing.T) {
	token, err := IssueToken([]byte("other-secret"), "DOC-7", nil, time.Hour)
	require.NoError(t, err)

	r := newRequest()
	r.Header.Set("Authorization", "Bearer "+token)
	r.AddCookie(&http.Cookie{Name: "uid", Value: "u-3"})

	id := DefaultChain(string(secret)).Resolve(r)
	assert.Equal(t, "u-3", id.UserID)
	assert.Equal(t, "cookie:uid", id.Source)
}

func TestChain_RolesHeaderIgnoredWhenTokensAreRequired(t *testing.T) {
	r := newRequest()
	r.Header.Set("Authorization", "Bearer garbage")
	r.Header.Set(HeaderUserID, "mallory")
	r.Header.Set(HeaderRoles, "ADMIN")

	id := DefaultChain(string(secret)).Resolve(r)
	assert.Equal(t, "mallory", id.UserID)
	assert.Equal(t, "header", id.Source)
	assert.Empty(t, id.Roles)

	r = newRequest()
	r.AddCookie(&http.Cookie{Name: "userId", Value: "mallory"})
	r.Header.Set(HeaderRoles, "ADMIN,DOCTOR")
	id = DefaultChain(string(secret)).Resolve(r)
	assert.Equal(t, "cookie:userId", id.Source)
	assert.Empty(t, id.Roles)

	token, err := IssueToken(secret, "admin-1", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	r = newRequest()
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(HeaderRoles, "DOCTOR")
	id = DefaultChain(string(secret)).Resolve(r)
	assert.Equal(t, []string{"ADMIN"}, id.Roles)
}

func TestChain_ExpiredTokenFallsThrough(t *testing.T) {
	token, err := IssueToken(secret, "DOC-7", nil, -time.Minute)
	require.NoError(t, err)

	r := newRequest()
	r.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, Anonymous, DefaultChain(string(secret)).Resolve(r).UserID)
}

func TestChain_CookieOrder(t *testing.T) {
	r := newRequest()
	r.AddCookie(&http.Cookie{Name: "uid", Value: "third"})
	r.AddCookie(&http.Cookie{Name: "user_id", Value: "second"})
	r.AddCookie(&http.Cookie{Name: "userId", Value: ""})
	r.Header.Set(HeaderRoles, "admin, doctor,")

	id := DefaultChain("").Resolve(r)
	assert.Equal(t, "second", id.UserID)
	assert.Equal(t, []string{"ADMIN", "DOCTOR"}, id.Roles)
}

func TestChain_HeaderAfterCookies(t *testing.T) {
	r := newRequest()
	r.Header.Set(HeaderUserID, " staff-9 ")
	id := DefaultChain("").Resolve(r)
	assert.Equal(t, "staff-9", id.UserID)
	assert.Equal(t, "header", id.Source)
}

func TestMiddleware_StoresIdentity(t *testing.T) {
	var got Identity
	h := Middleware(DefaultChain(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := newRequest()
	r.Header.Set(HeaderUserID, "staff-1")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "staff-1", got.UserID)

	assert.Equal(t, Anonymous, FromContext(newRequest().Context()).UserID)
}
