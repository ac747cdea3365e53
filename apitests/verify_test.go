package apitests

import (
	"errors"
	"net/http"
	"testing"

	"github.com/felina/server-contract-tests/client"
	"github.com/felina/server-contract-tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(body string) client.Response {
	return client.Response{Status: 200, Body: []byte(body)}
}

func TestVerifyBoolean(t *testing.T) {
	assert.NoError(t, VerifyBoolean(response(`{"res":true}`), true, ""))
	assert.NoError(t, VerifyBoolean(response(`{"res":false,"err":{}}`), false, ""))

	err := VerifyBoolean(response(`{"res":false}`), true, "Login failed")
	var mismatch *AssertionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "Login failed", mismatch.Message)
	assert.Equal(t, `{"res":false}`, mismatch.Actual)
}

func TestVerifyBooleanMissingOrNonBooleanFlag(t *testing.T) {
	var mismatch *AssertionMismatchError
	assert.True(t, errors.As(VerifyBoolean(response(`{"ok":true}`), true, "x"), &mismatch))
	assert.True(t, errors.As(VerifyBoolean(response(`{"res":"true"}`), true, "x"), &mismatch))
	assert.True(t, errors.As(VerifyBoolean(response(`[true]`), true, "x"), &mismatch))
}

func TestVerifyMalformedBody(t *testing.T) {
	var malformed *MalformedResponseError
	assert.True(t, errors.As(VerifyBoolean(response(`Cannot GET /logincheck`), true, "x"), &malformed))
	assert.True(t, errors.As(VerifyStructural(response(``), fixtures.Logout()), &malformed))
}

func TestVerifyStructural(t *testing.T) {
	assert.NoError(t, VerifyStructural(response(`{"version":"0.1.0","res":true}`), fixtures.Server("0.1.0")))

	err := VerifyStructural(response(`{"res":true,"version":"0.0.9"}`), fixtures.Server("0.1.0"))
	var mismatch *AssertionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.JSONEq(t, `{"res":true,"version":"0.1.0"}`, mismatch.Expected)
}

func TestVerifyStructuralArrayOrderMatters(t *testing.T) {
	assert.Error(t, VerifyStructural(response(`{"res":true,"ids":["b","a"]}`), fixtures.UploadImages("a", "b")))
}

func TestVerifyStatus(t *testing.T) {
	assert.NoError(t, VerifyStatus(client.Response{Status: http.StatusOK}, http.StatusOK))
	assert.Error(t, VerifyStatus(client.Response{Status: http.StatusNotFound}, http.StatusOK))
}

func TestSession(t *testing.T) {
	s := NewSession("connect.sid")
	assert.False(t, s.LoggedIn())
	assert.Nil(t, s.Cookies())

	assert.False(t, s.Update(client.Response{}))
	assert.True(t, s.Update(client.Response{Cookies: []*http.Cookie{{Name: "connect.sid", Value: "abc"}}}))
	assert.True(t, s.LoggedIn())
	assert.Equal(t, "abc", s.Token().StringValue())
	require.Len(t, s.Cookies(), 1)
	assert.Equal(t, "connect.sid", s.Cookies()[0].Name)

	s.Clear()
	assert.False(t, s.LoggedIn())
	assert.Nil(t, s.Cookies())
}
