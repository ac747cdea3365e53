package apitests

import (
	"net/http"

	"github.com/felina/server-contract-tests/client"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Session is the login state that the scenario carries from one test to the next: the
// session token the server handed out, if any.
type Session struct {
	cookieName string
	token      ldvalue.OptionalString
}

func NewSession(cookieName string) *Session {
	return &Session{cookieName: cookieName}
}

func (s *Session) Token() ldvalue.OptionalString {
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.token.IsDefined()
}

func (s *Session) Set(token string) {
	s.token = ldvalue.NewOptionalString(token)
}

func (s *Session) Clear() {
	s.token = ldvalue.OptionalString{}
}

// Update takes the session token from a response, and reports whether there was one.
func (s *Session) Update(resp client.Response) bool {
	value, ok := resp.Cookie(s.cookieName)
	if ok {
		s.Set(value)
	}
	return ok
}

// Cookies returns the cookies to send with a request; none if there is no session.
func (s *Session) Cookies() []*http.Cookie {
	if !s.token.IsDefined() {
		return nil
	}
	return []*http.Cookie{{Name: s.cookieName, Value: s.token.StringValue()}}
}
