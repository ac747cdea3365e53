package apitests

import (
	"net/http"
	"net/url"

	"github.com/felina/server-contract-tests/fixtures"
	"github.com/felina/server-contract-tests/servicedef"
)

// Credentials that no test ever registers.
const (
	fakeEmail = "fakeEmail@gmail.com"
	fakePass  = "fakepass"
)

func DoServerUpTest(t *T) {
	resp := t.Get(servicedef.PathRoot)
	t.CheckStatus(resp, http.StatusOK)
	t.CheckBoolean(resp, true, "The server does not appear to be up")
	t.CheckStructural(resp, fixtures.Server(t.Params().APIVersion))
}

func DoNonExistingUserTest(t *T) {
	resp := t.PostForm(servicedef.PathLogin, url.Values{"email": {fakeEmail}, "pass": {fakePass}})
	t.CheckBoolean(resp, false, "Fake user apparently exists")
	t.CheckStructural(resp, fixtures.NonExistingUser())
}

func DoRegisterUserTest(t *T) {
	p := t.Params()
	resp := t.PostForm(servicedef.PathRegister, p.User.Form())
	t.CheckBoolean(resp, true, "User registration failed")
	t.RequireSessionCookie(resp)
	t.State().RegisterToken = t.Session().Token().StringValue()
	t.CheckStructural(resp, fixtures.RegisterUser(p.User, t.State().UserID, p.ProfileImage))
}

func DoLoginCheckTest(t *T) {
	p := t.Params()
	resp := t.Get(servicedef.PathLoginCheck)
	t.CheckBoolean(resp, true, "User cookie did not persist")
	t.CheckStructural(resp, fixtures.LoginCheck(p.User, t.State().UserID, p.ProfileImage))
}

// DoLogoutTest logs out, then checks that the old session token no longer works. The token
// is kept, the way a browser keeps its cookie, so the next login is made with it.
func DoLogoutTest(t *T) {
	resp := t.Get(servicedef.PathLogout)
	t.CheckBoolean(resp, true, "User did not logout")
	t.CheckStructural(resp, fixtures.Logout())

	resp = t.Get(servicedef.PathLoginCheck)
	t.CheckBoolean(resp, false, "User logout did not revoke cookie")
	t.CheckStructural(resp, fixtures.LogoutLoginCheck())
}

// DoLoginTest logs in again with the registered credentials. The server must hand back the
// same session token that registration gave out.
func DoLoginTest(t *T) {
	p := t.Params()
	resp := t.PostForm(servicedef.PathLogin, p.User.LoginForm())
	t.CheckBoolean(resp, true, "Login failed")
	t.RequireSessionCookie(resp)
	if token := t.Session().Token().StringValue(); token != t.State().RegisterToken {
		t.Errorf("login gave session token %q, registration gave %q", token, t.State().RegisterToken)
		t.FailNow()
	}
	t.CheckStructural(resp, fixtures.Login(p.User, t.State().UserID, p.ProfileImage))
}

func DoRegisterExistingUserTest(t *T) {
	resp := t.PostForm(servicedef.PathRegister, t.Params().User.Form())
	t.CheckBoolean(resp, false, "Existing user registration succeeded")
	t.CheckStructural(resp, fixtures.ExistingRegister())
}
