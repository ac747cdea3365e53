package apitests

import (
	"context"
	"net/url"
	"path/filepath"

	"github.com/felina/server-contract-tests/client"
	"github.com/felina/server-contract-tests/fingerprint"
	"github.com/felina/server-contract-tests/framework"
	"github.com/felina/server-contract-tests/servicedef"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Params are the inputs of the scenario.
type Params struct {
	User    servicedef.RegisterDetails
	Project servicedef.ProjectDetails
	// Image1 and Image2 are paths of two image files with different content.
	Image1       string
	Image2       string
	MetaDatetime string
	APIVersion   string
	// SessionCookie is the name of the server's session cookie.
	SessionCookie string
	// ProfileImage is the profile image of users who registered without a gravatar.
	ProfileImage string
}

// ScenarioState holds what the tests learn from the server as the scenario goes along.
type ScenarioState struct {
	UserID        int
	// RegisterToken is the session token that registration handed out.
	RegisterToken string
	ProjectID     ldvalue.OptionalInt
	Fingerprints  map[string]string
}

type environment struct {
	ctx     context.Context
	client  *client.Client
	params  Params
	session *Session
	state   *ScenarioState
}

// T represents a test in our Felina API test suite.
//
// It implements the same basic functionality as Go's testing.T, but in an environment that is
// outside of the Go test runner, and with some extra features such as debug logging that are
// convenient for our use case. Those features are provided by our lower-level framework
// package.
//
// All tests of a run share one session and one ScenarioState, since each test builds on what
// the earlier ones did. Requests made through T send the current session cookie and log to
// the test's debug output.
//
// To make test assertions, you can use the assert and require packages, passing the *T as if
// it were a *testing.T. The Check methods fail the test and exit it immediately.
type T struct {
	context *framework.Context
	env     *environment
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods
// in the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs the next test of the scenario. If an earlier test failed, it is not run.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env})
	})
}

// Debug logs some debug output for the test. The output will be passed to the test logger
// at the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) Params() Params {
	return t.env.params
}

func (t *T) Session() *Session {
	return t.env.session
}

func (t *T) State() *ScenarioState {
	return t.env.state
}

func (t *T) client() *client.Client {
	return t.env.client.WithLogger(t.context.DebugLogger())
}

// Get sends a GET request with the session cookie. A transport error fails the test.
func (t *T) Get(path string) client.Response {
	resp, err := t.client().Get(t.env.ctx, path, t.env.session.Cookies())
	require.NoError(t, err)
	return resp
}

// PostForm sends a form with the session cookie. A transport error fails the test.
func (t *T) PostForm(path string, fields url.Values) client.Response {
	resp, err := t.client().PostForm(t.env.ctx, path, fields, t.env.session.Cookies())
	require.NoError(t, err)
	return resp
}

// UploadImages sends image files to the upload endpoint, each attributed to the given
// project. The file field of each image is named after the file.
func (t *T) UploadImages(projectID string, paths ...string) client.Response {
	fields := url.Values{}
	files := make([]client.File, 0, len(paths))
	for _, p := range paths {
		field := filepath.Base(p)
		fields.Set(field+servicedef.ProjectFieldSuffix, projectID)
		files = append(files, client.File{Field: field, Path: p})
	}
	resp, err := t.client().PostMultipart(t.env.ctx, servicedef.PathUploadImage, fields, files, t.env.session.Cookies())
	require.NoError(t, err)
	return resp
}

// Fingerprint returns the image id that the server should assign to a file. It is computed
// once per file.
func (t *T) Fingerprint(path string) string {
	if fp, ok := t.env.state.Fingerprints[path]; ok {
		return fp
	}
	fp, err := fingerprint.File(path)
	require.NoError(t, err)
	t.env.state.Fingerprints[path] = fp
	return fp
}

// CheckStatus fails the test unless the response has the given HTTP status.
func (t *T) CheckStatus(resp client.Response, status int) {
	t.check(VerifyStatus(resp, status))
}

// CheckBoolean fails the test unless the response's "res" flag is the expected value. The
// message explains what a wrong flag means.
func (t *T) CheckBoolean(resp client.Response, expected bool, message string) {
	t.check(VerifyBoolean(resp, expected, message))
}

// CheckStructural fails the test unless the response body equals the fixture.
func (t *T) CheckStructural(resp client.Response, fixture ldvalue.Value) {
	t.check(VerifyStructural(resp, fixture))
}

// RequireSessionCookie takes the session token from a response, failing the test if the
// response did not set one.
func (t *T) RequireSessionCookie(resp client.Response) {
	if !t.env.session.Update(resp) {
		t.Errorf("response did not set the %s cookie", t.env.params.SessionCookie)
		t.FailNow()
	}
	t.Debug("Session token is now %s", t.env.session.Token().StringValue())
}

func (t *T) check(err error) {
	if err != nil {
		t.context.Fail(err)
		t.FailNow()
	}
}
