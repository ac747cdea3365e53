package apitests

import (
	"context"

	"github.com/felina/server-contract-tests/client"
	"github.com/felina/server-contract-tests/framework"
	"github.com/felina/server-contract-tests/servicedef"
)

// firstUserID is the id that a freshly reset store gives the first registered user.
const firstUserID = 1

// RunTestSuite runs the whole scenario against the server that c talks to. The server must
// be backed by a freshly reset store. Once ctx is cancelled every request fails, so the
// running test fails and the rest are not run.
func RunTestSuite(
	ctx context.Context,
	c *client.Client,
	params Params,
	testLogger framework.TestLogger,
) framework.Results {
	if params.SessionCookie == "" {
		params.SessionCookie = servicedef.DefaultSessionCookie
	}
	return framework.Run(testLogger, func(fc *framework.Context) {
		t := &T{
			context: fc,
			env: &environment{
				ctx:     ctx,
				client:  c,
				params:  params,
				session: NewSession(params.SessionCookie),
				state: &ScenarioState{
					UserID:       firstUserID,
					Fingerprints: make(map[string]string),
				},
			},
		}

		t.Run("Server up", DoServerUpTest)
		t.Run("Non existing user", DoNonExistingUserTest)
		t.Run("Register user", DoRegisterUserTest)
		t.Run("Login check", DoLoginCheckTest)
		t.Run("Logout", DoLogoutTest)
		t.Run("Login", DoLoginTest)
		t.Run("Login check", DoLoginCheckTest)
		t.Run("Register existing user", DoRegisterExistingUserTest)
		t.Run("Upload image no project", DoUploadImageNoProjectTest)
		t.Run("Register project", DoRegisterProjectTest)
		t.Run("Upload images", DoUploadImagesTest)
		t.Run("Upload existing image", DoUploadExistingImageTest)
		t.Run("Metadata upload", DoMetadataUploadTest)
		t.Run("Image listing", DoImageListingTest)
	})
}
