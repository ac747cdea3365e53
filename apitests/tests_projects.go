package apitests

import (
	"github.com/felina/server-contract-tests/fixtures"
	"github.com/felina/server-contract-tests/servicedef"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DoRegisterProjectTest creates the project that the images are uploaded to. The project id
// is whatever the server assigns; it is remembered for the later tests.
func DoRegisterProjectTest(t *T) {
	p := t.Params()
	resp := t.PostForm(servicedef.PathNewProject, p.Project.Form())
	t.CheckBoolean(resp, true, "Project create failed")

	body, err := ParseBody(resp)
	require.NoError(t, err)
	id := body.GetByKey("project").GetByKey("id")
	require.True(t, id.IsInt(), "project id is not an integer: %s", id.JSONString())
	t.State().ProjectID = ldvalue.NewOptionalInt(id.IntValue())
	t.Debug("Project id is %d", id.IntValue())

	t.CheckStructural(resp, fixtures.RegisterProject(p.Project, id.IntValue()))
}
