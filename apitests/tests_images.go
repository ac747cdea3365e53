package apitests

import (
	"strconv"

	"github.com/felina/server-contract-tests/fixtures"
	"github.com/felina/server-contract-tests/servicedef"

	"github.com/stretchr/testify/require"
)

// unregisteredProjectID is used before any project exists, so it cannot be valid.
const unregisteredProjectID = "1"

func (t *T) projectID() string {
	id := t.State().ProjectID
	require.True(t, id.IsDefined(), "no project has been registered")
	return strconv.Itoa(id.IntValue())
}

func DoUploadImageNoProjectTest(t *T) {
	resp := t.UploadImages(unregisteredProjectID, t.Params().Image1)
	t.CheckBoolean(resp, false, "Image upload with no project should have failed")
	t.CheckStructural(resp, fixtures.UploadImageNoProject())
}

func DoUploadImagesTest(t *T) {
	p := t.Params()
	resp := t.UploadImages(t.projectID(), p.Image1, p.Image2)
	t.CheckBoolean(resp, true, "Image upload with project failed")
	t.CheckStructural(resp, fixtures.UploadImages(t.Fingerprint(p.Image1), t.Fingerprint(p.Image2)))
}

func DoUploadExistingImageTest(t *T) {
	p := t.Params()
	resp := t.UploadImages(t.projectID(), p.Image1)
	t.CheckBoolean(resp, false, "Upload of an existing image succeeded")
	t.CheckStructural(resp, fixtures.ExistingImage(t.Fingerprint(p.Image1)))
}

func (t *T) metaEntries() []servicedef.MetaEntry {
	p := t.Params()
	return []servicedef.MetaEntry{{ID: t.Fingerprint(p.Image1), Datetime: p.MetaDatetime}}
}

func DoMetadataUploadTest(t *T) {
	entries := t.metaEntries()
	resp := t.PostForm(servicedef.PathMetaUpload, servicedef.MetaForm(entries...))
	t.CheckBoolean(resp, true, "Metadata upload failed")
	t.CheckStructural(resp, fixtures.MetaUpload(entries...))
}

// DoImageListingTest expects both uploaded images in upload order, with the metadata of the
// first one applied.
func DoImageListingTest(t *T) {
	p := t.Params()
	resp := t.Get(servicedef.PathImageListing)
	t.CheckBoolean(resp, true, "Image listing failed")
	t.CheckStructural(resp, fixtures.ImageListing(
		fixtures.ListedImage{ID: t.Fingerprint(p.Image1), Datetime: p.MetaDatetime, Private: true, Uploader: p.User.Email},
		fixtures.ListedImage{ID: t.Fingerprint(p.Image2), Private: true, Uploader: p.User.Email},
	))
}
