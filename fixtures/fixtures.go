// Package fixtures builds the exact JSON bodies that the Felina server is expected to return.
//
// Every builder takes the same inputs that were used to build the corresponding request,
// so a test never hard-codes a response. When an endpoint's contract changes, only its
// builder changes. Builders return ldvalue.Value trees, whose equality ignores the order
// of object keys but not the order of array elements.
package fixtures

import (
	"github.com/felina/server-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// DefaultProfileImage is the profile image URL of a user who registered without a
// gravatar hash.
const DefaultProfileImage = "http://citizen.science.image.storage.public.s3-website-eu-west-1.amazonaws.com/user.png"

const gravatarURLPrefix = "http://www.gravatar.com/avatar/"

// Error codes and messages returned by the server.
const (
	CodeNotLoggedIn    = 1
	MsgNotLoggedIn     = "You must be logged in to access this feature."
	CodeBadCredentials = 1
	MsgBadCredentials  = "Email or password incorrect!"
	CodeRegisterFailed = 2
	MsgRegisterFailed  = "Registration failed."
	CodeInvalidProject = 2
	MsgInvalidProject  = "Invalid project provided."
	CodeImageExists    = 4
	MsgImageExists     = "Image already exists."
)

// ErrorResponse is the body of every failed request.
func ErrorResponse(code int, msg string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(false)).
		Set("err", ldvalue.ObjectBuild().
			Set("code", ldvalue.Int(code)).
			Set("msg", ldvalue.String(msg)).
			Build()).
		Build()
}

// Success is the body of a successful request that returns nothing else.
func Success() ldvalue.Value {
	return ldvalue.ObjectBuild().Set("res", ldvalue.Bool(true)).Build()
}

// Server is the response to the root health check.
func Server(version string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("version", ldvalue.String(version)).
		Build()
}

func NonExistingUser() ldvalue.Value {
	return ErrorResponse(CodeBadCredentials, MsgBadCredentials)
}

// ProfileImage returns the profile image URL the server derives for a user: a gravatar
// URL when a 32-character gravatar hash was supplied, otherwise the fallback.
func ProfileImage(details servicedef.RegisterDetails, fallback string) string {
	if len(details.Gravatar) == 32 {
		return gravatarURLPrefix + details.Gravatar
	}
	if fallback == "" {
		return DefaultProfileImage
	}
	return fallback
}

// User is the user object embedded in register, login, and login-check responses.
func User(details servicedef.RegisterDetails, id int, profileImage string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("id", ldvalue.Int(id)).
		Set("name", ldvalue.String(details.Name)).
		Set("email", ldvalue.String(details.Email)).
		Set("privilege", ldvalue.Int(servicedef.UserPrivilege)).
		Set("profile_image", ldvalue.String(ProfileImage(details, profileImage))).
		Build()
}

func userResponse(details servicedef.RegisterDetails, id int, profileImage string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("user", User(details, id, profileImage)).
		Build()
}

func RegisterUser(details servicedef.RegisterDetails, id int, profileImage string) ldvalue.Value {
	return userResponse(details, id, profileImage)
}

func Login(details servicedef.RegisterDetails, id int, profileImage string) ldvalue.Value {
	return userResponse(details, id, profileImage)
}

func LoginCheck(details servicedef.RegisterDetails, id int, profileImage string) ldvalue.Value {
	return userResponse(details, id, profileImage)
}

func Logout() ldvalue.Value {
	return Success()
}

// LogoutLoginCheck is the login-check response for a session that has been logged out.
func LogoutLoginCheck() ldvalue.Value {
	return ErrorResponse(CodeNotLoggedIn, MsgNotLoggedIn)
}

func ExistingRegister() ldvalue.Value {
	return ErrorResponse(CodeRegisterFailed, MsgRegisterFailed)
}

func UploadImageNoProject() ldvalue.Value {
	return ErrorResponse(CodeInvalidProject, MsgInvalidProject)
}

// RegisterProject expects the project to be created active, with the id the store assigns.
func RegisterProject(details servicedef.ProjectDetails, id int) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("project", ldvalue.ObjectBuild().
			Set("id", ldvalue.Int(id)).
			Set("name", ldvalue.String(details.Name)).
			Set("desc", ldvalue.String(details.Desc)).
			Set("active", ldvalue.Bool(true)).
			Build()).
		Build()
}

// UploadImages lists the assigned image ids in the order the files were sent.
func UploadImages(fingerprints ...string) ldvalue.Value {
	ids := ldvalue.ArrayBuild()
	for _, fp := range fingerprints {
		ids.Add(ldvalue.String(fp))
	}
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("ids", ids.Build()).
		Build()
}

// ExistingImage is the rejection of an upload whose content is already stored. The id of
// the stored image is reported alongside the error.
func ExistingImage(fingerprint string) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(false)).
		Set("err", ldvalue.ObjectBuild().
			Set("code", ldvalue.Int(CodeImageExists)).
			Set("msg", ldvalue.String(MsgImageExists)).
			Build()).
		Set("id", ldvalue.String(fingerprint)).
		Build()
}

// MetaUpload reports one result per metadata entry, in request order.
func MetaUpload(entries ...servicedef.MetaEntry) ldvalue.Value {
	detail := ldvalue.ArrayBuild()
	for range entries {
		detail.Add(ldvalue.Bool(true))
	}
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("detail", detail.Build()).
		Build()
}

// ListedImage is the expected state of one image in a listing.
type ListedImage struct {
	ID       string
	Datetime string // empty if no metadata has been set
	Private  bool
	Uploader string
}

// ImageListing lists images in upload order.
func ImageListing(images ...ListedImage) ldvalue.Value {
	list := ldvalue.ArrayBuild()
	for _, img := range images {
		datetime := ldvalue.Null()
		if img.Datetime != "" {
			datetime = ldvalue.String(img.Datetime)
		}
		private := 0
		if img.Private {
			private = 1
		}
		list.Add(ldvalue.ObjectBuild().
			Set("imageid", ldvalue.String(img.ID)).
			Set("datetime", datetime).
			Set("loc", ldvalue.Null()).
			Set("private", ldvalue.Int(private)).
			Set("uploader", ldvalue.String(img.Uploader)).
			Build())
	}
	return ldvalue.ObjectBuild().
		Set("res", ldvalue.Bool(true)).
		Set("images", list.Build()).
		Build()
}
