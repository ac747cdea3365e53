// Package servicedef describes the request parameters that the contract tests send to the
// Felina server. The same values are passed to the fixtures package, which turns them into
// the responses the server is expected to give.
package servicedef

import (
	"net/url"
	"strconv"
)

const (
	PathRoot         = "/"
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathLoginCheck   = "/logincheck"
	PathLogout       = "/logout"
	PathUploadImage  = "/img"
	PathNewProject   = "/project/new"
	PathMetaUpload   = "/upload/metadata"
	PathImageListing = "/images"
)

// DefaultSessionCookie is the cookie the server uses for its session id.
const DefaultSessionCookie = "connect.sid"

// ProjectFieldSuffix is appended to an upload's form field name to give the name of the
// field that carries its project id.
const ProjectFieldSuffix = "_project"

// UserPrivilege is the privilege level of a self-registered user.
const UserPrivilege = 1

type RegisterDetails struct {
	Email    string `json:"email" mapstructure:"email"`
	Name     string `json:"name" mapstructure:"name"`
	Pass     string `json:"pass" mapstructure:"pass"`
	Gravatar string `json:"gravatar,omitempty" mapstructure:"gravatar"`
}

// Form returns the fields of a registration request.
func (d RegisterDetails) Form() url.Values {
	v := url.Values{}
	v.Set("email", d.Email)
	v.Set("name", d.Name)
	v.Set("pass", d.Pass)
	if d.Gravatar != "" {
		v.Set("gravatar", d.Gravatar)
	}
	return v
}

// LoginForm returns the fields of a login request with the same credentials.
func (d RegisterDetails) LoginForm() url.Values {
	v := url.Values{}
	v.Set("email", d.Email)
	v.Set("pass", d.Pass)
	return v
}

type ProjectDetails struct {
	Name string `json:"name" mapstructure:"name"`
	Desc string `json:"desc" mapstructure:"desc"`
}

func (p ProjectDetails) Form() url.Values {
	v := url.Values{}
	v.Set("name", p.Name)
	v.Set("desc", p.Desc)
	return v
}

// MetaEntry is one image's metadata in a metadata upload.
type MetaEntry struct {
	ID       string `json:"id"`
	Datetime string `json:"datetime"`
}

// MetaForm returns the fields of a metadata upload. Each entry is sent as a group of
// indexed fields.
func MetaForm(entries ...MetaEntry) url.Values {
	v := url.Values{}
	for i, e := range entries {
		prefix := "meta[" + strconv.Itoa(i) + "]"
		v.Set(prefix+"[id]", e.ID)
		v.Set(prefix+"[datetime]", e.Datetime)
	}
	return v
}
