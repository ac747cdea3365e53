package apitests

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/felina/server-contract-tests/fingerprint"
	"github.com/felina/server-contract-tests/servicedef"
)

// fakeFelina is an in-memory imitation of the Felina server's API, just complete enough for
// the scenario to pass against it.
type fakeFelina struct {
	version      string
	profileImage string

	users []fakeUser
	// sessions maps a token to an index into users, or to noUser once the session has
	// logged out. A session outlives its logout, as express sessions do.
	sessions map[string]int
	projects []fakeProject
	images   []*fakeImage
	lastSid  int
	lock     sync.Mutex

	// overrides replaces the handling of a path, for tests that need a misbehaving server.
	overrides map[string]http.HandlerFunc
}

type fakeUser struct {
	id                int
	email, name, pass string
}

type fakeProject struct {
	id         int
	name, desc string
}

type fakeImage struct {
	id       string
	datetime string
	uploader string
}

const noUser = -1

var metaFieldPattern = regexp.MustCompile(`^meta\[(\d+)\]\[(id|datetime)\]$`)

func newFakeFelina(version, profileImage string) *fakeFelina {
	return &fakeFelina{
		version:      version,
		profileImage: profileImage,
		sessions:     make(map[string]int),
		overrides:    make(map[string]http.HandlerFunc),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(code int, msg string) map[string]interface{} {
	return map[string]interface{}{"res": false, "err": map[string]interface{}{"code": code, "msg": msg}}
}

func (f *fakeFelina) userBody(u fakeUser) map[string]interface{} {
	return map[string]interface{}{"res": true, "user": map[string]interface{}{
		"id": u.id, "name": u.name, "email": u.email, "privilege": 1, "profile_image": f.profileImage,
	}}
}

// logIn binds the user to the request's session, starting a new session if the request
// has none.
func (f *fakeFelina) logIn(w http.ResponseWriter, r *http.Request, userIndex int) {
	token := ""
	if ck, err := r.Cookie(servicedef.DefaultSessionCookie); err == nil {
		if _, ok := f.sessions[ck.Value]; ok {
			token = ck.Value
		}
	}
	if token == "" {
		f.lastSid++
		token = "s:fake-session-" + strconv.Itoa(f.lastSid)
	}
	f.sessions[token] = userIndex
	http.SetCookie(w, &http.Cookie{Name: servicedef.DefaultSessionCookie, Value: token, Path: "/"})
}

func (f *fakeFelina) currentUser(r *http.Request) (int, bool) {
	ck, err := r.Cookie(servicedef.DefaultSessionCookie)
	if err != nil {
		return 0, false
	}
	i, ok := f.sessions[ck.Value]
	return i, ok && i != noUser
}

func (f *fakeFelina) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if h, ok := f.overrides[r.URL.Path]; ok {
		h(w, r)
		return
	}

	switch {
	case r.Method == "GET" && r.URL.Path == servicedef.PathRoot:
		writeJSON(w, map[string]interface{}{"res": true, "version": f.version})
	case r.Method == "POST" && r.URL.Path == servicedef.PathLogin:
		f.login(w, r)
	case r.Method == "POST" && r.URL.Path == servicedef.PathRegister:
		f.register(w, r)
	case r.Method == "GET" && r.URL.Path == servicedef.PathLoginCheck:
		if i, ok := f.currentUser(r); ok {
			writeJSON(w, f.userBody(f.users[i]))
		} else {
			writeJSON(w, errorBody(1, "You must be logged in to access this feature."))
		}
	case r.Method == "GET" && r.URL.Path == servicedef.PathLogout:
		if ck, err := r.Cookie(servicedef.DefaultSessionCookie); err == nil {
			if _, ok := f.sessions[ck.Value]; ok {
				f.sessions[ck.Value] = noUser
			}
		}
		writeJSON(w, map[string]interface{}{"res": true})
	case r.Method == "POST" && r.URL.Path == servicedef.PathNewProject:
		f.newProject(w, r)
	case r.Method == "POST" && r.URL.Path == servicedef.PathUploadImage:
		f.uploadImages(w, r)
	case r.Method == "POST" && r.URL.Path == servicedef.PathMetaUpload:
		f.uploadMetadata(w, r)
	case r.Method == "GET" && r.URL.Path == servicedef.PathImageListing:
		f.listImages(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeFelina) login(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	for i, u := range f.users {
		if u.email == r.PostForm.Get("email") && u.pass == r.PostForm.Get("pass") {
			f.logIn(w, r, i)
			writeJSON(w, f.userBody(u))
			return
		}
	}
	writeJSON(w, errorBody(1, "Email or password incorrect!"))
}

func (f *fakeFelina) register(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	email := r.PostForm.Get("email")
	for _, u := range f.users {
		if u.email == email {
			writeJSON(w, errorBody(2, "Registration failed."))
			return
		}
	}
	u := fakeUser{id: len(f.users) + 1, email: email, name: r.PostForm.Get("name"), pass: r.PostForm.Get("pass")}
	f.users = append(f.users, u)
	f.logIn(w, r, len(f.users)-1)
	writeJSON(w, f.userBody(u))
}

func (f *fakeFelina) requireLogin(w http.ResponseWriter, r *http.Request) (fakeUser, bool) {
	i, ok := f.currentUser(r)
	if !ok {
		writeJSON(w, errorBody(1, "You must be logged in to access this feature."))
		return fakeUser{}, false
	}
	return f.users[i], true
}

func (f *fakeFelina) newProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.requireLogin(w, r); !ok {
		return
	}
	_ = r.ParseForm()
	p := fakeProject{id: len(f.projects) + 1, name: r.PostForm.Get("name"), desc: r.PostForm.Get("desc")}
	f.projects = append(f.projects, p)
	writeJSON(w, map[string]interface{}{"res": true, "project": map[string]interface{}{
		"id": p.id, "name": p.name, "desc": p.desc, "active": true,
	}})
}

func (f *fakeFelina) validProject(id string) bool {
	n, err := strconv.Atoi(id)
	return err == nil && n >= 1 && n <= len(f.projects)
}

func (f *fakeFelina) uploadImages(w http.ResponseWriter, r *http.Request) {
	u, ok := f.requireLogin(w, r)
	if !ok {
		return
	}
	mr, err := r.MultipartReader()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fields := map[string]string{}
	type upload struct {
		field string
		data  []byte
	}
	var uploads []upload
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			uploads = append(uploads, upload{field: part.FormName(), data: data})
		} else {
			fields[part.FormName()] = string(data)
		}
	}

	var ids []string
	for _, up := range uploads {
		if !f.validProject(fields[up.field+servicedef.ProjectFieldSuffix]) {
			writeJSON(w, errorBody(2, "Invalid project provided."))
			return
		}
		id := fingerprint.Fingerprint(up.data)
		for _, img := range f.images {
			if img.id == id {
				body := errorBody(4, "Image already exists.")
				body["id"] = id
				writeJSON(w, body)
				return
			}
		}
		f.images = append(f.images, &fakeImage{id: id, uploader: u.email})
		ids = append(ids, id)
	}
	writeJSON(w, map[string]interface{}{"res": true, "ids": ids})
}

func (f *fakeFelina) uploadMetadata(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.requireLogin(w, r); !ok {
		return
	}
	_ = r.ParseForm()
	entries := map[int]map[string]string{}
	for key, values := range r.PostForm {
		m := metaFieldPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		i, _ := strconv.Atoi(m[1])
		if entries[i] == nil {
			entries[i] = map[string]string{}
		}
		entries[i][m[2]] = strings.Join(values, "")
	}
	detail := make([]bool, len(entries))
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		for _, img := range f.images {
			if img.id == e["id"] {
				img.datetime = e["datetime"]
				detail[i] = true
			}
		}
	}
	writeJSON(w, map[string]interface{}{"res": true, "detail": detail})
}

func (f *fakeFelina) listImages(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.requireLogin(w, r); !ok {
		return
	}
	list := []interface{}{}
	for _, img := range f.images {
		var datetime interface{}
		if img.datetime != "" {
			datetime = img.datetime
		}
		list = append(list, map[string]interface{}{
			"imageid": img.id, "datetime": datetime, "loc": nil, "private": 1, "uploader": img.uploader,
		})
	}
	writeJSON(w, map[string]interface{}{"res": true, "images": list})
}

func (f *fakeFelina) override(path string, h http.HandlerFunc) {
	f.lock.Lock()
	f.overrides[path] = h
	f.lock.Unlock()
}

