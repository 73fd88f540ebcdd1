package cookiestore

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// SessionCookie is the interactive session cookie, it is dropped by a forced
// login while the machine token is kept.
const SessionCookie = "CompanionApp"

// Jar is an http.CookieJar for a single host that only keeps name -> value,
// which is all the companion API needs and all that is persisted between runs.
type Jar struct {
	host    string
	mutex   sync.Mutex
	cookies map[string]string
	now     func() time.Time
}

// NewJar creates a jar scoped to the host of baseUrl, seeded with `initial`.
func NewJar(baseUrl *url.URL, initial map[string]string) *Jar {
	cookies := make(map[string]string, len(initial))
	for k, v := range initial {
		cookies[k] = v
	}
	return &Jar{
		host:    strings.ToLower(baseUrl.Hostname()),
		cookies: cookies,
		now:     time.Now,
	}
}

func (j *Jar) matches(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == j.host || strings.HasSuffix(host, "."+j.host)
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if !j.matches(u) {
		return
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	now := j.now()
	for _, c := range cookies {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now))
		if expired {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = c.Value
	}
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	if !j.matches(u) {
		return nil
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*http.Cookie, len(names))
	for i, name := range names {
		out[i] = &http.Cookie{Name: name, Value: j.cookies[name]}
	}
	return out
}

// Snapshot returns a copy of the current cookies.
func (j *Jar) Snapshot() map[string]string {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	out := make(map[string]string, len(j.cookies))
	for k, v := range j.cookies {
		out[k] = v
	}
	return out
}

// Names returns the sorted cookie names, values are never exposed for logging.
func (j *Jar) Names() []string {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (j *Jar) Forget(name string) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	delete(j.cookies, name)
}
