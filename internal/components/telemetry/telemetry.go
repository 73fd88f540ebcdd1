// Package telemetry is how every component reports what happened to it. The CLI backs it
// with slog, tests back it with a Recorder.
package telemetry

// API is the reporting surface handed to every constructor.
//
// Ids name the component that is reporting, not the line that failed: a rejected POST
// while logging in is `client.login`, the response goes into params. Ids are lowercase,
// a dot separates a component from its operation and dashes join words.
type API interface {
	// ReportBroken is something that should not happen and needs fixing.
	ReportBroken(id string, params ...any)
	// ReportWarning is something odd that the run survived, like data that had to be coerced.
	ReportWarning(id string, params ...any)
	// ReportDebug only shows up with --debug.
	ReportDebug(msg string, params ...any)
	// ReportCount records how many of something a run handled.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, scopes nest as "importer: tradedb: id".
type ScopedAPI struct {
	prefix string
	inner  API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{prefix: namespace + ": ", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
