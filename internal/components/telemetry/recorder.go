package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	Id     string
	Params []any
}

// Recorder implements API by keeping every report in memory, it is meant
// for tests that want to assert that something was (or was not) reported.
type Recorder struct {
	mutex   sync.Mutex
	Reports []Report
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Reports = append(r.Reports, Report{Kind: kind, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Find returns all reports of a kind whose id contains the given substring.
func (r *Recorder) Find(kind, id string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.Reports {
		if rep.Kind == kind && strings.Contains(rep.Id, id) {
			out = append(out, rep)
		}
	}
	return out
}

// Dump renders every report, handy for checking that a value never made it into the logs.
func (r *Recorder) Dump() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out strings.Builder
	for _, rep := range r.Reports {
		out.WriteString(fmt.Sprintf("%s %s %v\n", rep.Kind, rep.Id, rep.Params))
	}
	return out.String()
}
