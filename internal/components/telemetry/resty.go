package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// InstrumentOutput receives the full text of every request/response pair
// when debug tracing is enabled.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type traceKey struct{}

// trace follows one request from the before hook to the response or error hook.
type trace struct {
	id    uint64
	start time.Time
}

func traceOf(req *resty.Request) (trace, bool) {
	t, ok := req.Context().Value(traceKey{}).(trace)
	return t, ok
}

type instrumentResty struct {
	tel    API
	output InstrumentOutput
	nextId *atomic.Uint64
}

// InstrumentResty reports every request made by the client through tel, `output` can be nil.
// Cookie headers and credential form fields never reach tel or output.
func InstrumentResty(client *resty.Client, tel API, output InstrumentOutput) {
	i := instrumentResty{tel: tel, output: output, nextId: &atomic.Uint64{}}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	t := trace{id: i.nextId.Add(1), start: time.Now()}
	req.SetContext(context.WithValue(req.Context(), traceKey{}, t))
	i.tel.ReportDebug(report_resty_request, t.id, req.Method, req.URL)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	t, ok := traceOf(res.Request)
	if !ok {
		return nil
	}
	i.tel.ReportDebug(
		report_resty_response,
		t.id,
		time.Since(t.start).String(),
		res.Status(),
		FinalURL(res),
	)
	if i.output != nil {
		i.output.Write(strconv.FormatUint(t.id, 10), formatHttpMessage(res))
	}
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	var elapsed time.Duration
	if t, ok := traceOf(req); ok {
		elapsed = time.Since(t.start)
	}
	i.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, elapsed)
}

// FinalURL returns the url of the last request made after following redirects.
func FinalURL(res *resty.Response) string {
	if res == nil || res.RawResponse == nil || res.RawResponse.Request == nil {
		return ""
	}
	return res.RawResponse.Request.URL.String()
}

var sensitiveHeaders = map[string]struct{}{
	"Cookie":     {},
	"Set-Cookie": {},
}

var sensitiveFields = []string{"email", "password", "code"}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := []string{}
	for _, k := range keys {
		for _, v := range headers[k] {
			if _, sensitive := sensitiveHeaders[http.CanonicalHeaderKey(k)]; sensitive {
				v = "<redacted>"
			}
			lines = append(lines, k+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

// redactForm blanks out credentials in form encoded bodies.
func redactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	redacted := false
	for _, field := range sensitiveFields {
		if values.Has(field) {
			values.Set(field, "<redacted>")
			redacted = true
		}
	}
	if !redacted {
		return body
	}
	return values.Encode()
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	contents, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	return redactForm(string(contents))
}

// section writes a dump section: a title, a start line, the headers and the body.
func section(out *strings.Builder, title, startLine, headers, body string) {
	fmt.Fprintf(out, "---- %s ----\n\n%s\n\n%s\n\n%s", title, startLine, headers, body)
}

func formatHttpMessage(res *resty.Response) string {
	req := res.Request
	var requestHeaders string
	if req.RawRequest != nil {
		requestHeaders = formatHeaders(req.RawRequest.Header)
	}
	responseUrl := FinalURL(res)
	if responseUrl == "" {
		responseUrl = req.URL
	}

	out := &strings.Builder{}
	section(out, "REQUEST", req.Method+" "+req.URL, requestHeaders, formatRequestBody(req.RawRequest))
	out.WriteString("\n\n")
	section(out, "RESPONSE", strconv.Itoa(res.StatusCode())+" "+responseUrl, formatHeaders(res.Header()), res.String())
	return out.String()
}
