package companion

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"edcompanion/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Detection decides how a response is recognized as asking for a login.
type Detection string

const (
	// DetectURL looks at the path the request was finally redirected to.
	DetectURL Detection = "url"
	// DetectBody looks for a password field in the returned page.
	DetectBody Detection = "body"
	// DetectBoth checks the url first then the body.
	DetectBoth Detection = "both"
)

func ParseDetection(value string) (Detection, error) {
	switch Detection(value) {
	case "", DetectBoth:
		return DetectBoth, nil
	case DetectURL:
		return DetectURL, nil
	case DetectBody:
		return DetectBody, nil
	}
	return "", fmt.Errorf("unknown login detection %q", value)
}

type Classification int

const (
	Authenticated Classification = iota
	NeedsLogin
	NeedsVerification
)

func (c Classification) String() string {
	switch c {
	case Authenticated:
		return "authenticated"
	case NeedsLogin:
		return "needs login"
	case NeedsVerification:
		return "needs verification"
	}
	return fmt.Sprintf("classification(%d)", int(c))
}

const (
	loginPath   = "user/login"
	confirmPath = "user/confirm"
)

// passwordMarker is what the login page has always contained, the profile never does.
const passwordMarker = "Password"

func finalPath(res *resty.Response) string {
	final, err := url.Parse(telemetry.FinalURL(res))
	if err != nil {
		return ""
	}
	return final.Path
}

func classifyURL(path string) Classification {
	path = strings.TrimSuffix(path, "/")
	switch {
	case strings.HasSuffix(path, confirmPath):
		return NeedsVerification
	case strings.HasSuffix(path, loginPath):
		return NeedsLogin
	}
	return Authenticated
}

func classifyBody(body []byte) Classification {
	// json bodies are never login pages
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return Authenticated
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if doc.Find("input[name=code]").Length() > 0 {
			return NeedsVerification
		}
		if doc.Find("input[type=password]").Length() > 0 {
			return NeedsLogin
		}
	}
	if bytes.Contains(body, []byte(passwordMarker)) {
		return NeedsLogin
	}
	return Authenticated
}

// ClassifyResponse decides whether a response came from an authenticated session.
func ClassifyResponse(res *resty.Response, detection Detection) Classification {
	switch detection {
	case DetectURL:
		return classifyURL(finalPath(res))
	case DetectBody:
		return classifyBody(res.Body())
	}
	class := classifyURL(finalPath(res))
	if class != Authenticated {
		return class
	}
	return classifyBody(res.Body())
}
