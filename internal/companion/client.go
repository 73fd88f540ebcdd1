// Package companion talks to the Elite Dangerous companion API. It keeps the session
// cookies between runs and walks the operator through logging in when they expire.
package companion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"edcompanion/internal/components/assert"
	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/prompt"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/cookiestore"
	"edcompanion/internal/profile"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("internal/companion")

const (
	report_client_request       = "client.request"
	report_client_save_cookies  = "client.save-cookies"
	report_client_login         = "client.login"
	report_client_fetch_profile = "client.fetch-profile"
)

const (
	DefaultBaseUrl     = "https://companion.orerve.net/"
	DefaultUserAgent   = "Mozilla/5.0 (iPhone; CPU iPhone OS 8_1 like Mac OS X) AppleWebKit/600.1.4 (KHTML, like Gecko) Mobile/12B411"
	DefaultSettleDelay = 2 * time.Second
)

var (
	ErrLoginFailed = errors.New("login failed")
	ErrAuthDenied  = errors.New(
		"the login credentials appear correct but access is being denied. " +
			"The API is sometimes slow to update sessions, if you are authenticating for the first time " +
			"wait a minute or so and try again. If this persists try deleting your cookie file and starting over",
	)
)

// TransportError is a request that never produced a response.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %s", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Options struct {
	BaseUrl   string
	UserAgent string
	Detection Detection
	// SettleDelay is how long to wait after logging in for the session to become usable.
	SettleDelay time.Duration
	// RateLimit is the maximum requests per second, 0 disables limiting.
	RateLimit        float64
	BypassCloudflare bool
	// ForceLogin drops the session cookie so a fresh login is done, the machine token is kept.
	ForceLogin bool

	Store   cookiestore.Store
	Prompt  prompt.Provider
	Clock   chrono.API
	Notices io.Writer
	Output  telemetry.InstrumentOutput
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jar         *cookiestore.Jar
	store       cookiestore.Store
	prompt      prompt.Provider
	clock       chrono.API
	notices     io.Writer
	detection   Detection
	settleDelay time.Duration
	tel         telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil("telemetry", tel)
	assert.NotNil("prompt", opts.Prompt)
	assert.NotEmptyStr("cookie file", opts.Store.Path)

	tel = telemetry.NewScopedAPI("companion", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Detection == "" {
		opts.Detection = DetectBoth
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	if opts.Notices == nil {
		opts.Notices = io.Discard
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	cookies, err := opts.Store.Load()
	if errors.Is(err, cookiestore.ErrCorrupt) {
		tel.ReportWarning(report_client_save_cookies, err)
	} else if err != nil {
		return nil, err
	}
	jar := cookiestore.NewJar(baseUrl, cookies)
	if opts.ForceLogin {
		jar.Forget(cookiestore.SessionCookie)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	if opts.RateLimit > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	c := &Client{
		BaseUrl:     baseUrl,
		Http:        httpClient,
		jar:         jar,
		store:       opts.Store,
		prompt:      opts.Prompt,
		clock:       opts.Clock,
		notices:     opts.Notices,
		detection:   opts.Detection,
		settleDelay: opts.SettleDelay,
		tel:         tel,
	}
	if opts.ForceLogin {
		c.saveCookies()
	}
	return c, nil
}

func (c *Client) saveCookies() {
	err := c.store.Save(c.jar.Snapshot())
	if err != nil {
		c.tel.ReportBroken(report_client_save_cookies, err, c.store.Path)
	}
}

// Request performs a GET, or a form encoded POST when form is not nil.
// The cookies are written back to the store after every request whatever the outcome.
func (c *Client) Request(ctx context.Context, path string, form url.Values) (*resty.Response, error) {
	defer c.saveCookies()

	req := c.Http.R().SetContext(ctx)
	var (
		res *resty.Response
		err error
	)
	if form == nil {
		res, err = req.Get(path)
	} else {
		res, err = req.
			SetBody(form.Encode()).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			Post(path)
	}
	if err != nil {
		c.tel.ReportBroken(report_client_request, err, path)
		return nil, &TransportError{Path: path, Err: err}
	}

	c.tel.ReportDebug("cookies after request", path, c.jar.Names())
	return res, nil
}

func (c *Client) Classify(res *resty.Response) Classification {
	return ClassifyResponse(res, c.detection)
}

// EnsureAuthenticated performs a request, logging in and retrying exactly once if the
// session is not accepted.
func (c *Client) EnsureAuthenticated(ctx context.Context, path string, form url.Values) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "client:EnsureAuthenticated")
	defer span.End()

	res, err := c.Request(ctx, path, form)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	if c.Classify(res) == Authenticated {
		return res, nil
	}

	err = c.login(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}

	res, err = c.Request(ctx, path, form)
	if err != nil {
		span.SetStatus(codes.Error, "retry failed")
		return nil, err
	}
	if c.Classify(res) != Authenticated {
		span.SetStatus(codes.Error, "access denied after login")
		c.tel.ReportBroken(report_client_login, ErrAuthDenied, path)
		return nil, ErrAuthDenied
	}
	return res, nil
}

func (c *Client) isRoot(res *resty.Response) bool {
	final := finalPath(res)
	return (final == "" || final == "/" || final == c.BaseUrl.Path) &&
		c.Classify(res) == Authenticated
}

const loginNotice = `You do not appear to have any valid login cookies set.
We will attempt to log you in with your Frontier account, and cache your auth
cookies for future use. THIS WILL NOT STORE YOUR USER NAME AND PASSWORD.

Your auth cookies will be stored here:

%s

It is advisable that you keep this file secret. It may be possible to hijack
your account with the information it contains.

If you are not comfortable with this, DO NOT USE THIS TOOL.

`

// login walks through checking the existing session, sending credentials and
// sending the verification code, whichever of those the server asks for.
func (c *Client) login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:login")
	defer span.End()

	res, err := c.Request(ctx, "/", nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to check existing session")
		return err
	}
	if c.isRoot(res) {
		c.tel.ReportDebug("existing session accepted")
		return nil
	}

	fmt.Fprintf(c.notices, loginNotice, c.store.Path)

	email, err := c.prompt.Ask(ctx, "User Name (email): ")
	if err != nil {
		span.SetStatus(codes.Error, "failed to read email")
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	password, err := c.prompt.Secret(ctx, "Password: ")
	if err != nil {
		span.SetStatus(codes.Error, "failed to read password")
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	res, err = c.Request(ctx, "/"+loginPath, url.Values{
		"email":    {email},
		"password": {password},
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to post credentials")
		return err
	}

	switch c.Classify(res) {
	case NeedsLogin:
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		c.tel.ReportWarning(report_client_login, "credentials rejected")
		return ErrLoginFailed
	case NeedsVerification:
		fmt.Fprintln(c.notices, "A verification code should have been sent to your email address.")
		fmt.Fprintln(c.notices, "Please provide that code (case sensitive!)")
		code, err := c.prompt.Ask(ctx, "Code: ")
		if err != nil {
			span.SetStatus(codes.Error, "failed to read verification code")
			return fmt.Errorf("%w: %w", ErrLoginFailed, err)
		}
		_, err = c.Request(ctx, "/"+confirmPath, url.Values{"code": {code}})
		if err != nil {
			span.SetStatus(codes.Error, "failed to post verification code")
			return err
		}
	}

	// sessions take a moment before the api accepts them
	return c.clock.Sleep(ctx, c.settleDelay)
}

// FetchProfile returns the commander profile, logging in if needed.
func (c *Client) FetchProfile(ctx context.Context) (profile.Profile, error) {
	res, err := c.EnsureAuthenticated(ctx, "/profile", nil)
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := profile.Parse(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_profile, err, res.Status())
		return profile.Profile{}, err
	}
	return p, nil
}

// CookieNames lists the names of the cookies currently held.
func (c *Client) CookieNames() []string {
	return c.jar.Names()
}
