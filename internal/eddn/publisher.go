// Package eddn publishes market, shipyard and outfitting data to the Elite Dangerous Data Network.
package eddn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"edcompanion/internal/components/assert"
	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/normalize"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/eddn")

const report_publisher_post = "publisher.post"

var DefaultGateways = []string{
	"http://eddn-gateway.elite-markets.net:8080/upload/",
}

// DeliveryError is a message the gateway did not accept, Status is 0 when
// no response came back at all.
type DeliveryError struct {
	Family  Family
	Gateway string
	Status  int
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("publish %s to %s: %s", e.Family, e.Gateway, e.Err)
	}
	return fmt.Sprintf("publish %s to %s: gateway returned %d", e.Family, e.Gateway, e.Status)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type Options struct {
	Gateways        []string
	SoftwareName    string
	SoftwareVersion string
	// Uploader is the commander name, it is hashed unless PlainUploader is set.
	Uploader      string
	PlainUploader bool
	Test          bool

	Clock  chrono.API
	Output telemetry.InstrumentOutput
}

type Publisher struct {
	Http *resty.Client

	gateways []string
	header   Header
	test     bool
	clock    chrono.API
	tel      telemetry.API
}

func NewPublisher(opts Options, tel telemetry.API) *Publisher {
	assert.NotNil("telemetry", tel)
	assert.NotEmptyStr("software name", opts.SoftwareName)

	tel = telemetry.NewScopedAPI("eddn", tel)
	if len(opts.Gateways) == 0 {
		opts.Gateways = DefaultGateways
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}

	httpClient := resty.New()
	httpClient.SetHeader("content-type", "application/json; charset=utf8")
	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Publisher{
		Http:     httpClient,
		gateways: opts.Gateways,
		header: Header{
			UploaderID:      UploaderID(opts.Uploader, opts.PlainUploader),
			SoftwareName:    opts.SoftwareName,
			SoftwareVersion: opts.SoftwareVersion,
		},
		test:  opts.Test,
		clock: opts.Clock,
		tel:   tel,
	}
}

func (p *Publisher) location(system, station string) Location {
	return Location{
		SystemName:  system,
		StationName: station,
		Timestamp:   p.clock.Now().UTC().Format(time.RFC3339),
	}
}

// Encode renders the envelope as the gateway expects it, non-ascii text is sent as is.
func Encode(envelope Envelope) ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(envelope)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// post delivers a single message to one of the gateways, there is no retry.
func (p *Publisher) post(ctx context.Context, family Family, message any) error {
	ctx, span := tracer.Start(ctx, "publisher:post")
	defer span.End()

	gateway := p.gateways[rand.IntN(len(p.gateways))]
	span.SetAttributes(
		attribute.String("family", string(family)),
		attribute.String("gateway", gateway),
	)

	body, err := Encode(Envelope{
		SchemaRef: SchemaRef(family, p.test),
		Header:    p.header,
		Message:   message,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to encode message")
		return err
	}

	res, err := p.Http.R().
		SetContext(ctx).
		SetBody(body).
		Post(gateway)
	if err != nil {
		span.SetStatus(codes.Error, "failed to reach gateway")
		p.tel.ReportBroken(report_publisher_post, err, gateway)
		return &DeliveryError{Family: family, Gateway: gateway, Err: err}
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		span.SetStatus(codes.Error, res.Status())
		p.tel.ReportWarning(report_publisher_post, gateway, res.Status(), string(res.Body()))
		return &DeliveryError{Family: family, Gateway: gateway, Status: res.StatusCode()}
	}
	p.tel.ReportDebug("published", string(family), gateway)
	return nil
}

func (p *Publisher) PublishCommodities(ctx context.Context, system, station string, commodities []normalize.FeedCommodity) error {
	return p.post(ctx, FamilyCommodity, CommodityMessage{
		Location:    p.location(system, station),
		Commodities: commodities,
	})
}

func (p *Publisher) PublishShipyard(ctx context.Context, system, station string, ships []string) error {
	return p.post(ctx, FamilyShipyard, ShipyardMessage{
		Location: p.location(system, station),
		Ships:    ships,
	})
}

func (p *Publisher) PublishOutfitting(ctx context.Context, system, station string, modules []string) error {
	return p.post(ctx, FamilyOutfitting, OutfittingMessage{
		Location: p.location(system, station),
		Modules:  modules,
	})
}
