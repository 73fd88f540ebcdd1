package eddn

import (
	"crypto/sha1"
	"encoding/hex"

	"edcompanion/internal/normalize"
)

type Family string

const (
	FamilyCommodity  Family = "commodity"
	FamilyShipyard   Family = "shipyard"
	FamilyOutfitting Family = "outfitting"
)

const schemaBase = "http://schemas.elite-markets.net/eddn/"

var schemaVersions = map[Family]string{
	FamilyCommodity:  "3",
	FamilyShipyard:   "2",
	FamilyOutfitting: "2",
}

// SchemaRef returns the schema a message of the family is validated against,
// test schemas are accepted by the gateway but not relayed to consumers.
func SchemaRef(family Family, test bool) string {
	ref := schemaBase + string(family) + "/" + schemaVersions[family]
	if test {
		ref += "/test"
	}
	return ref
}

// UploaderID hides the commander name behind its sha1 unless plain is set.
func UploaderID(name string, plain bool) string {
	if plain {
		return name
	}
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

type Header struct {
	UploaderID      string `json:"uploaderID"`
	SoftwareName    string `json:"softwareName"`
	SoftwareVersion string `json:"softwareVersion"`
}

type Envelope struct {
	SchemaRef string `json:"$schemaRef"`
	Header    Header `json:"header"`
	Message   any    `json:"message"`
}

type Location struct {
	SystemName  string `json:"systemName"`
	StationName string `json:"stationName"`
	Timestamp   string `json:"timestamp"`
}

type CommodityMessage struct {
	Location
	Commodities []normalize.FeedCommodity `json:"commodities"`
}

type ShipyardMessage struct {
	Location
	Ships []string `json:"ships"`
}

type OutfittingMessage struct {
	Location
	Modules []string `json:"modules"`
}
