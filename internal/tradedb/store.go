// Package tradedb is the local trading database the market is imported into.
package tradedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/telemetry"
)

var ErrNotFound = errors.New("not found")

// Flag values used by the station attribute columns.
const (
	Yes     = "Y"
	No      = "N"
	Unknown = "?"
)

// Station is a station record, attribute flags are Yes, No or Unknown and the
// pad size is S, M, L or Unknown.
type Station struct {
	ID          int64
	System      string
	Name        string
	LsFromStar  int
	BlackMarket string
	MaxPadSize  string
	Market      string
	Shipyard    string
	Outfitting  string
	Rearm       string
	Refuel      string
	Repair      string
}

// NewStation returns a station with every attribute unknown.
func NewStation(system, name string) Station {
	return Station{
		System:      system,
		Name:        name,
		BlackMarket: Unknown,
		MaxPadSize:  Unknown,
		Market:      Unknown,
		Shipyard:    Unknown,
		Outfitting:  Unknown,
		Rearm:       Unknown,
		Refuel:      Unknown,
		Repair:      Unknown,
	}
}

// SameAttributes compares everything but the identity of two stations.
func (s Station) SameAttributes(other Station) bool {
	s.ID, s.System, s.Name = other.ID, other.System, other.Name
	return s == other
}

type Ship struct {
	ID   int64
	Name string
	Cost int64
}

// Price is what a station pays for an item (Sell) and what it charges (Buy).
type Price struct {
	Sell int
	Buy  int
}

// ItemPrice is a full price row of a station.
type ItemPrice struct {
	Name string
	Price
	DemandUnits int
	DemandLevel int
	SupplyUnits int
	SupplyLevel int
}

type Store struct {
	DB     *sql.DB
	Query  *Queries
	MakeTx MakeTx

	clock chrono.API
	tel   telemetry.API
}

func NewStore(db *sql.DB, clock chrono.API, tel telemetry.API) Store {
	return Store{
		DB:     db,
		Query:  New(db),
		MakeTx: NewMakeTx(db),
		clock:  clock,
		tel:    telemetry.NewScopedAPI("tradedb", tel),
	}
}

func (s Store) modified() string {
	return s.clock.Now().UTC().Format(time.DateTime)
}

// Init creates any missing tables.
func (s Store) Init(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return err
}

func (s Store) LookupStation(ctx context.Context, system, station string) (Station, error) {
	out, err := s.Query.GetStation(ctx, system, station)
	if err != nil {
		return Station{}, notFound(err, "station %s/%s", system, station)
	}
	return out, nil
}

// AddStation inserts a station, creating its system when the system is new.
func (s Store) AddStation(ctx context.Context, station Station) (Station, error) {
	tx, discard, commit, err := s.MakeTx(ctx)
	if err != nil {
		return Station{}, err
	}
	defer discard()

	modified := s.modified()
	systemId, err := tx.GetSystemId(ctx, station.System)
	if errors.Is(err, sql.ErrNoRows) {
		s.tel.ReportDebug("adding system", station.System)
		systemId, err = tx.CreateSystem(ctx, station.System, modified)
	}
	if err != nil {
		return Station{}, fmt.Errorf("add system %s: %w", station.System, err)
	}

	station.ID, err = tx.CreateStation(ctx, systemId, station, modified)
	if err != nil {
		return Station{}, fmt.Errorf("add station %s/%s: %w", station.System, station.Name, err)
	}
	err = commit()
	if err != nil {
		return Station{}, err
	}
	return station, nil
}

func (s Store) UpdateStation(ctx context.Context, station Station) error {
	affected, err := s.Query.UpdateStation(ctx, station, s.modified())
	if err != nil {
		return fmt.Errorf("update station %s/%s: %w", station.System, station.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("update station %s/%s: %w", station.System, station.Name, ErrNotFound)
	}
	return nil
}

func (s Store) LookupShip(ctx context.Context, name string) (Ship, error) {
	out, err := s.Query.GetShip(ctx, name)
	if err != nil {
		return Ship{}, notFound(err, "ship %s", name)
	}
	return out, nil
}

func (s Store) AddShip(ctx context.Context, name string, cost int64) (Ship, error) {
	id, err := s.Query.CreateShip(ctx, name, cost)
	if err != nil {
		return Ship{}, fmt.Errorf("add ship %s: %w", name, err)
	}
	return Ship{ID: id, Name: name, Cost: cost}, nil
}

// AddShipVendor records that a station sells a ship, recording it twice is harmless.
func (s Store) AddShipVendor(ctx context.Context, ship Ship, station Station) error {
	err := s.Query.ReplaceShipVendor(ctx, ship.ID, station.ID, s.modified())
	if err != nil {
		return fmt.Errorf("add %s to shipyard of %s/%s: %w", ship.Name, station.System, station.Name, err)
	}
	return nil
}

func (s Store) ShipVendors(ctx context.Context, station Station) ([]string, error) {
	return s.Query.ListShipVendors(ctx, station.ID)
}

// PricesAt returns the prices currently recorded for a station keyed by item name.
func (s Store) PricesAt(ctx context.Context, system, station string) (map[string]Price, error) {
	rows, err := s.Query.GetPrices(ctx, system, station)
	if err != nil {
		return nil, fmt.Errorf("prices at %s/%s: %w", system, station, err)
	}
	out := make(map[string]Price, len(rows))
	for _, row := range rows {
		out[row.Item] = row.Price
	}
	return out, nil
}
