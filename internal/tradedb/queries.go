package tradedb

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds every statement run against the trade database, it works the same
// on a plain connection or inside a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const getSystemId = `SELECT system_id FROM System WHERE name = ?`

func (q *Queries) GetSystemId(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getSystemId, name).Scan(&id)
	return id, err
}

const createSystem = `INSERT INTO System (name, modified) VALUES (?, ?) RETURNING system_id`

func (q *Queries) CreateSystem(ctx context.Context, name, modified string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createSystem, name, modified).Scan(&id)
	return id, err
}

const stationColumns = `
    Station.station_id,
    System.name,
    Station.name,
    Station.ls_from_star,
    Station.blackmarket,
    Station.max_pad_size,
    Station.market,
    Station.shipyard,
    Station.outfitting,
    Station.rearm,
    Station.refuel,
    Station.repair`

func scanStation(row interface{ Scan(...any) error }) (Station, error) {
	var s Station
	err := row.Scan(
		&s.ID,
		&s.System,
		&s.Name,
		&s.LsFromStar,
		&s.BlackMarket,
		&s.MaxPadSize,
		&s.Market,
		&s.Shipyard,
		&s.Outfitting,
		&s.Rearm,
		&s.Refuel,
		&s.Repair,
	)
	return s, err
}

const getStation = `SELECT` + stationColumns + `
FROM Station
JOIN System ON System.system_id = Station.system_id
WHERE System.name = ? AND Station.name = ?`

func (q *Queries) GetStation(ctx context.Context, system, station string) (Station, error) {
	return scanStation(q.db.QueryRowContext(ctx, getStation, system, station))
}

const listStations = `SELECT` + stationColumns + `
FROM Station
JOIN System ON System.system_id = Station.system_id
ORDER BY System.name, Station.name`

func (q *Queries) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := q.db.QueryContext(ctx, listStations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const createStation = `
INSERT INTO Station (
    name, system_id, ls_from_star, blackmarket, max_pad_size, market,
    shipyard, outfitting, rearm, refuel, repair, modified
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING station_id`

func (q *Queries) CreateStation(ctx context.Context, systemId int64, s Station, modified string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(
		ctx, createStation,
		s.Name, systemId, s.LsFromStar, s.BlackMarket, s.MaxPadSize, s.Market,
		s.Shipyard, s.Outfitting, s.Rearm, s.Refuel, s.Repair, modified,
	).Scan(&id)
	return id, err
}

const updateStation = `
UPDATE Station SET
    ls_from_star = ?,
    blackmarket = ?,
    max_pad_size = ?,
    market = ?,
    shipyard = ?,
    outfitting = ?,
    rearm = ?,
    refuel = ?,
    repair = ?,
    modified = ?
WHERE station_id = ?`

func (q *Queries) UpdateStation(ctx context.Context, s Station, modified string) (int64, error) {
	res, err := q.db.ExecContext(
		ctx, updateStation,
		s.LsFromStar, s.BlackMarket, s.MaxPadSize, s.Market, s.Shipyard,
		s.Outfitting, s.Rearm, s.Refuel, s.Repair, modified, s.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getShip = `SELECT ship_id, name, cost FROM Ship WHERE name = ?`

func (q *Queries) GetShip(ctx context.Context, name string) (Ship, error) {
	var s Ship
	err := q.db.QueryRowContext(ctx, getShip, name).Scan(&s.ID, &s.Name, &s.Cost)
	return s, err
}

const createShip = `INSERT INTO Ship (name, cost) VALUES (?, ?) RETURNING ship_id`

func (q *Queries) CreateShip(ctx context.Context, name string, cost int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createShip, name, cost).Scan(&id)
	return id, err
}

const replaceShipVendor = `REPLACE INTO ShipVendor (ship_id, station_id, modified) VALUES (?, ?, ?)`

func (q *Queries) ReplaceShipVendor(ctx context.Context, shipId, stationId int64, modified string) error {
	_, err := q.db.ExecContext(ctx, replaceShipVendor, shipId, stationId, modified)
	return err
}

const listShipVendors = `
SELECT Ship.name FROM ShipVendor
JOIN Ship ON Ship.ship_id = ShipVendor.ship_id
WHERE ShipVendor.station_id = ?
ORDER BY Ship.name`

func (q *Queries) ListShipVendors(ctx context.Context, stationId int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listShipVendors, stationId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const getCategoryId = `SELECT category_id FROM Category WHERE name = ?`

func (q *Queries) GetCategoryId(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getCategoryId, name).Scan(&id)
	return id, err
}

const createCategory = `INSERT INTO Category (name) VALUES (?) RETURNING category_id`

func (q *Queries) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCategory, name).Scan(&id)
	return id, err
}

const getItemId = `SELECT item_id FROM Item WHERE name = ?`

func (q *Queries) GetItemId(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, getItemId, name).Scan(&id)
	return id, err
}

const createItem = `
INSERT INTO Item (name, category_id, ui_order)
VALUES (?, ?, (SELECT COALESCE(MAX(ui_order), 0) + 1 FROM Item WHERE category_id = ?))
RETURNING item_id`

func (q *Queries) CreateItem(ctx context.Context, name string, categoryId int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createItem, name, categoryId, categoryId).Scan(&id)
	return id, err
}

const listItemNames = `SELECT name FROM Item ORDER BY name`

func (q *Queries) ListItemNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listItemNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const deleteStationItems = `DELETE FROM StationItem WHERE station_id = ?`

func (q *Queries) DeleteStationItems(ctx context.Context, stationId int64) error {
	_, err := q.db.ExecContext(ctx, deleteStationItems, stationId)
	return err
}

const insertStationItem = `
INSERT INTO StationItem (
    station_id, item_id,
    demand_price, demand_units, demand_level,
    supply_price, supply_units, supply_level,
    modified
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertStationItemParams struct {
	StationId   int64
	ItemId      int64
	DemandPrice int
	DemandUnits int
	DemandLevel int
	SupplyPrice int
	SupplyUnits int
	SupplyLevel int
	Modified    string
}

func (q *Queries) InsertStationItem(ctx context.Context, arg InsertStationItemParams) error {
	_, err := q.db.ExecContext(
		ctx, insertStationItem,
		arg.StationId, arg.ItemId,
		arg.DemandPrice, arg.DemandUnits, arg.DemandLevel,
		arg.SupplyPrice, arg.SupplyUnits, arg.SupplyLevel,
		arg.Modified,
	)
	return err
}

const getPrices = `
SELECT
    Item.name,
    vPrice.sell_to,
    vPrice.buy_from
FROM vPrice
JOIN Station ON Station.station_id = vPrice.station_id
JOIN System ON System.system_id = Station.system_id
JOIN Item ON Item.item_id = vPrice.item_id
WHERE System.name = ? AND Station.name = ?
ORDER BY Item.ui_order`

type PriceRow struct {
	Item string
	Price
}

func (q *Queries) GetPrices(ctx context.Context, system, station string) ([]PriceRow, error) {
	rows, err := q.db.QueryContext(ctx, getPrices, system, station)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceRow
	for rows.Next() {
		var row PriceRow
		err := rows.Scan(&row.Item, &row.Sell, &row.Buy)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const getStationItem = `
SELECT
    demand_price, demand_units, demand_level,
    supply_price, supply_units, supply_level
FROM StationItem
JOIN Item ON Item.item_id = StationItem.item_id
WHERE StationItem.station_id = ? AND Item.name = ?`

func (q *Queries) GetStationItem(ctx context.Context, stationId int64, item string) (ItemPrice, error) {
	var p ItemPrice
	p.Name = item
	err := q.db.QueryRowContext(ctx, getStationItem, stationId, item).Scan(
		&p.Sell, &p.DemandUnits, &p.DemandLevel,
		&p.Buy, &p.SupplyUnits, &p.SupplyLevel,
	)
	return p, err
}
