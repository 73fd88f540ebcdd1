package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"edcompanion/internal/components/prompt"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/tradedb"
)

// StationStore is the part of the trade database station reconciliation needs.
type StationStore interface {
	LookupStation(ctx context.Context, system, station string) (tradedb.Station, error)
	AddStation(ctx context.Context, station tradedb.Station) (tradedb.Station, error)
	UpdateStation(ctx context.Context, station tradedb.Station) error
}

// StationObservation is what the profile tells us about the station we are docked at.
type StationObservation struct {
	System      string
	Station     string
	HasMarket   bool
	HasShipyard bool
}

type Reconciliation struct {
	Station tradedb.Station
	Added   bool
	Updated bool
}

type flagQuestion struct {
	question string
	allowed  []string
	field    func(s *tradedb.Station) *string
}

var flagQuestions = []flagQuestion{
	{
		question: "black market present (Y, N or enter for ?)",
		allowed:  []string{tradedb.Yes, tradedb.No},
		field:    func(s *tradedb.Station) *string { return &s.BlackMarket },
	},
	{
		question: "max pad size (S, M, L or enter for ?)",
		allowed:  []string{"S", "M", "L"},
		field:    func(s *tradedb.Station) *string { return &s.MaxPadSize },
	},
	{
		question: "outfitting present (Y, N or enter for ?)",
		allowed:  []string{tradedb.Yes, tradedb.No},
		field:    func(s *tradedb.Station) *string { return &s.Outfitting },
	},
	{
		question: "rearm present (Y, N or enter for ?)",
		allowed:  []string{tradedb.Yes, tradedb.No},
		field:    func(s *tradedb.Station) *string { return &s.Rearm },
	},
	{
		question: "refuel present (Y, N or enter for ?)",
		allowed:  []string{tradedb.Yes, tradedb.No},
		field:    func(s *tradedb.Station) *string { return &s.Refuel },
	},
	{
		question: "repair present (Y, N or enter for ?)",
		allowed:  []string{tradedb.Yes, tradedb.No},
		field:    func(s *tradedb.Station) *string { return &s.Repair },
	},
}

func question(update bool, text string) string {
	if update {
		return "Update " + text + ": "
	}
	return strings.ToUpper(text[:1]) + text[1:] + ": "
}

type reconciler struct {
	prompt prompt.Provider
	tel    telemetry.API
}

func (r reconciler) askDistance(ctx context.Context, update bool) (int, error) {
	answer, err := r.prompt.Ask(ctx, question(update, "distance from star (enter for 0)"))
	if err != nil {
		return 0, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, nil
	}
	distance, err := strconv.Atoi(answer)
	if err != nil || distance < 0 {
		r.tel.ReportWarning("station.invalid-answer", "distance", answer)
		return 0, nil
	}
	return distance, nil
}

func (r reconciler) askFlag(ctx context.Context, update bool, q flagQuestion) (string, error) {
	answer, err := r.prompt.Ask(ctx, question(update, q.question))
	if err != nil {
		return "", err
	}
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if answer == "" || answer == tradedb.Unknown {
		return tradedb.Unknown, nil
	}
	for _, allowed := range q.allowed {
		if answer == allowed {
			return answer, nil
		}
	}
	r.tel.ReportWarning("station.invalid-answer", q.question, answer)
	return tradedb.Unknown, nil
}

// promote only ever raises a flag to Yes, a missing sub-document proves nothing.
func promote(flag string, present bool) string {
	if present {
		return tradedb.Yes
	}
	return flag
}

// ReconcileStation makes sure the station is in the trade database. A new station is
// filled in from the prompts, an existing one only has its unknown attributes asked
// again and is only written when something changed.
func ReconcileStation(
	ctx context.Context,
	store StationStore,
	provider prompt.Provider,
	tel telemetry.API,
	obs StationObservation,
) (Reconciliation, error) {
	r := reconciler{prompt: provider, tel: telemetry.NewScopedAPI("importer", tel)}

	existing, err := store.LookupStation(ctx, obs.System, obs.Station)
	if errors.Is(err, tradedb.ErrNotFound) {
		station := tradedb.NewStation(obs.System, obs.Station)
		station.LsFromStar, err = r.askDistance(ctx, false)
		if err != nil {
			return Reconciliation{}, err
		}
		for _, q := range flagQuestions {
			*q.field(&station), err = r.askFlag(ctx, false, q)
			if err != nil {
				return Reconciliation{}, err
			}
		}
		station.Market = promote(tradedb.Unknown, obs.HasMarket)
		station.Shipyard = promote(tradedb.Unknown, obs.HasShipyard)

		added, err := store.AddStation(ctx, station)
		if err != nil {
			return Reconciliation{}, err
		}
		return Reconciliation{Station: added, Added: true}, nil
	}
	if err != nil {
		return Reconciliation{}, fmt.Errorf("look up station: %w", err)
	}

	station := existing
	if station.LsFromStar == 0 {
		station.LsFromStar, err = r.askDistance(ctx, true)
		if err != nil {
			return Reconciliation{}, err
		}
	}
	for _, q := range flagQuestions {
		field := q.field(&station)
		if *field != tradedb.Unknown {
			continue
		}
		*field, err = r.askFlag(ctx, true, q)
		if err != nil {
			return Reconciliation{}, err
		}
	}
	station.Market = promote(station.Market, obs.HasMarket)
	station.Shipyard = promote(station.Shipyard, obs.HasShipyard)

	if station.SameAttributes(existing) {
		return Reconciliation{Station: existing}, nil
	}
	err = store.UpdateStation(ctx, station)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{Station: station, Updated: true}, nil
}
