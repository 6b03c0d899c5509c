// cmd/seed — populates the ledger with realistic demo data for development.
//
// It registers a handful of products, walks each through a few custody
// events, and registers the participants involved. Running twice creates a
// second batch of records: the ledger is append-only and assigns fresh ids,
// so reset the local replica first when a clean slate matters.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -network local -canister supply_chain
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/ledger"
	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func ptr(f float64) *float64 { return &f }

type seedEvent struct {
	Type     model.EventType
	Location string
	Actor    string
	Details  string
	Coords   *model.Coordinates
	Temp     *float64
}

type seedProduct struct {
	Product model.CreateProductInput
	Events  []seedEvent
}

var seedParticipants = []model.RegisterParticipantInput{
	{Name: "Finca El Mirador", Role: model.RoleManufacturer, Location: "Huila, Colombia"},
	{Name: "Pacific Freight Lines", Role: model.RoleDistributor, Location: "Hamburg, Germany"},
	{Name: "Nordsee Quality Labs", Role: model.RoleAuditor, Location: "Bremen, Germany"},
	{Name: "Beanhouse Retail", Role: model.RoleRetailer, Location: "Berlin, Germany"},
}

var seedProducts = []seedProduct{
	{
		Product: model.CreateProductInput{
			Name:           "Single Origin Arabica",
			Description:    "Washed arabica from the Huila highlands",
			Manufacturer:   "Finca El Mirador",
			BatchNumber:    "COF-2024-0193",
			Ingredients:    []string{"arabica beans"},
			Certifications: []string{"Organic", "Fair Trade"},
		},
		Events: []seedEvent{
			{
				Type: model.EventProduction, Location: "Huila, Colombia",
				Actor: "Finca El Mirador", Details: "Harvest and wet processing complete",
				Coords: &model.Coordinates{Lat: 2.53, Lng: -75.52},
			},
			{
				Type: model.EventQualityCheck, Location: "Buenaventura, Colombia",
				Actor: "Nordsee Quality Labs", Details: "Moisture 10.8%, cupping score 86",
				Temp: ptr(21.5),
			},
			{
				Type: model.EventShipping, Location: "Port of Buenaventura",
				Actor: "Pacific Freight Lines", Details: "Loaded onto container MSKU-884210",
				Coords: &model.Coordinates{Lat: 3.88, Lng: -77.07}, Temp: ptr(19.0),
			},
		},
	},
	{
		Product: model.CreateProductInput{
			Name:           "Alpine Spring Water",
			Description:    "Still mineral water, glass bottled at source",
			Manufacturer:   "Quellwerk GmbH",
			BatchNumber:    "AQW-2024-1102",
			Certifications: []string{"ISO 22000"},
		},
		Events: []seedEvent{
			{
				Type: model.EventProduction, Location: "Garmisch, Germany",
				Actor: "Quellwerk GmbH", Details: "Bottled at source, line 2",
			},
			{
				Type: model.EventPackaging, Location: "Garmisch, Germany",
				Actor: "Quellwerk GmbH", Details: "Palletised, 24 crates",
			},
			{
				Type: model.EventDelivery, Location: "Berlin, Germany",
				Actor: "Beanhouse Retail", Details: "Received at central warehouse",
				Temp: ptr(8.5),
			},
		},
	},
	{
		Product: model.CreateProductInput{
			Name:         "Wildflower Honey",
			Description:  "Raw honey, single apiary",
			Manufacturer: "Imkerei Brandt",
			BatchNumber:  "HON-2024-0007",
			Ingredients:  []string{"raw honey"},
		},
		Events: []seedEvent{
			{
				Type: model.EventProduction, Location: "Lüneburg Heath, Germany",
				Actor: "Imkerei Brandt", Details: "Extracted and coarse filtered",
			},
		},
	},
}

func run() error {
	var (
		canister = flag.String("canister", "supply_chain", "canister name or principal")
		network  = flag.String("network", "", "dfx network (empty uses the dfx default)")
		dfxBin   = flag.String("dfx-bin", "dfx", "path to the dfx binary")
	)
	flag.Parse()

	gw := ledger.NewDfxGateway(ledger.DfxConfig{
		Bin:         *dfxBin,
		Canister:    *canister,
		Network:     *network,
		CallTimeout: 60 * time.Second,
	}, zap.NewNop())
	svc := service.New(gw, service.Config{CacheTTL: -1}, zap.NewNop())
	ctx := context.Background()

	for _, p := range seedParticipants {
		id, err := svc.RegisterParticipant(ctx, p)
		if err != nil {
			return fmt.Errorf("participant %q: %w", p.Name, err)
		}
		fmt.Printf("participant %-24s %s\n", p.Name, id)
	}

	for _, sp := range seedProducts {
		id, err := svc.CreateProduct(ctx, sp.Product)
		if err != nil {
			return fmt.Errorf("product %q: %w", sp.Product.BatchNumber, err)
		}
		fmt.Printf("product     %-24s %s\n", sp.Product.BatchNumber, id)

		for _, ev := range sp.Events {
			eid, err := svc.AppendEvent(ctx, model.AppendEventInput{
				ProductID:   id,
				EventType:   ev.Type,
				Location:    ev.Location,
				Actor:       ev.Actor,
				Details:     ev.Details,
				Coordinates: ev.Coords,
				Temperature: ev.Temp,
			})
			if err != nil {
				return fmt.Errorf("event %s on %q: %w", ev.Type, sp.Product.BatchNumber, err)
			}
			fmt.Printf("  event     %-22s %s\n", ev.Type.Label(), eid)
		}
	}

	fmt.Println("seed complete")
	return nil
}
