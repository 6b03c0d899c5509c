package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/ledger"
	"github.com/provchain/traceview/internal/provenance/model"
	"github.com/provchain/traceview/internal/provenance/service"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile  string
	canister string
	network  string
	dfxBin   string
	format   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "traceview",
	Short: "Supply chain provenance CLI",
	Long: `traceview talks to the supply chain ledger canister through the local
dfx binary. It registers products, appends custody events, and renders
per-batch traces and verification results.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.traceview")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if canister == "" {
			canister = viper.GetString("canister")
		}
		if canister == "" {
			canister = "supply_chain"
		}
		if network == "" {
			network = viper.GetString("network")
		}
		if dfxBin == "" {
			dfxBin = viper.GetString("dfx_bin")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.traceview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&canister, "canister", "", "canister name or principal (default supply_chain)")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "dfx network (e.g. ic, local); empty uses the dfx default")
	rootCmd.PersistentFlags().StringVar(&dfxBin, "dfx-bin", "", "path to the dfx binary (default dfx on PATH)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format: text or json")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(createProductCmd)
	rootCmd.AddCommand(addEventCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(participantsCmd)
	rootCmd.AddCommand(registerParticipantCmd)
	rootCmd.AddCommand(versionCmd)
}

// newService builds the provenance core over a dfx-backed gateway. The CLI
// disables the read cache: every invocation is a fresh process anyway.
func newService() *service.Service {
	gw := ledger.NewDfxGateway(ledger.DfxConfig{
		Bin:         dfxBin,
		Canister:    canister,
		Network:     network,
		CallTimeout: 60 * time.Second,
	}, zap.NewNop())
	return service.New(gw, service.Config{CacheTTL: -1}, zap.NewNop())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func millisToLocal(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

// ── list ─────────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		products, err := newService().ListProducts(context.Background())
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(products)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBATCH\tMANUFACTURER\tPRODUCED")
		for _, p := range products {
			produced := p.ProducedAt().Format("2006-01-02")
			if p.ProductionDateEstimated {
				produced += " (est.)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Name, p.BatchNumber, p.Manufacturer, produced)
		}
		return w.Flush()
	},
}

// ── trace ────────────────────────────────────────────────────────────────────

var traceCmd = &cobra.Command{
	Use:   "trace <batch-number>",
	Short: "Show the custody trace for a product batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newService().Trace(context.Background(), args[0])
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Printf("No events recorded for batch %s yet.\n", args[0])
			return nil
		}
		printEventTable(events)
		return nil
	},
}

func printEventTable(events []model.SupplyChainEvent) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tEVENT\tLOCATION\tACTOR\tDETAILS")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			millisToLocal(e.Timestamp), e.EventType.Label(), e.Location, e.Actor, e.Details)
	}
	w.Flush()
}

// ── feed ─────────────────────────────────────────────────────────────────────

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the time-ordered event feed across all products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newService().AllEvents(context.Background())
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(events)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tPRODUCT\tEVENT\tLOCATION\tACTOR")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				millisToLocal(e.Timestamp), e.ProductID, e.EventType.Label(), e.Location, e.Actor)
		}
		return w.Flush()
	},
}

// ── stats ────────────────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard aggregates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newService().Stats(context.Background())
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(stats)
		}
		fmt.Printf("Products:             %d\n", stats.Products)
		fmt.Printf("Products with events: %d\n", stats.ProductsWithEvents)
		fmt.Printf("Events:               %d\n", stats.Events)
		fmt.Printf("Participants:         %d\n", stats.Participants)
		fmt.Printf("Last event:           %s\n", millisToLocal(stats.LastEventAt))
		if len(stats.EventsByType) > 0 {
			fmt.Println("\nEvents by type:")
			for _, t := range model.EventTypes() {
				if n := stats.EventsByType[t.Label()]; n > 0 {
					fmt.Printf("  %-14s %d\n", t.Label(), n)
				}
			}
		}
		return nil
	},
}

// ── create-product ───────────────────────────────────────────────────────────

var (
	cpName           string
	cpDescription    string
	cpManufacturer   string
	cpBatch          string
	cpIngredients    []string
	cpCertifications []string
)

var createProductCmd = &cobra.Command{
	Use:   "create-product",
	Short: "Register a new product on the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := newService().CreateProduct(context.Background(), model.CreateProductInput{
			Name:           cpName,
			Description:    cpDescription,
			Manufacturer:   cpManufacturer,
			BatchNumber:    cpBatch,
			Ingredients:    cpIngredients,
			Certifications: cpCertifications,
		})
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if format == "json" {
			return printJSON(map[string]string{"id": id, "batch_number": cpBatch})
		}
		fmt.Printf("✓ Product registered\n\n")
		fmt.Printf("  ID:    %s\n", id)
		fmt.Printf("  Batch: %s\n", cpBatch)
		return nil
	},
}

func init() {
	createProductCmd.Flags().StringVar(&cpName, "name", "", "product name")
	createProductCmd.Flags().StringVar(&cpDescription, "description", "", "product description")
	createProductCmd.Flags().StringVar(&cpManufacturer, "manufacturer", "", "manufacturer name")
	createProductCmd.Flags().StringVar(&cpBatch, "batch", "", "unique batch number")
	createProductCmd.Flags().StringSliceVar(&cpIngredients, "ingredient", nil, "ingredient (repeatable)")
	createProductCmd.Flags().StringSliceVar(&cpCertifications, "certification", nil, "certification (repeatable)")

	_ = createProductCmd.MarkFlagRequired("name")
	_ = createProductCmd.MarkFlagRequired("batch")
}

// ── add-event ────────────────────────────────────────────────────────────────

var (
	aeProductID string
	aeType      string
	aeLocation  string
	aeActor     string
	aeDetails   string
	aeLat       float64
	aeLng       float64
	aeTemp      float64
	aeHumidity  float64
)

var addEventCmd = &cobra.Command{
	Use:   "add-event",
	Short: "Append a custody event to a product's trace",
	RunE: func(cmd *cobra.Command, args []string) error {
		et, ok := model.EventTypeFromLabel(aeType)
		if !ok {
			return fmt.Errorf("unrecognised event type %q (one of %v)", aeType, model.EventTypes())
		}
		in := model.AppendEventInput{
			ProductID: aeProductID,
			EventType: et,
			Location:  aeLocation,
			Actor:     aeActor,
			Details:   aeDetails,
		}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			in.Coordinates = &model.Coordinates{Lat: aeLat, Lng: aeLng}
		}
		if cmd.Flags().Changed("temperature") {
			in.Temperature = &aeTemp
		}
		if cmd.Flags().Changed("humidity") {
			in.Humidity = &aeHumidity
		}

		id, err := newService().AppendEvent(context.Background(), in)
		if err != nil {
			return fmt.Errorf("add event: %w", err)
		}
		if format == "json" {
			return printJSON(map[string]string{"id": id, "product_id": aeProductID})
		}
		fmt.Printf("✓ Event %s appended to %s\n", id, aeProductID)
		return nil
	},
}

func init() {
	addEventCmd.Flags().StringVar(&aeProductID, "product", "", "product id")
	addEventCmd.Flags().StringVar(&aeType, "type", "", `event type (e.g. "Quality Check")`)
	addEventCmd.Flags().StringVar(&aeLocation, "location", "", "where the event happened")
	addEventCmd.Flags().StringVar(&aeActor, "actor", "", "who recorded the event")
	addEventCmd.Flags().StringVar(&aeDetails, "details", "", "free-form details")
	addEventCmd.Flags().Float64Var(&aeLat, "lat", 0, "latitude in degrees")
	addEventCmd.Flags().Float64Var(&aeLng, "lng", 0, "longitude in degrees")
	addEventCmd.Flags().Float64Var(&aeTemp, "temperature", 0, "temperature in °C")
	addEventCmd.Flags().Float64Var(&aeHumidity, "humidity", 0, "relative humidity in %")

	_ = addEventCmd.MarkFlagRequired("product")
	_ = addEventCmd.MarkFlagRequired("type")
	_ = addEventCmd.MarkFlagRequired("location")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify <batch-number>",
	Short: "Check a product batch's authenticity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		authentic, err := newService().Verify(context.Background(), args[0])
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(map[string]any{"batch_number": args[0], "authentic": authentic})
		}
		if authentic {
			fmt.Printf("✓ Batch %s has a consistent custody trace\n", args[0])
		} else {
			fmt.Printf("✗ Batch %s could not be verified\n", args[0])
		}
		return nil
	},
}

// ── participants ─────────────────────────────────────────────────────────────

var participantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "List registered supply chain participants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, err := newService().Participants(context.Background())
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(parts)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLE\tLOCATION\tVERIFIED")
		for _, p := range parts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", p.ID, p.Name, p.Role, p.Location, p.IsVerified)
		}
		return w.Flush()
	},
}

var (
	rpName     string
	rpRole     string
	rpLocation string
	rpKey      string
)

var registerParticipantCmd = &cobra.Command{
	Use:   "register-participant",
	Short: "Register a supply chain participant",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := newService().RegisterParticipant(context.Background(), model.RegisterParticipantInput{
			Name:      rpName,
			Role:      model.ParticipantRole(rpRole),
			Location:  rpLocation,
			PublicKey: rpKey,
		})
		if err != nil {
			return fmt.Errorf("register participant: %w", err)
		}
		if format == "json" {
			return printJSON(map[string]string{"id": id})
		}
		fmt.Printf("✓ Participant %s registered as %s\n", rpName, id)
		return nil
	},
}

func init() {
	registerParticipantCmd.Flags().StringVar(&rpName, "name", "", "participant name")
	registerParticipantCmd.Flags().StringVar(&rpRole, "role", "", "role (Manufacturer, Supplier, Distributor, Retailer, Consumer, Auditor)")
	registerParticipantCmd.Flags().StringVar(&rpLocation, "location", "", "participant location")
	registerParticipantCmd.Flags().StringVar(&rpKey, "public-key", "", "participant public key")

	_ = registerParticipantCmd.MarkFlagRequired("name")
	_ = registerParticipantCmd.MarkFlagRequired("role")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("traceview %s\n", version)
	},
}
