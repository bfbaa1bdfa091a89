// Command simulate runs a full delivery lifecycle against an in-process
// sandbox backend: quote, confirm, simulated status progression with courier
// tracking, and a rating once the delivery completes.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftrush/rush-go/internal/sandbox"
	"github.com/swiftrush/rush-go/pkg/config"
	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/logger"
	"github.com/swiftrush/rush-go/pkg/models"
	"github.com/swiftrush/rush-go/pkg/rush"
)

func main() {
	// Load configuration; without env credentials fall back to the local
	// sandbox defaults so the demo is self-contained.
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{
			ClientID:     "sandbox-client",
			ClientSecret: "sandbox-secret",
			Sandbox:      true,
			PollInterval: 2 * time.Second,
			Extrapolate:  true,
			Debug:        true,
		}
	}
	if cfg.Simulate <= 0 {
		cfg.Simulate = 3 * time.Second
	}

	if err := logger.Init(cfg.Debug); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Start the in-process sandbox backend
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("Failed to start sandbox listener: %v", err)
	}
	backend := sandbox.NewServer(logger.Get())
	go func() {
		if err := http.Serve(listener, backend.Handler()); err != nil {
			log.Printf("Sandbox server stopped: %v", err)
		}
	}()
	baseURL := "http://" + listener.Addr().String()
	log.Printf("Sandbox backend listening on %s", baseURL)

	// Create the client
	registry := prometheus.NewRegistry()
	client, err := rush.NewClient(rush.ClientConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		ServerToken:  cfg.ServerToken,
		Sandbox:      true,
		BaseURL:      baseURL,
		TokenURL:     baseURL + "/token",
		Simulate:     cfg.Simulate,
		PollInterval: cfg.PollInterval,
		Extrapolate:  cfg.Extrapolate,
		Debug:        cfg.Debug,
		Logger:       logger.Get(),
		Metrics:      registry,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	delivery, err := client.CreateDelivery(rush.DeliveryOptions{
		Pickup: &models.Waypoint{
			Contact: &models.Contact{
				FirstName: "Ryan",
				LastName:  "Cheney",
				Phone:     &models.Phone{Number: "716-555-5000"},
			},
			Location: &models.Location{
				Address:    "64 Seabring St",
				City:       "Brooklyn",
				State:      "NY",
				PostalCode: "11231",
				Country:    "US",
			},
		},
		Dropoff: &models.Waypoint{
			Contact: &models.Contact{
				FirstName: "Karen",
				LastName:  "Holmes",
				Phone:     &models.Phone{Number: "585-555-5000"},
			},
			Location: &models.Location{
				Address:    "80 Willoughby St",
				Address2:   "#3B",
				City:       "Brooklyn",
				State:      "NY",
				PostalCode: "11201",
				Country:    "US",
			},
		},
		Item: &models.Item{Title: "some food", Quantity: 1, Price: 10, IsFragile: true},
	})
	if err != nil {
		log.Fatalf("Failed to create delivery: %v", err)
	}

	// Subscribe before confirming so the confirmation snapshot is observed
	done := make(chan rush.Status, 1)
	delivery.OnStatus(func(status rush.Status) {
		log.Printf("Status: %s", status)
		if status.Terminal() {
			select {
			case done <- status:
			default:
			}
		}
	})
	delivery.OnPickupETA(func(minutes int) {
		log.Printf("Pickup ETA: %d minutes", minutes)
	})
	delivery.OnDropoffETA(func(minutes int) {
		log.Printf("Dropoff ETA: %d minutes", minutes)
	})
	delivery.OnLocation(func(pos geo.Position) {
		log.Printf("Courier at %.6f,%.6f heading %.0f", pos.Latitude, pos.Longitude, pos.Bearing)
	})
	delivery.OnTrackingLost(func() {
		log.Printf("Tracking lost; giving up")
	})

	ctx := context.Background()

	quotes, err := delivery.Quote(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to quote delivery: %v", err)
	}
	for _, quote := range quotes {
		log.Printf("Quote %s: %.2f %s", quote.QuoteID, quote.Fee, quote.CurrencyCode)
	}

	if err := delivery.Confirm(ctx, nil); err != nil {
		log.Fatalf("Failed to confirm delivery: %v", err)
	}
	log.Printf("Delivery %s confirmed, fee %.2f", delivery.DeliveryID(), delivery.Fee())

	// Wait for the simulated lifecycle to finish
	final := <-done
	if final != rush.StatusCompleted {
		log.Fatalf("Delivery ended in %s", final)
	}

	if err := delivery.Rate(ctx, models.Rating{
		Waypoint: models.WaypointDropoff,
		Type:     models.RatingTypeFivePoints,
		Value:    5,
		Tags:     []string{"courier_on_time"},
	}); err != nil {
		log.Fatalf("Failed to rate delivery: %v", err)
	}
	log.Printf("Delivery completed and rated")

	// Dump the tracking counters collected over the run
	families, err := registry.Gather()
	if err != nil {
		log.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			log.Printf("Metric %s: %.0f", family.GetName(), metric.GetCounter().GetValue())
		}
	}
}
