package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var (
	port           = flag.Int("port", 9090, "HTTP port to serve the fake gateway on")
	initialBattery = flag.Float64("battery", 20.0, "Initial battery state of charge (%)")
	targetBattery  = flag.Float64("target", 80.0, "Target battery state of charge (%)")
	capacityKWh    = flag.Float64("capacity", 50.0, "Battery capacity (kWh)")
	powerKW        = flag.Float64("power", 50.0, "Charger power (kW)")
	costPerKWh     = flag.Float64("rate", 12.0, "Charging tariff per kWh")
	parkingRate    = flag.Float64("parking-rate", 2.0, "Parking fee per minute after charging")
	taxPercent     = flag.Float64("tax", 18.0, "Tax added on top of the base cost (%)")
	failEvery      = flag.Int("fail-every", 0, "Fail every Nth monitoring request with a 500 (0 disables)")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sim := NewSimulator(SimulatorConfig{
		InitialBattery: *initialBattery,
		TargetBattery:  *targetBattery,
		CapacityKWh:    *capacityKWh,
		PowerKW:        *powerKW,
		CostPerKWh:     *costPerKWh,
		ParkingRate:    *parkingRate,
		TaxPercent:     *taxPercent,
		FailEvery:      *failEvery,
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down simulator...")
		sim.Stop()
		os.Exit(0)
	}()

	fmt.Printf("Charging gateway simulator started\n")
	fmt.Printf("  Port: %d\n", *port)
	fmt.Printf("  Battery: %.0f%% -> %.0f%% at %.0f kW\n", *initialBattery, *targetBattery, *powerKW)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := sim.Listen(*port); err != nil {
		logger.Fatal("Simulator server failed", zap.Error(err))
	}
}
