package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"RatePulse/internal/di"
	"RatePulse/pkg/config"
	"RatePulse/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(server.Version)
		return
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("ratepulse %s env=%s backend=%s", server.Version, cfg.Environment, cfg.Backend.Type)
	log.Printf("clickhouse db=%s kafka brokers=%v outcomes=%s quotes=%s",
		cfg.ClickHouse.Database, cfg.Kafka.Brokers, cfg.Kafka.OutcomeTopic, cfg.Kafka.QuoteTopic)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
