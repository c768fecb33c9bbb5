package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pose_bridge/internal/app"
	"github.com/relabs-tech/pose_bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "./pose_bridge_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting pose-bridge console (MQTT subscriber)")

	// Load configuration
	config.InitGlobal(*configPath)

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
