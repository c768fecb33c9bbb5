// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	log.Println("starting pose-bridge web dashboard (MQTT subscriber)")

	// Load configuration
	config.InitGlobal(*configPath)

	log.Println("Note: the dashboard is read-only, target commands go to the tracker's own WEB_SERVER_PORT")

	if err := app.RunWeb(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
