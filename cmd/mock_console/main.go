package main

import (
	"log"

	"github.com/relabs-tech/pose_bridge/internal/app"
)

func main() {
	log.Println("starting pose-bridge mock console")

	if err := app.RunMockConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
