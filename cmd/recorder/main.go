package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pose_bridge/internal/app"
	"github.com/relabs-tech/pose_bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "./pose_bridge_config.txt", "path to configuration file")
	out := flag.String("out", "poses.jsonl", "recording to write")
	frames := flag.Int("frames", 0, "stop after this many frames (0 = until interrupted)")
	flag.Parse()

	log.Println("starting pose-bridge recorder (pose source → JSON lines)")

	config.InitGlobal(*configPath)

	if err := app.RunRecorder(*out, *frames); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
