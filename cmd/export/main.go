package main

import (
	"flag"

	"github.com/joho/godotenv"

	"birdscout-go/internal/config"
	"birdscout-go/internal/logger"
	"birdscout-go/internal/report"
	"birdscout-go/internal/store"
)

func main() {
	_ = godotenv.Load()

	out := flag.String("out", "detections.xlsx", "output workbook path")
	flag.Parse()

	log := logger.New().WithField("service", "birdscout-export")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	dets, err := store.New(cfg).ListDetections()
	if err != nil {
		log.WithError(err).Fatal("failed to list detections")
	}
	log.WithField("detections", len(dets)).Info("detections loaded")

	if err := report.Write(*out, dets); err != nil {
		log.WithError(err).Fatal("failed to write workbook")
	}
	log.WithField("path", *out).Info("workbook written")
}
