package main

import (
	"log"
	"os"

	"github.com/docuchat/docuchat/config"
	"github.com/docuchat/docuchat/internal/server"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("DOCUCHAT_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := server.Run(cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
