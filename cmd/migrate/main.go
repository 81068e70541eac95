package main

import (
	"marketplace_system/internal/config" // Custom import path (Config)
	"marketplace_system/internal/db"     // Custom import path (Database)
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())
}
