package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"tx-tracker/pkg/config"
)

func main() {
	var command, dir, cfgFile string
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down, version")
	flag.StringVar(&dir, "path", "migrations", "Directory containing migration files")
	flag.StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")
	flag.Parse()

	// 加载配置
	config.Init(cfgFile)

	m, err := migrate.New("file://"+dir, config.Global.DB.URL())
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migration up done")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration down done")
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("No migration applied yet")
			return
		}
		if err != nil {
			log.Fatalf("Read version failed: %v", err)
		}
		log.Printf("Version: %d, dirty: %v", version, dirty)
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
