package main

import (
	"flag"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/infra/db"
)

// go run ./cmd/migrate -direction up|down
func main() {
	direction := flag.String("direction", "up", "up or down (one step)")
	flag.Parse()

	config.LoadDotEnv(".env", "../.env")
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch *direction {
	case "up":
		err = db.MigrateUp(cfg.DatabaseDSN())
	case "down":
		err = db.MigrateDown(cfg.DatabaseDSN())
	default:
		err = fmt.Errorf("unknown direction %q", *direction)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("migrate", *direction, "done")
}
