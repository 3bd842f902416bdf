// Command migrate brings the schema up to date and reports table status.
package main

import (
	"flag"
	"fmt"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	statusOnly := flag.Bool("status", false, "Only report which tables exist")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var db *gorm.DB
	if *statusOnly {
		dialector, err := database.Dialector(cfg)
		if err != nil {
			return err
		}
		db, err = gorm.Open(dialector, &gorm.Config{Logger: database.NewGormLogger(logger.Warn)})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
	} else {
		// Connect migrates on open.
		db, err = database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	for _, model := range database.PersistentModels() {
		fmt.Printf("%-20T present=%v\n", model, db.Migrator().HasTable(model))
	}
	return nil
}
