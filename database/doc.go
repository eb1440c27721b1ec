// Package database provides a GORM-based database component with connection
// pooling, health checks, transactions and auto-migration.
//
// The driver is chosen by Config.Driver; "sqlite" is built in and other
// dialects can be supplied through Component.WithDriver.
//
//	comp := database.NewComponent(cfg, log).WithAutoMigrate(&gormstore.JobRecord{})
//	registry.Register(comp)
//	// after Start:
//	repo := gormstore.New(comp.DB())
package database
