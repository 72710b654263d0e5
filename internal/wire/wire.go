// Package wire provides dependency injection for the tilter application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"os"
	"sync"

	"github.com/example/tilter/internal/adapters/registry"
	"github.com/example/tilter/internal/adapters/sqlite"
	"github.com/example/tilter/internal/app"
	"github.com/example/tilter/internal/config"
	"github.com/example/tilter/internal/db"
	"github.com/example/tilter/internal/ports/primary"
	"github.com/example/tilter/internal/tiltschema"
)

var (
	cfg               *config.Config
	schema            *tiltschema.Schema
	taskService       primary.TaskService
	annotationService primary.AnnotationService
	tiltService       primary.TiltService
	once              sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Schema returns the parsed annotation schema.
func Schema() *tiltschema.Schema {
	once.Do(initServices)
	return schema
}

// TaskService returns the singleton TaskService instance.
func TaskService() primary.TaskService {
	once.Do(initServices)
	return taskService
}

// AnnotationService returns the singleton AnnotationService instance.
func AnnotationService() primary.AnnotationService {
	once.Do(initServices)
	return annotationService
}

// TiltService returns the singleton TiltService instance.
func TiltService() primary.TiltService {
	once.Do(initServices)
	return tiltService
}

// Logger returns the application logger.
func Logger() *log.Logger {
	return log.New(os.Stdout, "[TILTER] ", log.LstdFlags)
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.LoadConfig(".")
	if err != nil {
		log.Fatalf("failed to load config: %v\nHint: run 'tilter init --schema <path>' first", err)
	}

	schema, err = tiltschema.Load(cfg.SchemaPath)
	if err != nil {
		log.Fatalf("failed to load schema: %v", err)
	}
	if err := config.ValidateDefaults(schema, cfg.Defaults); err != nil {
		log.Fatalf("invalid tilt_defaults in config: %v", err)
	}

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repository adapters (secondary ports)
	taskRepo := sqlite.NewTaskRepository(database)
	annoRepo := sqlite.NewAnnotationRepository(database)
	hiddenRepo := sqlite.NewHiddenAnnotationRepository(database)
	linkedRepo := sqlite.NewLinkedAnnotationRepository(database)
	metaRepo := sqlite.NewMetaRepository(database)
	registryClient := registry.NewClient(cfg.RegistryURL, 0)

	defaults := make([]app.DefaultRule, len(cfg.Defaults))
	for i, rule := range cfg.Defaults {
		defaults[i] = app.DefaultRule{Path: rule.Path, Value: rule.Value}
	}

	// Create services (primary ports implementation)
	expander := app.NewSubtaskExpander(taskRepo, annoRepo, hiddenRepo, linkedRepo, schema)
	taskService = app.NewTaskService(taskRepo, annoRepo, hiddenRepo, linkedRepo, metaRepo, schema, cfg.Language)
	annotationService = app.NewAnnotationService(taskRepo, annoRepo, linkedRepo, taskService, expander)
	tiltService = app.NewTiltService(taskRepo, annoRepo, hiddenRepo, linkedRepo, metaRepo, registryClient, schema, defaults)
}
