package http

import (
	"github.com/nats-io/nats.go"

	"github.com/fieldmark/fieldmark/internal/adapters/postgres"
	"github.com/fieldmark/fieldmark/internal/adapters/valkey"
	"github.com/fieldmark/fieldmark/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Fields   *usecases.FieldService
	Ingest   *usecases.IngestService
	Accuracy *usecases.AccuracyService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
