// Package app wires the application together: configuration, tracing,
// database pool, genkit, knowledge store, conversation log, chat pipeline,
// and ingester, with ordered cleanup on Close.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/georgiosbirmpakos/derbychat/internal/chat"
	"github.com/georgiosbirmpakos/derbychat/internal/config"
	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/ingest"
	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge    *knowledge.Store
	Conversation *conversation.Log
	Pipeline     *chat.Pipeline
	Ingester     *ingest.Ingester
	Splitter     *ingest.Splitter

	otelCleanup func()
	dbCleanup   func()
}

// Close releases resources in reverse initialization order.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}

	return nil
}
