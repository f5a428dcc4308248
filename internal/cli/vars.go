package cli

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valter-silva-au/phaseops/internal/broadcast"
	"github.com/valter-silva-au/phaseops/internal/core"
	"github.com/valter-silva-au/phaseops/internal/query"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath     string
	Config       models.Config
	Logger       *slog.Logger
	Clock        clockwork.Clock
	Plan         *core.PlanRepository
	Orchestrator *core.Orchestrator
	Queries      *query.Service
	Broadcaster  *broadcast.Broadcaster
	Registry     prometheus.Gatherer
)

// logger returns Logger, or a logger that discards everything before app
// initialization.
func logger() *slog.Logger {
	if Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return Logger
}
