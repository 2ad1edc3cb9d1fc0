package arise

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arisefit/arise/arise/database"
	"github.com/arisefit/arise/arise/database/repositories"
	"github.com/arisefit/arise/arise/progression"
	"github.com/arisefit/arise/arise/services"
)

func New(cfg Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// App wires the progression engine together: database, repositories, the
// static catalogs and the services built on top of them.
type App struct {
	Cfg     Config
	Version string
	Commit  string
	Loc     *time.Location

	DB              *database.DB
	ProgressionRepo repositories.ProgressionRepository
	QuestRepo       repositories.QuestRepository
	LeaderboardRepo repositories.LeaderboardRepository

	Catalog *progression.QuestCatalog
	Ranks   *progression.RankTable

	Progression  *services.ProgressionService
	Leaderboards *services.LeaderboardService
	Search       *services.QuestSearchService
}

// Setup builds the engine's runtime dependencies. The database must already
// be connected and seeded.
func (a *App) Setup(ctx context.Context) error {
	loc := time.UTC
	if a.Cfg.Engine.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(a.Cfg.Engine.Timezone)
		if err != nil {
			return fmt.Errorf("invalid engine timezone %q: %w", a.Cfg.Engine.Timezone, err)
		}
	}
	a.Loc = loc

	a.ProgressionRepo = repositories.NewProgressionRepository(a.DB.BunDB())
	a.QuestRepo = repositories.NewQuestRepository(a.DB.BunDB())
	a.LeaderboardRepo = repositories.NewLeaderboardRepository(a.DB.BunDB())

	templates, err := a.QuestRepo.GetAllTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load quest templates: %w", err)
	}
	if len(templates) == 0 {
		templates = database.SeedTemplates()
	}

	catalog, err := progression.NewQuestCatalog(templates, database.DefaultTriggers())
	if err != nil {
		return fmt.Errorf("invalid quest catalog: %w", err)
	}
	a.Catalog = catalog
	a.Ranks = progression.DefaultRankTable()

	rng := progression.NewTimeRand()
	if a.Cfg.Engine.SelectorSeed != 0 {
		rng = progression.NewSeededRand(a.Cfg.Engine.SelectorSeed)
	}

	a.Leaderboards = services.NewLeaderboardService(a.LeaderboardRepo, a.ProgressionRepo, a.QuestRepo)
	a.Progression = services.NewProgressionService(
		a.ProgressionRepo,
		a.QuestRepo,
		a.Leaderboards,
		a.Catalog,
		a.Ranks,
		rng,
	)
	a.Search = services.NewQuestSearchService(a.Catalog)

	slog.Info("Engine initialized",
		slog.Int("templates", len(templates)),
		slog.String("timezone", loc.String()))
	return nil
}

// Now returns the current time in the engine's configured timezone. All quest
// and streak boundaries are computed in this location.
func (a *App) Now() time.Time {
	return time.Now().In(a.Loc)
}
