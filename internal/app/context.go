package app

import (
	"database/sql"

	"renoline/internal/config"
	"renoline/internal/db"
	"renoline/internal/engine"
	"renoline/internal/migrate"
	"renoline/internal/repo"
)

// Env bundles everything a command or server needs: an open database, the
// document store over it, the program catalog, and the engine wired to both.
type Env struct {
	DB     *sql.DB
	Store  repo.Store
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace: ensures the dot directory, opens and migrates
// the database, loads the catalog (falling back to defaults when renoline.yml
// is absent) and builds the engine.
func Open(workspace string) (*Env, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	store := repo.Store{DB: conn}
	return &Env{
		DB:     conn,
		Store:  store,
		Config: cfg,
		Engine: engine.New(store, cfg),
	}, nil
}

func (e *Env) Close() error {
	if e == nil || e.DB == nil {
		return nil
	}
	return e.DB.Close()
}
