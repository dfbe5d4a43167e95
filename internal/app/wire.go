package app

import (
	"database/sql"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/player"
	"github.com/desertthunder/imusic/internal/repositories"
	"github.com/desertthunder/imusic/internal/server"
	"github.com/desertthunder/imusic/internal/services"
	"github.com/desertthunder/imusic/internal/shared"
)

// Env carries what [Build] needs beyond the configuration.
type Env struct {
	DB     *sql.DB
	Sink   notify.Sink
	Busy   *shared.Busy
	Logger *log.Logger
	// OnAuthURL receives the Codeforces authorize URL before the browser opens.
	OnAuthURL func(string)
	// Device overrides the speaker-backed device.
	Device player.Device
}

// Build wires a production [App] from cfg: the HTTP service, SQLite-backed session and history, the
// loopback Codeforces authorizer, and the speaker.
func Build(cfg *shared.Config, env Env) *App {
	logger := env.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	api := services.NewAPIService(
		cfg.API.BaseURL,
		services.NewHTTPClient(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
		services.NewLimiter(cfg.API.RateLimit),
	)
	svc := services.NewIMusicService(api, shared.WithLogger(logger, "component", "api"))

	device := env.Device
	if device == nil {
		device = player.NewBeepDevice(player.BeepOptions{
			MaxBytes: int64(cfg.Player.MaxMediaMB) << 20,
			Volume:   cfg.Player.Volume,
			Logger:   shared.WithLogger(logger, "component", "player"),
		})
	}

	authorizer := server.NewCodeforcesAuthorizer(server.AuthorizerOptions{
		Config: cfg.OAuth.Codeforces,
		Addr:   cfg.Server.Addr(),
		Logger: shared.WithLogger(logger, "component", "callback"),
		OnURL:  env.OnAuthURL,
	})

	return New(Deps{
		Backend:       svc,
		Store:         repositories.NewSessionRepository(env.DB),
		Authorizer:    authorizer,
		Device:        device,
		History:       repositories.NewHistoryRepository(env.DB),
		Sink:          env.Sink,
		Busy:          env.Busy,
		BaseURL:       svc.BaseURL(),
		FavoritesList: cfg.API.FavoritesList,
		Volume:        cfg.Player.Volume,
		Logger:        logger,
	})
}
