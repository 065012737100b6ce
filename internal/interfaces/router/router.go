package router

import (
	listsvc "dorm-exchange-backend/internal/application/listings"
	matchsvc "dorm-exchange-backend/internal/application/matches"
	"dorm-exchange-backend/internal/application/matching"
	roomsvc "dorm-exchange-backend/internal/application/rooms"
	txsvc "dorm-exchange-backend/internal/application/transactions"
	usersvc "dorm-exchange-backend/internal/application/users"
	"dorm-exchange-backend/internal/config"
	"dorm-exchange-backend/internal/infrastructure/database"
	authhandler "dorm-exchange-backend/internal/interfaces/handlers/auth"
	healthhandler "dorm-exchange-backend/internal/interfaces/handlers/health"
	listhandler "dorm-exchange-backend/internal/interfaces/handlers/listings"
	matchhandler "dorm-exchange-backend/internal/interfaces/handlers/matches"
	roomhandler "dorm-exchange-backend/internal/interfaces/handlers/rooms"
	txhandler "dorm-exchange-backend/internal/interfaces/handlers/transactions"
	userhandler "dorm-exchange-backend/internal/interfaces/handlers/users"
	"dorm-exchange-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires middleware, services and routes. The caller owns the
// returned DB and Redis handles.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		hh.DB = &gormDBPinger{db: db}
	}

	if db != nil && rdb != nil {
		RegisterRoutes(app, db, rdb, cfg, sessionCfg)
	}

	return app, db, rdb, nil
}

// RegisterRoutes mounts the /api/v1 surface. Split out so tests can mount
// the same routes on an app with in-memory backends.
func RegisterRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config, sessionCfg middleware.SessionConfig) {
	ah := &authhandler.Handlers{DB: db, Rdb: rdb, Config: sessionCfg}
	ag := app.Group("/api/v1/auth")
	ag.Post("/login", ah.Login)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)

	us := &usersvc.Service{DB: db}
	uh := &userhandler.Handlers{Service: us}
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Post("/register", middleware.RequireAdmin(), uh.Register)
	ug.Get("/me/profile", uh.MyProfile)
	ug.Put("/me/profile", uh.UpdateMyProfile)
	ug.Get("/:uid/public", uh.PublicProfile)

	rs := &roomsvc.Service{DB: db}
	rh := &roomhandler.Handlers{Service: rs}
	rg := app.Group("/api/v1/rooms", middleware.RequireAuth())
	rg.Get("/", rh.List)
	rg.Get("/:room_id", rh.Get)
	rg.Post("/", middleware.RequireAdmin(), rh.Create)
	rg.Put("/:room_id", middleware.RequireAdmin(), rh.Update)
	rg.Post("/:room_id/assign-occupant", middleware.RequireAdmin(), rh.AssignOccupant)

	ls := &listsvc.Service{DB: db, ListingExpiry: cfg.ListingExpiry}
	ms := &matchsvc.Service{DB: db, MatchExpiry: cfg.MatchExpiry}
	engine := &matching.Engine{DB: db}
	lh := &listhandler.Handlers{Service: ls, Matches: ms, Matcher: engine}
	lg := app.Group("/api/v1/listings", middleware.RequireAuth())
	lg.Post("/lease-transfer", lh.CreateLeaseTransfer)
	lg.Post("/swap-request", lh.CreateSwapRequest)
	lg.Get("/", lh.Browse)
	lg.Get("/my", lh.MyListings)
	lg.Get("/compatible-transfers", lh.CompatibleTransfers)
	lg.Get("/:listing_id", lh.Get)
	lg.Put("/:listing_id", lh.Update)
	lg.Post("/:listing_id/cancel", lh.Cancel)
	lg.Get("/:listing_id/compatible-swaps", lh.CompatibleSwaps)
	lg.Get("/:listing_id/bids", lh.Bids)
	lg.Post("/:listing_id/claim", lh.Claim)

	mh := &matchhandler.Handlers{Service: ms}
	mg := app.Group("/api/v1/matches", middleware.RequireAuth())
	mg.Get("/my", mh.MyMatches)
	mg.Get("/:match_id", mh.Get)
	mg.Post("/:match_id/accept", mh.Accept)
	mg.Post("/:match_id/reject", mh.Reject)
	mg.Post("/:match_id/cancel", mh.Cancel)
	mg.Get("/:match_id/contact", mh.Contact)

	ts := &txsvc.Service{DB: db, ConfirmBothParties: cfg.ConfirmBothParties}
	th := &txhandler.Handlers{Service: ts}
	tg := app.Group("/api/v1/transactions", middleware.RequireAuth())
	tg.Get("/my", th.MyTransactions)
	tg.Get("/:tx_id", th.Get)
	tg.Post("/:tx_id/confirm", th.Confirm)
	tg.Post("/:tx_id/cancel", th.Cancel)
}
