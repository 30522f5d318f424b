package main // Entry point package

import (
	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/clinicops/patient-admin/internal/auth"
	"github.com/clinicops/patient-admin/internal/captcha"
	"github.com/clinicops/patient-admin/internal/config"
	"github.com/clinicops/patient-admin/internal/database"
	"github.com/clinicops/patient-admin/internal/handler"
	"github.com/clinicops/patient-admin/internal/logger"
	"github.com/clinicops/patient-admin/internal/mail"
	"github.com/clinicops/patient-admin/internal/middleware"
	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/queue"
	"github.com/clinicops/patient-admin/internal/repository"
	"github.com/clinicops/patient-admin/internal/router"
	"github.com/clinicops/patient-admin/internal/session"
)

func main() {
	_ = godotenv.Load() // absent .env is fine; the environment may be set directly
	cfg := config.Load()
	log := logger.New("server")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migrate failed")
	}

	// Session gateway: Redis when reachable, process memory otherwise.
	rdb := config.NewRedisClient()
	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Warn().Msg("redis unavailable; using in-memory sessions and no rate limiting")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	mailer, err := mail.NewSMTPMailer(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.MailTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("smtp client setup failed")
	}

	students := repository.NewAccountRepo(db, model.RealmStudent)
	staff := repository.NewAccountRepo(db, model.RealmStaff)
	patients := repository.NewPatientRepo(db)

	svc := auth.NewService(auth.Deps{
		Stores: map[model.Realm]auth.AccountStore{
			model.RealmStudent: students,
			model.RealmStaff:   staff,
		},
		Sessions:     sessions,
		Mailer:       mailer,
		Log:          log,
		BcryptCost:   cfg.BcryptCost,
		MailDomain:   cfg.MailDomain,
		ResetBaseURL: cfg.ResetBaseURL,
		MailTimeout:  cfg.MailTimeout,
	})

	go queue.StartAuditConsumer(logger.New("audit-consumer"))

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, svc, captcha.NewIssuer(sessions)),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAdmin(e, sessions,
		handler.NewPatientHandler(patients),
		handler.NewAccountHandler(cfg, students),
		handler.NewAccountHandler(cfg, staff))

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
