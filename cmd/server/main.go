package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	webAdapter "github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/adapters/web"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/config"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/db"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	stock := core.NewStockService(pool)
	accounts := core.NewAccountService(pool)
	partners := core.NewPartnerService(pool)
	engine := core.NewDocumentEngine(pool, stock, accounts, partners, cfg.RetailPartnerID, cfg.GenericSupplierID)
	orders := core.NewOrderService(pool, engine, partners)

	handler := webAdapter.NewHandler(engine, stock, accounts, partners, orders, cfg.AllowedOrigins)

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
