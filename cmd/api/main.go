package main

import (
	"net/http"
	"os"

	"fleet-locator/internal/config"
	"fleet-locator/internal/gateway/geocode"
	"fleet-locator/internal/gateway/traffilog"
	"fleet-locator/internal/handler"
	"fleet-locator/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "fleet-locator").Logger()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Initialize layers
	tokens := traffilog.NewTokenCache(cfg.TokenTTL)
	fleet := traffilog.NewClient(httpClient, tokens, traffilog.Config{
		LoginURL:               cfg.LoginURL,
		DataURL:                cfg.DataURL,
		Username:               cfg.APIUsername,
		Password:               cfg.APIPassword,
		RetryWithoutTimeFilter: cfg.RelaxedRetry,
	})

	google := geocode.NewGoogleClient(httpClient, cfg.GoogleGeocodeURL, cfg.GeocodeKey)
	nominatim := geocode.NewNominatimClient(httpClient, cfg.NominatimURL)
	geocoder := geocode.NewChain(logger, google, nominatim)

	lookupService := service.NewLookupService(fleet, fleet, geocoder)
	locationHandler := handler.NewLocationHandler(lookupService)

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "fleet-locator",
		})
	})

	r.POST("/get-location", locationHandler.GetLocation)

	if err := r.Run(cfg.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
