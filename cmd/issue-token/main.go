// Command issue-token mints a bearer token for a farm tablet or operator,
// signed with the server's configured jwt_secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/stanstork/agrotrack-api/internal/authz"
	"github.com/stanstork/agrotrack-api/internal/config"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	subject := flag.String("subject", "", "token subject, e.g. a device name")
	property := flag.String("property", "", "optional farm property id")
	ttl := flag.Duration("ttl", authz.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	token, err := authz.IssueToken(cfg.JWTSecret, *subject, *property, *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to issue token")
	}
	logger.Info().Str("subject", *subject).Time("expires_at", time.Now().Add(*ttl)).Msg("Token issued")
	fmt.Println(token)
}
