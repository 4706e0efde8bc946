// Command watchtoken mints a spectator token for the bot's watch server.
//
// Usage:
//
//	go run ./cmd/watchtoken/ -spectator alice -match <id>
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/cellwar/internal/auth"
	"github.com/freeeve/cellwar/internal/config"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := config.Load()

	spectator := flag.String("spectator", "spectator", "Spectator name recorded in the token")
	matchID := flag.String("match", "", "Restrict the token to one match (empty = any match)")
	expiry := flag.Duration("expiry", auth.DefaultExpiry, "Token lifetime")
	secret := flag.String("secret", cfg.WatchSecret, "Signing secret (or use WATCH_SECRET env)")
	flag.Parse()

	token, err := auth.NewJWTManager(*secret).WithExpiry(*expiry).GenerateSpectatorToken(*spectator, *matchID)
	if err != nil {
		log.Fatal().Err(err).Msg("Token generation failed")
	}
	log.Info().
		Str("spectator", *spectator).
		Str("matchId", *matchID).
		Time("expires", time.Now().Add(*expiry)).
		Msg("Token minted")
	fmt.Println(token)
}
