// Command bot plays Zero Blast against a running server. It opens one
// WebSocket connection per bot, joins matchmaking and reveals random hidden
// cells until each bot has played the requested number of games. Tokens are
// minted locally from the server's shared secret, so it is meant for
// development and load checks only.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/zero-blast/game/service"
	"github.com/wricardo/zero-blast/game/session"
)

// Outcomes of one game from the bot's side
const (
	OutcomeWon       = service.ResultWon
	OutcomeLost      = service.ResultLost
	OutcomeAbandoned = "abandoned"
)

// Result records one finished game
type Result struct {
	Player    string
	SessionID string
	Slot      session.Slot
	Outcome   string
	Moves     int
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type request struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

// Bot is one scripted player
type Bot struct {
	Player string
	URL    string
	Token  string
	Delay  time.Duration

	rng *rand.Rand
	log zerolog.Logger
}

// NewBot creates a bot for player connecting to url
func NewBot(player, url, token string, seed uint64, logger zerolog.Logger) *Bot {
	return &Bot{
		Player: player,
		URL:    url,
		Token:  token,
		rng:    rand.New(rand.NewPCG(seed, seed+1)),
		log:    logger.With().Str("bot", player).Logger(),
	}
}

// MintToken signs a short-lived player token with secret
func MintToken(secret, player string, ttl time.Duration) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": player,
		"exp":    time.Now().Add(ttl).Unix(),
	}).SignedString([]byte(secret))
}

// Play connects, plays games back to back and returns one Result per game
func (b *Bot) Play(ctx context.Context, games int) ([]Result, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+b.Token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	results := make([]Result, 0, games)
	for len(results) < games {
		result, err := b.playOne(conn)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			return results, err
		}
		b.log.Debug().Str("session", result.SessionID).Str("outcome", result.Outcome).Int("moves", result.Moves).Msg("game over")
		results = append(results, result)
	}
	return results, nil
}

// playOne joins matchmaking and plays a single game to its end
func (b *Bot) playOne(conn *websocket.Conn) (Result, error) {
	result := Result{Player: b.Player}

	if err := conn.WriteJSON(request{Action: "join_matchmaking"}); err != nil {
		return result, err
	}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return result, err
		}

		switch msg.Event {
		case service.EventMatchFound:
			var found service.MatchFound
			if err := json.Unmarshal(msg.Data, &found); err != nil {
				return result, err
			}
			result.SessionID = found.SessionID
			result.Slot = found.MySlot

		case service.EventState:
			var view service.StateView
			if err := json.Unmarshal(msg.Data, &view); err != nil {
				return result, err
			}
			if !view.IsMyTurn || view.SessionID != result.SessionID {
				continue
			}
			index, ok := b.pick(view)
			if !ok {
				continue
			}
			if b.Delay > 0 {
				time.Sleep(b.Delay)
			}
			if err := conn.WriteJSON(request{Action: "move", Index: &index}); err != nil {
				return result, err
			}
			result.Moves++

		case service.EventGameOver:
			var over service.GameOver
			if err := json.Unmarshal(msg.Data, &over); err != nil {
				return result, err
			}
			result.Outcome = OutcomeLost
			if over.WinnerSlot == result.Slot {
				result.Outcome = OutcomeWon
			}
			return result, nil

		case service.EventOpponentDisconnected:
			result.Outcome = OutcomeAbandoned
			return result, nil

		case service.EventError:
			var e service.ErrorMessage
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				return result, err
			}
			b.log.Warn().Str("error", e.Message).Msg("server rejected request")
		}
	}
}

// pick chooses a hidden cell uniformly at random
func (b *Bot) pick(view service.StateView) (int, bool) {
	hidden := make([]int, 0, len(view.Board))
	for _, cell := range view.Board {
		if !cell.Revealed {
			hidden = append(hidden, cell.Index)
		}
	}
	if len(hidden) == 0 {
		return 0, false
	}
	return hidden[b.rng.IntN(len(hidden))], true
}

// Summary tallies results across bots
type Summary struct {
	Games     int
	Wins      map[session.Slot]int
	Abandoned int
	Moves     int
}

// Summarize counts each game once, from the winner's side
func Summarize(results []Result) Summary {
	s := Summary{Wins: map[session.Slot]int{}}
	sessions := map[string]bool{}
	for _, r := range results {
		s.Moves += r.Moves
		if !sessions[r.SessionID] {
			sessions[r.SessionID] = true
			s.Games++
		}
		switch r.Outcome {
		case OutcomeWon:
			s.Wins[r.Slot]++
		case OutcomeAbandoned:
			s.Abandoned++
		}
	}
	return s
}

// runBots plays games on every bot concurrently. A bot left without anyone
// to match against is stopped once every other bot is done.
func runBots(ctx context.Context, bots []*Bot, games int) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		all     []Result
		errs    []error
		playing = len(bots)
		wg      sync.WaitGroup
	)

	for _, bot := range bots {
		wg.Add(1)
		go func(bot *Bot) {
			defer wg.Done()
			results, err := bot.Play(ctx, games)

			mu.Lock()
			defer mu.Unlock()
			all = append(all, results...)
			if err != nil && !(errors.Is(err, context.Canceled) && playing == 1) {
				errs = append(errs, fmt.Errorf("%s: %w", bot.Player, err))
			}
			playing--
			if playing == 1 {
				cancel()
			}
		}(bot)
	}
	wg.Wait()

	return all, errors.Join(errs...)
}

func main() {
	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Play Zero Blast with random bots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "Game server WebSocket URL"},
			&cli.StringFlag{Name: "jwt-secret", Usage: "Secret shared with the server", Sources: cli.EnvVars("JWT_SECRET")},
			&cli.IntFlag{Name: "bots", Value: 2, Usage: "Number of bots (must be even)"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Games per bot"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay before each move"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := zerolog.InfoLevel
			if cmd.Bool("v") {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level).With().Timestamp().Logger()

			n := cmd.Int("bots")
			if n < 2 || n%2 != 0 {
				return fmt.Errorf("bots must be a positive even number, got %d", n)
			}
			secret := cmd.String("jwt-secret")
			if secret == "" {
				return errors.New("jwt-secret is required")
			}

			bots := make([]*Bot, n)
			for i := range bots {
				player := fmt.Sprintf("bot-%d", i+1)
				token, err := MintToken(secret, player, time.Hour)
				if err != nil {
					return err
				}
				bots[i] = NewBot(player, cmd.String("url"), token, uint64(i+1), logger)
				bots[i].Delay = cmd.Duration("delay")
			}

			logger.Info().Int("bots", n).Int("games", cmd.Int("games")).Str("url", cmd.String("url")).Msg("starting bots")
			start := time.Now()
			results, err := runBots(ctx, bots, cmd.Int("games"))

			s := Summarize(results)
			logger.Info().
				Int("games", s.Games).
				Int("slot1_wins", s.Wins[session.Slot1]).
				Int("slot2_wins", s.Wins[session.Slot2]).
				Int("abandoned", s.Abandoned).
				Int("moves", s.Moves).
				Dur("took", time.Since(start)).
				Msg("done")
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("bot exited")
	}
}
