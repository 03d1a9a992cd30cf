// Command ssync drives the sliding sync engine against a real homeserver
// from the command line, persisting its SyncState to a local JSON file
// between runs so it can resume an existing session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	slidingsync "github.com/matrix-org/sliding-sync-client"
	"github.com/matrix-org/sliding-sync-client/sync3"
)

func main() {
	app := &cli.App{
		Name:  "ssync",
		Usage: "drive a Matrix simplified sliding sync session from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "homeserver",
				Usage:    "homeserver base URL, e.g. https://matrix.example.org",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "state-file",
				Usage: "path to a JSON file used to persist SyncState between runs",
				Value: "ssync-state.json",
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "the user id owning this session, enabling left-room classification",
			},
		},
		Action: run,
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	accessToken := os.Getenv("SSYNC_ACCESS_TOKEN")
	if accessToken == "" {
		return cli.Exit("SSYNC_ACCESS_TOKEN must be set in the environment", 1)
	}

	homeserver := c.String("homeserver")
	stateFile := c.String("state-file")
	userID := c.String("user-id")

	engine := slidingsync.NewEngine(
		slidingsync.NewHTTPTransport(nil),
		slidingsync.DefaultConfig(uuid.NewString()),
	)
	engine.AddList("rooms", sync3.ListConfig{
		Mode:          sync3.ListModeGrowing,
		BatchSize:     100,
		TimelineLimit: 10,
		RequiredState: [][2]string{{"m.room.name", ""}, {"m.room.member", ""}},
	})
	engine.EnableAllExtensions()

	if state, err := loadState(stateFile); err == nil {
		engine.RestoreState(state)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("loading state file %s: %w", stateFile, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return saveState(stateFile, engine.ExportState())
		default:
		}

		update, err := engine.SyncOnce(ctx, homeserver, accessToken, userID, nil)
		if err != nil {
			if ctx.Err() != nil {
				return saveState(stateFile, engine.ExportState())
			}
			var cursorExpired *slidingsync.CursorExpiredError
			var transportFailure *slidingsync.TransportFailureError
			var malformed *slidingsync.MalformedResponseError
			switch {
			case errors.As(err, &cursorExpired):
				fmt.Fprintln(os.Stderr, err, "- retrying immediately")
				continue
			case errors.As(err, &transportFailure):
				fmt.Fprintln(os.Stderr, err, "- pausing before retry")
				time.Sleep(2 * time.Second)
				continue
			case errors.As(err, &malformed):
				return fmt.Errorf("malformed response, treating as fatal: %w", err)
			default:
				return err
			}
		}

		fmt.Printf("tick: pos=%s joined=%d invited=%d left=%d fully_synced=%v\n",
			update.Pos, len(update.Rooms.Joined), len(update.Rooms.Invited), len(update.Rooms.Left), update.IsFullySynced)

		if err := saveState(stateFile, engine.ExportState()); err != nil {
			fmt.Fprintln(os.Stderr, "saving state:", err)
		}
	}
}

func loadState(path string) (slidingsync.SyncState, error) {
	var state slidingsync.SyncState
	b, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(b, &state); err != nil {
		return state, err
	}
	return state, nil
}

func saveState(path string, state slidingsync.SyncState) error {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
