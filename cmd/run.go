package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/apbridge-go/internal/cache"
	"github.com/dayuer/apbridge-go/internal/config"
	"github.com/dayuer/apbridge-go/internal/localpool"
	"github.com/dayuer/apbridge-go/internal/protocol"
	"github.com/dayuer/apbridge-go/internal/script"
	"github.com/dayuer/apbridge-go/internal/session"
	"github.com/dayuer/apbridge-go/internal/tick"
	"github.com/dayuer/apbridge-go/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to a room and run the host loop",
	RunE:  runRun,
}

var (
	runConfigPath string
	runURL        string
	runGame       string
	runName       string
	runPassword   string
	runTick       time.Duration
	runScript     string
)

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runConfigPath, "config", "c", "", "Config file (default ~/.apbridge/config.json)")
	f.StringVarP(&runURL, "url", "u", "", "Server address, e.g. archipelago.gg:38281")
	f.StringVarP(&runGame, "game", "g", "", "Game name")
	f.StringVarP(&runName, "name", "n", "", "Slot name")
	f.StringVar(&runPassword, "password", "", "Room password")
	f.DurationVar(&runTick, "tick", 0, "Host loop interval")
	f.StringVarP(&runScript, "script", "s", "", "YAML timeline to play after connecting")
	rootCmd.AddCommand(runCmd)
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.Server.URL = runURL
	}
	if f.Changed("game") {
		cfg.Slot.Game = runGame
	}
	if f.Changed("name") {
		cfg.Slot.Name = runName
	}
	if f.Changed("password") {
		cfg.Slot.Password = runPassword
	}
	if f.Changed("tick") {
		cfg.Bridge.TickInterval = config.Duration(runTick)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(runConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, &cfg)
	if cfg.Slot.Game == "" || cfg.Slot.Name == "" {
		return fmt.Errorf("game and slot name are required")
	}

	var timeline *script.Script
	if runScript != "" {
		if timeline, err = script.Load(runScript); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	dpCache := cache.New(ctx, cache.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL.Std(),
	})
	defer dpCache.Close()
	if dpCache.Available() {
		log.Printf("[Run] ✅ Data package cache: %s", cfg.Redis.URL)
	}

	dialer := transport.NewDialer(
		transport.WithCache(dpCache),
		transport.WithHandshakeTimeout(cfg.Server.HandshakeTimeout.Std()),
	)
	factory := session.NewFactory(dialer,
		session.WithCapacity(cfg.Bridge.Capacity),
		session.WithClientUUID(cfg.Slot.ClientUUID),
	)

	pool := localpool.New()
	defer pool.Close()
	driver, err := tick.NewDriver(pool)
	if err != nil {
		return err
	}

	fmt.Printf("🎮 Connecting to %s as %s (%s)...\n", cfg.Server.URL, cfg.Slot.Name, cfg.Slot.Game)

	// Only touched from the host loop.
	var sess *session.Session
	factory.CreateAsync(ctx, pool, cfg.Server.URL, func(s *session.Session, err error) {
		if err != nil {
			log.Printf("[Run] ❌ Connect failed: %v", err)
			cancel()
			return
		}
		sess = s
		room := s.RoomInfo()
		log.Printf("[Run] ✅ Room %s ready, %d games in data package", room.SeedName, len(s.DataPackage()))

		var password *string
		if cfg.Slot.Password != "" {
			password = &cfg.Slot.Password
		}
		if !s.ConnectToMultiworld(cfg.Slot.Game, cfg.Slot.Name, password, cfg.Slot.ItemsHandling, cfg.Slot.Tags) {
			log.Printf("[Run] ❌ Could not queue Connect")
			cancel()
			return
		}
		if timeline != nil {
			pool.Schedule(script.NewRunner(timeline, s))
		}
	})

	driver.Run(ctx, cfg.Bridge.TickInterval.Std(), func() {
		if sess == nil {
			return
		}
		for _, ev := range sess.Drain() {
			logEvent(ev)
		}
		if sess.Closed() {
			log.Printf("[Run] ⚠️ Connection to %s closed", sess.URL())
			cancel()
		}
	})

	if sess != nil {
		sess.Close()
	}
	st := driver.Stats()
	fmt.Printf("Stopped after %d ticks (%d faults, %d tasks left)\n", st.Ticks, st.Faults, st.Scheduled)
	return nil
}

func logEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.Connected:
		log.Printf("[Run] ✅ Connected as slot %d (team %d), %d locations missing", e.Slot, e.Team, len(e.MissingLocations))
	case protocol.ConnectionRefused:
		log.Printf("[Run] ❌ Connection refused: %v", e.Errors)
	case protocol.ReceivedItems:
		log.Printf("[Run] Received %d items from index %d", len(e.Items), e.Index)
	case protocol.Print:
		log.Printf("[Run] %s", e.Text)
	case protocol.PrintJSON:
		log.Printf("[Run] %s", e.Text())
	case protocol.InvalidPacket:
		log.Printf("[Run] ⚠️ Invalid packet (%s): %s", e.OriginalCmd, e.Text)
	default:
		log.Printf("[Run] %s", ev.Cmd())
	}
}
