package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/twilightsync/broadcast"
	"github.com/wfunc/twilightsync/client"
	"github.com/wfunc/twilightsync/config"
	"github.com/wfunc/twilightsync/console"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/monitor"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/persistence"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/rpc"
	"github.com/wfunc/twilightsync/server"
	"github.com/wfunc/twilightsync/services"
	"github.com/wfunc/twilightsync/session"
	"github.com/wfunc/twilightsync/timer"
)

func main() {
	configPath := flag.String("config", ".", "directory holding config.yaml")
	headless := flag.Bool("headless", false, "do not read commands from stdin")
	flag.Parse()

	logger.Init("info")

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s database: %v", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infof("Game history stored in %s database.", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presenters := broadcast.NewFanout()
	presenters.Add("log", broadcast.NewLogging(nil))
	if !*headless {
		presenters.Add("console", console.NewPresenter(os.Stdout))
	}

	mon := monitor.NewMonitor("twilight")
	sessions := session.NewManager()
	timers := timer.NewTimerManager()
	defer timers.Stop()

	c := client.New(client.Deps{
		Channel:   network.NewChannel(network.WebsocketDialer(cfg.Server.WSURL), cfg.Server.HandshakeTimeout, cfg.Server.Heartbeat),
		Lister:    room.NewHTTPLister(cfg.Server.HTTPBaseURL, nil),
		Presenter: presenters,
		Monitor:   mon,
		History:   services.NewHistoryService(db),
		Timers:    timers,
		Sessions:  sessions,
	}, client.Options{
		AckTimeout:      cfg.Session.AckTimeout,
		SweepInterval:   cfg.Session.SweepInterval,
		RefreshInterval: cfg.Session.RoomRefreshInterval,
	})

	g, ctx := errgroup.WithContext(ctx)

	logger.Log.Infof("Connecting to %s", cfg.Server.WSURL)
	g.Go(func() error {
		return c.Run(ctx)
	})

	if addr := cfg.Control.HTTPAddress; addr != "" {
		control := server.NewControlServer(addr, c, mon.Handler()).WithSessions(sessions)
		g.Go(control.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return control.Shutdown(shutdownCtx)
		})
	}

	if addr := cfg.Control.RPCAddress; addr != "" {
		rpcServer, err := rpc.NewServer(addr)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		if err := rpcServer.Register(rpc.NewSessionService(c)); err != nil {
			logger.Log.Fatalf("Failed to register RPC service: %v", err)
		}
		go rpcServer.Start()
		g.Go(func() error {
			<-ctx.Done()
			rpcServer.Stop()
			return nil
		})
	}

	if !*headless {
		shell := console.NewShell(c, os.Stdout)
		shell.DefaultName = cfg.Session.PlayerName
		g.Go(func() error {
			err := shell.Run(ctx, os.Stdin)
			// quit or end of input stops the client
			stop()
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Errorf("Client stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Log.Info("Client stopped.")
}
