// Package main provides furnisim, which mirrors a room's furni into the
// filtered item and stack lists, replays a room scenario or reads chat
// commands from stdin, and optionally serves the lists over HTTP and the
// commands over a Telnet console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/config"
	"github.com/cory-johannsen/roomfurni/internal/frontend/httpapi"
	"github.com/cory-johannsen/roomfurni/internal/frontend/telnet"
	"github.com/cory-johannsen/roomfurni/internal/game/command"
	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/furniview"
	"github.com/cory-johannsen/roomfurni/internal/game/gamedata"
	"github.com/cory-johannsen/roomfurni/internal/game/operation"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
	"github.com/cory-johannsen/roomfurni/internal/observability"
	"github.com/cory-johannsen/roomfurni/internal/scenario"
	"github.com/cory-johannsen/roomfurni/internal/scripting"
	"github.com/cory-johannsen/roomfurni/internal/server"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	scenarioPath := flag.String("scenario", "", "scenario YAML to replay; empty = read commands from stdin")
	linger := flag.Bool("linger", false, "keep serving after the scenario or stdin ends")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting furnisim",
		zap.String("client", cfg.Session.Client),
		zap.Int64("user_id", cfg.Session.UserID),
		zap.Bool("http", cfg.HTTP.Enabled),
	)

	// Game data
	var names furni.NameResolver = furni.NoNames
	if cfg.GameData.FurniPath != "" {
		dataStart := time.Now()
		data, err := gamedata.LoadFromFile(cfg.GameData.FurniPath)
		if err != nil {
			logger.Fatal("loading furni data", zap.Error(err))
		}
		names = data
		logger.Info("furni data loaded",
			zap.Int("types", data.Len()),
			zap.Duration("elapsed", time.Since(dataStart)),
		)
	} else {
		logger.Warn("no furni data configured; every furni is nameless")
	}

	var sc *scenario.Scenario
	if *scenarioPath != "" {
		sc, err = scenario.LoadFromFile(*scenarioPath)
		if err != nil {
			logger.Fatal("loading scenario", zap.Error(err))
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	// Room state and the furni lists
	roomMgr := room.NewManager(nil, observability.Component(logger, "room"))
	ui := uictx.NewDispatcher(observability.Component(logger, "ui"))
	vm := furniview.NewRoomFurni(ui, names, roomMgr, observability.Component(logger, "furni"),
		furniview.WithRecorder(metrics),
		furniview.WithFilterText(cfg.Furni.Filter),
		furniview.WithShowGrid(cfg.Furni.ShowGrid),
	)
	ui.Post(func() { vm.Attach(roomMgr) })

	// Commands
	ops := operation.NewManager(observability.Component(logger, "operation"), metrics)
	out := command.OutputFunc(func(text string) { fmt.Fprintln(os.Stdout, text) })
	session := command.Session{
		Origins:        cfg.Session.IsOrigins(),
		UserID:         cfg.Session.UserID,
		PickupInterval: cfg.Furni.Interval(cfg.Session),
	}
	registry := command.DefaultRegistry()
	newExecutor := func(out command.Output) *command.Executor {
		furniHandler := command.NewFurniHandler(roomMgr, names, ops, session, out, observability.Component(logger, "command"))
		return command.NewExecutor(registry, furniHandler, ops, out, observability.Component(logger, "command"))
	}
	executor := newExecutor(out)

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("ui", &server.FuncService{
		StartFn: ui.Run,
		StopFn:  ui.Stop,
	})

	// Scripts
	if cfg.Scripting.Dir != "" {
		scriptMgr := scripting.NewManager(observability.Component(logger, "scripting"))
		if err := scriptMgr.Load(cfg.Scripting.Dir, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer scriptMgr.Close()
		scripting.Bind(scriptMgr, roomMgr)

		scriptUI := uictx.NewDispatcher(observability.Component(logger, "scripts"))
		hooks := scripting.NewHooks(scriptMgr, scriptUI, names, observability.Component(logger, "scripting"))
		hooks.Attach(roomMgr)
		defer hooks.Detach()

		lifecycle.Add("scripts", &server.FuncService{
			StartFn: scriptUI.Run,
			StopFn:  scriptUI.Stop,
		})
		logger.Info("scripts loaded", zap.String("dir", cfg.Scripting.Dir))
	}

	lifecycle.Add("operations", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		StopFn: func() {
			if n := ops.CancelAll(); n > 0 {
				logger.Info("cancelled running operations", zap.Int("count", n))
			}
			ops.Wait()
		},
	})

	if cfg.HTTP.Enabled {
		api := httpapi.NewServer(vm, ui, executor, appCtx, reg, observability.Component(logger, "http"))
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           api.Router(),
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		}
		lifecycle.Add("http", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				lis, err := net.Listen("tcp", cfg.HTTP.Addr())
				if err != nil {
					return fmt.Errorf("listening on %s: %w", cfg.HTTP.Addr(), err)
				}
				logger.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
				if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("HTTP shutdown", zap.Error(err))
				}
			},
		})
	}

	if cfg.Console.Enabled {
		consoleSessions := telnet.NewCommandSession(func(reply func(string)) telnet.CommandRunner {
			return newExecutor(command.OutputFunc(reply))
		}, cfg.Console.Color, observability.Component(logger, "console"))
		acceptor := telnet.NewAcceptor(cfg.Console, consoleSessions, observability.Component(logger, "console"))
		lifecycle.Add("console", &server.FuncService{
			StartFn: acceptor.Serve,
			StopFn:  acceptor.Stop,
		})
	}

	// Driver
	addDriver := lifecycle.AddPrimary
	if *linger {
		addDriver = lifecycle.Add
	}
	if sc != nil {
		runner := scenario.NewRunner(roomMgr, vm, ui, executor, ops, func(r scenario.Report) {
			printReport(os.Stdout, r)
		}, observability.Component(logger, "scenario"))
		addDriver("scenario", &server.FuncService{
			StartFn: func(ctx context.Context) error { return runner.Run(ctx, sc) },
		})
	} else {
		addDriver("stdin", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				return runConsole(ctx, os.Stdin, executor, ops, observability.Component(logger, "stdin"))
			},
		})
	}

	logger.Info("furnisim initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(appCtx); err != nil {
		logger.Error("furnisim stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

func printReport(w io.Writer, r scenario.Report) {
	fmt.Fprintf(w, "--- report (step %d) ---\n", r.Step)
	fmt.Fprintf(w, "in room: %t  filter: %q  empty: %t\n", r.InRoom, r.Filter, r.IsEmpty)
	if r.EmptyStatus != "" {
		fmt.Fprintf(w, "status: %s\n", r.EmptyStatus)
	}
	if len(r.Items) > 0 {
		fmt.Fprintf(w, "items:  %s\n", strings.Join(r.Items, ", "))
	}
	if len(r.Stacks) > 0 {
		fmt.Fprintf(w, "stacks: %s\n", strings.Join(r.Stacks, ", "))
	}
	fmt.Fprintf(w, "hide enabled: %t  show enabled: %t\n", r.HideEnabled, r.ShowEnabled)
}
