// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command connd is the connection manager daemon: it owns every network
// interface's IP configuration, arbitrates which service is the system
// default, and exposes that state on the system bus.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/connd/internal/agent"
	"grimm.is/connd/internal/brand"
	"grimm.is/connd/internal/bus"
	"grimm.is/connd/internal/captiveportal"
	"grimm.is/connd/internal/clock"
	"grimm.is/connd/internal/config"
	"grimm.is/connd/internal/eventloop"
	"grimm.is/connd/internal/logging"
	"grimm.is/connd/internal/manager"
	"grimm.is/connd/internal/routing"
	"grimm.is/connd/internal/service"
	"grimm.is/connd/internal/tethering"
	"grimm.is/connd/internal/tunnel6to4"
)

func main() {
	configPath := flag.String("config", "", "path to the daemon's HCL configuration file")
	sessionBus := flag.Bool("session-bus", false, "connect to the session bus instead of the system bus (development only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Default().Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	log := logging.New(loggingConfigFrom(cfg))
	logging.SetDefault(log)
	log.Info("starting", "name", brand.Name, "config", *configPath)

	conn, err := bus.Shared(*sessionBus || cfg.SessionMode)
	if err != nil {
		log.Error("failed to claim bus name", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	loop := eventloop.New(nil)

	services := service.NewCollection()
	agents := agent.NewRegistry()
	resolver := routing.NewResolver()
	integrator := routing.NewIntegrator(resolver)

	var tether *tethering.Controller
	if cfg.Tethering != nil && cfg.Tethering.Enabled {
		tether = tethering.New()
	}

	if cfg.WISPr != nil {
		if cfg.WISPr.StatusURLIPv4 != "" {
			captiveportal.StatusURLv4 = cfg.WISPr.StatusURLIPv4
		}
		if cfg.WISPr.StatusURLIPv6 != "" {
			captiveportal.StatusURLv6 = cfg.WISPr.StatusURLIPv6
		}
	}

	mgr := manager.New(services, agents, tether, integrator)
	mgr.SetOfflineMode(cfg.OfflineMode)
	mgr.SetSessionMode(cfg.SessionMode)

	if cfg.SixToFour != nil && cfg.SixToFour.Enabled {
		mgr.SetTunnelController(tunnel6to4.New())
	}

	adapter := manager.NewBusAdapter(mgr, conn)
	if err := conn.Export(adapter, "/", "net.connd.Manager"); err != nil {
		log.Error("failed to export manager object", "error", err)
		os.Exit(1)
	}

	if tether != nil {
		loop.AddTicker(30*time.Second, func() eventloop.Result {
			reconcileTethering(tether, integrator, log)
			return eventloop.Continue
		})
	}

	if cfg.NTP != nil && cfg.NTP.Enabled {
		startNTPSync(loop, cfg.NTP.Servers, log)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		log.Info("received signal, shutting down", "signal", sig.String())
		loop.Stop()
	}()

	loop.Run()
}

func loggingConfigFrom(cfg *config.Config) logging.Config {
	lc := logging.DefaultConfig()
	if cfg.Syslog != nil {
		lc.Syslog = logging.SyslogConfig{
			Enabled:  cfg.Syslog.Enabled,
			Host:     cfg.Syslog.Host,
			Port:     cfg.Syslog.Port,
			Protocol: cfg.Syslog.Protocol,
			Tag:      cfg.Syslog.Tag,
		}
	}
	return lc
}

// reconcileTethering keeps the tethering controller's masquerade target
// pointed at the current default route, enabling it on first sight of a
// default interface and retargeting it whenever that interface changes.
func reconcileTethering(tether *tethering.Controller, integrator *routing.Integrator, log *logging.Logger) {
	iface := integrator.DefaultInterface()
	if iface == "" {
		return
	}
	if !tether.Enabled() {
		if err := tether.Enable(iface, nil); err != nil {
			log.Error("tethering enable failed", "error", err, "upstream", iface)
		}
		return
	}
	if err := tether.UpdateInterface(iface); err != nil {
		log.Error("tethering retarget failed", "error", err, "upstream", iface)
	}
}

// startNTPSync arms a recurring sync against cfg's server list, logging
// the winning server or the failure, matching spec.md §4.L's "runs once
// at startup and then on a recurring timer" schedule.
func startNTPSync(loop *eventloop.Loop, servers []string, log *logging.Logger) {
	clk := log.WithComponent("clock")
	sync := func() {
		server, err := clock.Sync(clock.DefaultQuerier(), servers)
		if err != nil {
			clk.Warn("ntp sync failed", "error", err)
			return
		}
		clk.Info("ntp sync succeeded", "server", server)
	}
	loop.AddTimer(0, func() eventloop.Result {
		sync()
		return eventloop.Remove
	})
	loop.AddTicker(time.Hour, func() eventloop.Result {
		sync()
		return eventloop.Continue
	})
}
