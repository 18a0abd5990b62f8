// arstage: session host for image-tracking AR presentations.
// Serves the page, links each page session over a websocket and runs pose
// smoothing, presence and audio/animation sync for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/teslashibe/go-arstage/internal/config"
	"github.com/teslashibe/go-arstage/internal/log"
	"github.com/teslashibe/go-arstage/pkg/audio/ebitenaudio"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/session"
	"github.com/teslashibe/go-arstage/pkg/web"
)

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Experience file (default $ARSTAGE_CONFIG, else built-in layout)")
	port       = flag.Int("port", 0, "HTTP port (overrides the experience file)")
	localAudio = flag.Bool("local-audio", false, "Play tracks on this host instead of the page")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)

	exp, err := loadExperience()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		exp.Server.Port = *port
	}

	fmt.Println()
	fmt.Println("🎭 arstage v" + version)
	fmt.Printf("   %d tracks, smoothing %.2f, %g Hz\n", len(exp.Tracks), exp.Smoothing, exp.FrameRate)
	fmt.Println()

	sessCfg := session.DefaultConfig()
	sessCfg.Smoothing = exp.Smoothing
	sessCfg.FrameRate = exp.FrameRate
	sessCfg.Limits = exp.Limits()
	sessCfg.Logger = log.Component("session")

	cfg := web.DefaultConfig()
	cfg.Port = exp.Server.Port
	cfg.StaticDir = exp.Server.StaticDir
	cfg.Session = sessCfg
	cfg.Tracks = exp.PlaybackTracks()
	cfg.ModelPath = exp.Model.Path
	cfg.StartTimeout = exp.Tracker.StartTimeout
	cfg.AttachTimeout = exp.Server.AttachTimeout
	cfg.Debug = *debug
	cfg.Logger = log.Component("web")
	if exp.Server.QueueSize > 0 {
		cfg.QueueSize = exp.Server.QueueSize
	}
	if *localAudio {
		cfg.Audio = hostAudio(exp)
	}

	server := web.NewServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	fmt.Println("👋 Shutting down")
}

// loadExperience reads the experience file if one is named, else uses the
// built-in dual-audio layout.
func loadExperience() (config.Experience, error) {
	path := *configPath
	if path == "" {
		path = config.ConfigPath("")
	}
	if path == "" {
		log.Info("no experience file, using built-in layout")
		return config.Parse(nil)
	}
	log.Info("loading experience", "path", path)
	return config.Load(path)
}

// hostAudio opens each track's source file relative to the static dir.
func hostAudio(exp config.Experience) web.AudioFactory {
	srcs := make(map[string]string, len(exp.Tracks))
	for _, t := range exp.Tracks {
		srcs[t.Name] = filepath.Join(exp.Server.StaticDir, t.Src)
	}
	return func(tc playback.TrackConfig) (playback.Audio, error) {
		t, err := ebitenaudio.Open(tc.Name, srcs[tc.Name], ebitenaudio.DefaultSampleRate)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
