package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dimiro1/banner"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/toolbridge/toolbridge/pkg/bridge"
	"github.com/toolbridge/toolbridge/pkg/logging"
	"github.com/toolbridge/toolbridge/pkg/server"
	"github.com/toolbridge/toolbridge/pkg/stats"
)

const bannerTemplate = `toolbridge {{ .AnsiColor.Cyan }}function-calling bridge{{ .AnsiColor.Default }}
go: {{ .GoVersion }}  os: {{ .GOOS }}/{{ .GOARCH }}
`

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "toolbridge.yaml", "path to config file")
	flag.Parse()

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(cfg.LogLevel, cfg.LogFormat)

	isTTY := isatty.IsTerminal(os.Stdout.Fd())
	banner.Init(os.Stdout, isTTY, isTTY, strings.NewReader(bannerTemplate))

	gen, err := server.NewGenerator(cfg.Upstream)
	if err != nil {
		slog.Error("upstream_init_failed", "error", err)
		os.Exit(1)
	}

	engine := bridge.NewEngine(cfg)
	if cfg.Stats.File != "" {
		f, err := os.OpenFile(cfg.Stats.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("stats_init_failed", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		rec := stats.NewAsyncRecorder(stats.NewJSONLRecorder(f), cfg.Stats.Buffer)
		defer rec.Close()
		engine.SetStats(rec)
	}
	srv := server.New(cfg.Server, engine, gen)
	if err := srv.Run(); err != nil {
		slog.Error("server_exit", "error", err)
		os.Exit(1)
	}
}
