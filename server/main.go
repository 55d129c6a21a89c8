package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rook-computer/captcha/internal/app"
	"github.com/rook-computer/captcha/internal/render"
	"github.com/rook-computer/captcha/internal/session"
	"github.com/rook-computer/captcha/internal/web"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv(":8080")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode (permissive CORS); also configurable via "+web.EnvDevMode)
	redisAddr := flag.String("redis", defaults.RedisAddr, "redis address for shared challenge storage; also configurable via "+web.EnvRedisAddr)
	storeKind := flag.String("store", session.StoreTTL, "in-process store without -redis: "+session.StoreTTL+" or "+session.StoreCollect)
	ttl := flag.Duration("ttl", session.DefaultTTL, "how long a challenge stays answerable")
	length := flag.Int("length", render.DefaultConfig().CodeLength, "code length; the drawn code has one more character")
	lines := flag.Int("lines", 5, "number of obscuring lines")
	logFile := flag.String("log-file", "", "also write JSON logs to this rotated file")
	debug := flag.Bool("debug", false, "enable debug logging")
	noQR := flag.Bool("no-qr", false, "do not print a QR code of the server URL")
	flag.Parse()

	var logger app.ZapLogger
	if *logFile != "" {
		f := app.NewRotatingFile(*logFile)
		defer f.Close()
		logger = app.NewZapLogger(f, *debug)
	} else {
		logger = app.NewZapLogger(nil, *debug)
	}
	defer func() { _ = logger.Sync() }()

	cfg := render.DefaultConfig()
	cfg.Width, cfg.Height = 300, 200
	cfg.CodeLength = *length
	cfg.LineCount = *lines
	cfg.LineMode = render.LineModeRelative
	renderer, err := render.New(cfg)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	renderer.Logger = logger

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store session.Store
	if *redisAddr != "" {
		rs := session.NewRedisStore(session.NewRedisClient(*redisAddr), *ttl)
		if err := rs.Ping(processCtx); err != nil {
			fmt.Println("redis error:", err)
			os.Exit(1)
		}
		logger.Infof("main", "challenges stored in redis at %s", *redisAddr)
		store = rs
	} else {
		local, err := session.NewLocalStore(*storeKind, *ttl)
		if err != nil {
			fmt.Println("store error:", err)
			os.Exit(2)
		}
		if ms, ok := local.(*session.MemoryStore); ok {
			ms.Start()
			defer ms.Stop()
		}
		logger.Infof("main", "challenges stored in process (%s)", *storeKind)
		store = local
	}

	svc := session.NewService(renderer, store)
	svc.Logger = logger

	server := web.NewHTTPServer(web.ServerConfig{ListenAddr: *listenAddr, DevMode: *devMode}, svc, logger)
	if err := server.Start(processCtx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}

	url := web.BrowseURL(server.ListenAddr())
	fmt.Println("Captcha demo listening on", url)
	fmt.Println("API: " + url + "api/v1/")
	if !*noQR {
		if qr, err := web.QRCodeString(url); err != nil {
			logger.Errorf("main", "qr code: %v", err)
		} else {
			fmt.Print(qr)
		}
	}

	<-processCtx.Done()
	_ = server.Stop()
}
