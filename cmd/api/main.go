package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/restobill/internal/analytics"
	"github.com/ariefcatur/restobill/internal/app"
	"github.com/ariefcatur/restobill/internal/chat"
	"github.com/ariefcatur/restobill/internal/config"
	"github.com/ariefcatur/restobill/internal/httpx"
	kafkax "github.com/ariefcatur/restobill/internal/kafka"
	"github.com/ariefcatur/restobill/internal/logx"
	"github.com/ariefcatur/restobill/internal/orders"
	"github.com/ariefcatur/restobill/internal/receipt"
	"github.com/ariefcatur/restobill/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logx.New(cfg.Log, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage (+ Redis cache kalau ada)
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer stores.Close()

	business := receipt.Business{
		Name:     cfg.Business.Name,
		Address:  cfg.Business.Address,
		Phone:    cfg.Business.Phone,
		Footer:   cfg.Business.Footer,
		Location: cfg.Location(),
	}

	var printer receipt.Printer = &receipt.LogPrinter{Log: logger}
	if cfg.ReceiptSpoolDir != "" {
		printer = &receipt.SpoolPrinter{Dir: cfg.ReceiptSpoolDir}
	}

	reg := orders.NewRegister(stores.Storage, stores.Tables, logger)
	terminals := orders.NewTerminals()
	terminals.Max = cfg.MaxTerminals
	pos := &httpx.POSHandler{
		Store:     stores.Storage,
		Tables:    stores.Tables,
		Reg:       reg,
		Terminals: terminals,
		Printer:   printer,
		Business:  business,
		Service:   cfg.ServiceName,
		Log:       logger,
	}
	oh := &httpx.OrdersHandler{
		Store:    stores.Storage,
		Printer:  printer,
		Business: business,
		Location: cfg.Location(),
		Log:      logger,
	}
	if stores.Redis != nil {
		pos.Keys = redisx.CheckoutKeys{RDB: stores.Redis}
		oh.Counters = analytics.Counters{Redis: stores.Redis, Location: cfg.Location()}
	}

	// Kafka producer (opsional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCompleted, 1024, logger)
		prod.Start(ctx)
		pos.Producer = prod
	}
	reg.OnCompleted = pos.AfterCheckout

	hub, err := newChatHub(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("chat", zap.Error(err))
	}

	// bersihkan terminal & sesi chat yang ditinggal
	go sweepIdle(ctx, time.Minute, func(now time.Time) {
		if n := pos.SweepTerminals(ctx, cfg.TerminalIdleTTL, now); n > 0 {
			logger.Info("idle terminals closed", zap.Int("count", n))
		}
		if n := hub.Sweep(cfg.Chat.IdleTTL, now); n > 0 {
			logger.Info("idle chat sessions closed", zap.Int("count", n))
		}
	})

	router := httpx.NewRouter()
	pos.Register(router)
	oh.Register(router)
	(&httpx.AdminHandler{Store: stores.Storage, Log: logger}).Register(router)
	(&httpx.ChatHandler{Hub: hub, Log: logger}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	hub.Shutdown()
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	cancel()
}

// newChatHub uses Gemini when an API key is configured and the keyword
// script otherwise.
func newChatHub(ctx context.Context, cfg config.Config, logger *zap.Logger) (*chat.Hub, error) {
	script := chat.DefaultScript()
	if cfg.Chat.ScriptPath != "" {
		s, err := chat.LoadScript(cfg.Chat.ScriptPath)
		if err != nil {
			return nil, err
		}
		script = s
	} else {
		script.TypingDelay = cfg.Chat.TypingDelay
		script.TypingJitter = cfg.Chat.TypingJitter
	}

	opts := chat.Options{Script: script, ReplyTimeout: cfg.Chat.ReplyTimeout, Log: logger}
	if cfg.Chat.GeminiAPIKey != "" {
		g, err := chat.NewGeminiResponder(ctx, cfg.Chat.GeminiAPIKey, cfg.Chat.GeminiModel, script.SystemInstruction)
		if err != nil {
			return nil, err
		}
		opts.Responder = g
		logger.Info("chat: gemini responder", zap.String("model", cfg.Chat.GeminiModel))
	}
	hub := chat.NewHub(opts)
	hub.Max = cfg.Chat.MaxSessions
	return hub, nil
}

func sweepIdle(ctx context.Context, every time.Duration, sweep func(now time.Time)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			sweep(now)
		}
	}
}
