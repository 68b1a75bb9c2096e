package main

import (
	"log/slog"
	"os"

	"go.uber.org/zap"

	"github.com/meihsieh/bookship-bot/internal/bot"
	"github.com/meihsieh/bookship-bot/internal/catalog"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/geo"
	"github.com/meihsieh/bookship-bot/internal/ocr"
	"github.com/meihsieh/bookship-bot/internal/order"
	"github.com/meihsieh/bookship-bot/internal/server"
	"github.com/meihsieh/bookship-bot/internal/session"
	"github.com/meihsieh/bookship-bot/internal/store"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	// library packages log through slog
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slogger)

	// Config
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Row store
	st := store.NewXLSX(cfg.Store.WorkbookPath, slogger)

	// Reference data caches
	cat := catalog.NewCache(st, cfg.Store.CatalogSheet, cfg.Engine.RefDataTTL, slogger)
	zips := geo.NewCache(st, cfg.Store.ZipRefSheet, cfg.Engine.RefDataTTL, slogger)

	// Engine
	composer := order.NewComposer(st, cat, zips, cfg.Engine, cfg.Store, slogger)
	sessions := session.NewStore(cfg.Engine.PendingSlotIdle)
	whitelist := bot.NewWhitelist(st, cfg.Line, slogger)
	recognizer := ocr.NewTesseract(ocr.TesseractConfig{
		Binary:      cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		TessdataDir: cfg.OCR.TessdataDir,
	})

	// Transport. The LINE handler doubles as the profile source, so it is
	// built first and handed the processor afterwards.
	line, err := server.NewLineHandler(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, logger)
	if err != nil {
		log.Fatalf("line client: %v", err)
	}
	processor := bot.NewProcessor(bot.Config{
		Composer:   composer,
		Sessions:   sessions,
		Whitelist:  whitelist,
		Recognizer: recognizer,
		Profiles:   line,
		Engine:     cfg.Engine,
		LogRawOCR:  cfg.OCR.LogRawText,
		Logger:     slogger,
	})
	line.SetProcessor(processor)

	srv := server.New(cfg.Server.Addr, line, st, logger)
	log.Infof("webhook serving on %s", cfg.Server.Addr)
	if err := srv.Run(); err != nil {
		log.Errorf("serve: %v", err)
		os.Exit(1)
	}
}
