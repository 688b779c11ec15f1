package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/api/handler"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/api/router"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/service"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/database"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/jwt"
	applogger "github.com/LuizNicolao/terceirize-foods-sub000/pkg/logger"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/redis"
)

func main() {
	// 1. configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "falha ao carregar configuração: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "falha ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("iniciando aplicação",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database + migrations
	db, err := database.NewDB(&cfg.DB, logger)
	if err != nil {
		logger.Fatal("falha na conexão com o banco de dados", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao obter o sql.DB subjacente", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("falha nas migrações do banco", zap.Error(err))
	}

	// 4. redis (optional: the catalog cache degrades to direct calls)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis indisponível, cache do catálogo desativado", zap.Error(err))
		rdb = nil
	}

	// 5. wiring: repository → service → handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	catalog := service.NewFoodsCatalog(&cfg.Catalog, rdb, logger)
	svc := service.NewService(cfg, repo, catalog, logger)
	h := handler.NewHandler(svc)

	// 6. router
	engine := router.Setup(cfg, h, jwtMgr, logger)

	// 7. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("servidor HTTP iniciado", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("falha no servidor HTTP", zap.Error(err))
		}
	}()

	// 8. wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("sinal de encerramento recebido", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("falha no encerramento do servidor", zap.Error(err))
	}

	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("servidor encerrado")
}
