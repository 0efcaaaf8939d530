package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/token"
	"storefront/internal/logger"
	"storefront/internal/server"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv(".env", "../.env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return err
	}
	if cfg.IsProd() {
		if err := db.MigrateUp(cfg.DatabaseDSN()); err != nil {
			return err
		}
	} else if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	//サマリーキャッシュ（REDIS_ADDRが空なら無し）
	var summaries cache.SummaryCache = cache.NopSummaryCache{}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable at startup, summaries fall back to db", zap.Error(err))
		}
		summaries = cache.NewRedisSummaryCache(rdb, log)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	brandRepo := infraRepo.NewBrandGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := auth.UUIDGenerator{}
	clock := auth.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	jwtm := token.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo, txm, summaries, usecase.CartSettings{
		MaxQuantityPerItem: cfg.Cart.MaxQuantityPerItem,
		MaxItems:           cfg.Cart.MaxItems,
		CurrencySymbol:     cfg.Currency.Symbol,
		CurrencyExponent:   cfg.Currency.Exponent,
	}, log.Named("cart"))
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, cartUC, clock, log.Named("auth"))
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, verifier, jwtm, idGen, clock, cartUC, cfg.RefreshTokenTTL, log.Named("auth"))
	refreshUC := auth.NewRefreshUsecase(userRepo, rtRepo, jwtm, idGen, clock, cfg.RefreshTokenTTL, log.Named("auth"))
	logoutUC := auth.NewLogoutUsecase(rtRepo, clock)
	profileUC := usecase.NewProfileUsecase(userRepo, rtRepo, hasher, verifier, clock, log.Named("profile"))
	brandUC := usecase.NewBrandUsecase(brandRepo, auditRepo, log.Named("catalog"))
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, auditRepo, log.Named("catalog"))
	productUC := usecase.NewProductUsecase(productRepo, brandRepo, categoryRepo, inventoryRepo, auditRepo, log.Named("catalog"))

	//Handler生成
	e := server.New(log)
	server.RegisterRoutes(e, server.RouteConfig{
		Tokens:            jwtm,
		Users:             userRepo,
		SessionCookieName: cfg.SessionCookieName,
		CookieSecure:      cfg.CookieSecure,
		GuestCartEnabled:  cfg.Features.GuestCart,
	}, server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC, refreshUC, logoutUC, cfg.RefreshTokenTTL, cfg.CookieSecure, log),
		Profile:      handler.NewProfileHandler(profileUC, log),
		Product:      handler.NewProductHandler(productUC, log),
		Cart:         handler.NewCartHandler(cartUC, log),
		AdminCatalog: handler.NewAdminCatalogHandler(brandUC, categoryUC, log),
		AdminProduct: handler.NewAdminProductHandler(productUC, log),
		AdminUser:    handler.NewAdminUserHandler(profileUC, log),
	})

	defer func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	//Server起動
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, e, ":"+cfg.Port, log)
	})
	return g.Wait()
}
