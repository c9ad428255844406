package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shop-checkout/internal/config"
	"shop-checkout/internal/db"
	"shop-checkout/internal/gateway/zarinpal"
	"shop-checkout/internal/httpserver"
	"shop-checkout/internal/notify"
	cartrepo "shop-checkout/internal/repository/cart"
	couponrepo "shop-checkout/internal/repository/coupon"
	orderrepo "shop-checkout/internal/repository/order"
	paymentrepo "shop-checkout/internal/repository/payment"
	productrepo "shop-checkout/internal/repository/product"
	sequencerepo "shop-checkout/internal/repository/sequence"
	checkoutsvc "shop-checkout/internal/service/checkout"
	couponsvc "shop-checkout/internal/service/coupon"
	reconcilesvc "shop-checkout/internal/service/reconcile"
	"shop-checkout/internal/txn"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	runner := txn.NewManager(dbpool)
	carts := cartrepo.NewPostgres(dbpool, logger)
	coupons := couponrepo.NewPostgres(dbpool, logger)
	orders := orderrepo.NewPostgres(dbpool, logger)
	payments := paymentrepo.NewPostgres(dbpool, logger)
	products := productrepo.NewPostgres(dbpool, logger)
	sequences := sequencerepo.NewPostgres()

	gateway := zarinpal.NewClient(cfg.Gateway, logger)
	notifier := notify.NewLog(logger)

	couponService := couponsvc.New(coupons)
	checkoutService := checkoutsvc.New(runner, carts, couponService, orders, payments, sequences, gateway, logger)
	reconcileService := reconcilesvc.New(runner, payments, orders, carts, coupons, gateway, notifier, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CheckoutSvc:  checkoutService,
		ReconcileSvc: reconcileService,
		CouponSvc:    couponService,
		Carts:        carts,
		Orders:       orders,
		Payments:     payments,
		Products:     products,
	}, cfg.CORSOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
