package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uristernik/javaproject/internal/checkout"
	"github.com/uristernik/javaproject/internal/config"
	"github.com/uristernik/javaproject/internal/database"
	"github.com/uristernik/javaproject/internal/logging"
	"github.com/uristernik/javaproject/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.NewLogger("market-api", cfg.Environment)
	if err != nil {
		log.Fatalf("Create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database")

	ledger := store.NewStockLedger(db)
	orders := store.NewOrderStore(db)
	users := store.NewUserStore(db)
	coordinator := checkout.NewCoordinator(ledger, orders, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/checkout", handleCheckout(coordinator))
	mux.HandleFunc("/inventory", handleInventory(ledger))
	mux.HandleFunc("/inventory/", handleInventoryByID(ledger))
	mux.HandleFunc("/orders", handleOrders(orders))
	mux.HandleFunc("/orders/", handleOrderByID(orders))
	mux.HandleFunc("/users", handleUsers(users))
	mux.HandleFunc("/users/", handleUserByID(users))
	mux.HandleFunc("/healthz", handleHealth(db))
	mux.Handle("/metrics", promhttp.Handler())

	metrics := newServerMetrics()
	handler := instrument(logger, metrics, mux)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
