package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	"github.com/ardiwn/go-inventory-api/internal/config"
	kafkax "github.com/ardiwn/go-inventory-api/internal/kafka"
	"github.com/ardiwn/go-inventory-api/internal/orders"
	"github.com/ardiwn/go-inventory-api/internal/postgres"
	"github.com/ardiwn/go-inventory-api/internal/redisx"
	"github.com/ardiwn/go-inventory-api/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Products:     &catalog.Repo{DB: db},
		Redis:        rdb,
		ServiceName:  cfg.ServiceName + "-stockwatch",
		LowThreshold: mustAtoi(os.Getenv("LOW_STOCK_THRESHOLD"), "5"),
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch-svc")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderEvents, workers)

	go func() {
		log.Printf("stockwatch consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderEvents, workers)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
