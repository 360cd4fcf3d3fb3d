package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ardiwn/go-inventory-api/internal/catalog"
	"github.com/ardiwn/go-inventory-api/internal/config"
	"github.com/ardiwn/go-inventory-api/internal/httpx"
	kafkax "github.com/ardiwn/go-inventory-api/internal/kafka"
	"github.com/ardiwn/go-inventory-api/internal/orders"
	"github.com/ardiwn/go-inventory-api/internal/postgres"
	"github.com/ardiwn/go-inventory-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	// Stores & service
	products := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	svc := &orders.Service{Products: products, Orders: orderRepo}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Svc:      svc,
		Producer: prod,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Repo: products, Redis: rdb}
	ph.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // flush remaining events & close writer
	cancel()
	prod.WaitClosed()
}
