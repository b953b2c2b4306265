package main

import (
	"context"
	"log"

	httpapi "tiffinloop/internal/api/http"
	"tiffinloop/internal/config"
	"tiffinloop/internal/fulfillment"
	"tiffinloop/internal/notify"
	"tiffinloop/internal/orders"
	"tiffinloop/internal/push"
	"tiffinloop/internal/realtime"
	"tiffinloop/internal/storage"
	"tiffinloop/internal/subscriptions"
)

const ordersTopic = "order-events"

func main() {
	config.Load()

	db := config.MustInitPostgres()
	defer db.Close()

	rdb := config.MustInitRedis()
	defer rdb.Close()

	repo := storage.NewRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	kafkaWriter := config.NewKafkaWriter(ordersTopic)
	defer kafkaWriter.Close()
	publisher := storage.NewKafkaPublisher(kafkaWriter)

	qr := orders.HandoffQRGenerator{BaseURL: config.Env("PUBLIC_BASE_URL", "http://localhost:8080")}
	orderSvc := orders.NewService(repo, publisher, qr)

	materializer := fulfillment.NewMaterializer(config.SlotHours())
	generator := fulfillment.NewGenerator(repo, repo, materializer, config.EnvInt("GENERATOR_WORKERS", 0))
	subSvc := subscriptions.NewService(repo, generator, logMailer{})

	hub := realtime.NewHub(repo)

	mobile := notify.NewMobileChannel(
		push.NewTokenProvider(config.Env("PUSH_ENDPOINT", ""), config.Env("PUSH_API_KEY", "")),
		repo,
	)
	webPush := push.NewMulticastProvider(config.Env("MULTICAST_ENDPOINT", ""), config.Env("MULTICAST_API_KEY", ""))
	web := notify.NewWebChannel(webPush)
	dispatcher := notify.NewDispatcher(
		repo,
		repo,
		storage.NewPrefCache(rdb),
		storage.NewDeliveryAnalytics(rdb),
		notify.ChannelsByPlatform(mobile, web),
		hub,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := notify.NewSweeper(repo, dispatcher, 0)
	go sweeper.Run(ctx)

	kafkaReader := config.NewKafkaReader(ordersTopic, "notify-svc")
	defer kafkaReader.Close()
	consumer := notify.NewConsumer(kafkaReader, dispatcher)
	go consumer.Start(ctx)

	handler := &httpapi.Handler{
		Orders:        orderSvc,
		Subscriptions: subSvc,
		Plans:         repo,
		Devices:       repo,
		Topics:        webPush,
		Notifier:      dispatcher,
		Notifications: repo,
		WS:            hub.HandleWS,
	}
	httpapi.StartServer(":"+config.Env("PORT", "8080"), httpapi.NewRouter(handler))
}

// logMailer stands in until an email provider is wired up. Subscription
// confirmations land in the log instead of a mailbox.
type logMailer struct{}

func (logMailer) Send(ctx context.Context, userID int, subject, body string) error {
	log.Printf("[mail] to user %d: %s: %s", userID, subject, body)
	return nil
}
