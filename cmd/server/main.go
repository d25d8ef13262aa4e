package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/colorfest/ticket-booking/internal/config"
	"github.com/colorfest/ticket-booking/internal/database"
	"github.com/colorfest/ticket-booking/internal/handler"
	"github.com/colorfest/ticket-booking/internal/notify"
	"github.com/colorfest/ticket-booking/internal/payment"
	"github.com/colorfest/ticket-booking/internal/repository"
	"github.com/colorfest/ticket-booking/internal/router"
	"github.com/colorfest/ticket-booking/internal/service"
	"github.com/colorfest/ticket-booking/internal/utils"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	eventRepo := repository.NewEventRepo(db)
	ticketRepo := repository.NewTicketTypeRepo(db)
	bookingRepo := repository.NewBookingRepo(db, ticketRepo)

	var gateway payment.Gateway
	if cfg.PaymentBypass {
		log.Printf("payment: bypass mode enabled, no real charges will be made")
		gateway = payment.NewBypassGateway()
	} else {
		gateway = payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentTimeout)
	}

	publisher := notify.NewAMQPPublisher(cfg.AMQPURL)
	bookings := service.NewBookingService(eventRepo, ticketRepo, bookingRepo, gateway, publisher, service.Options{
		PendingTTL:     cfg.PendingTTL,
		GatewayTimeout: cfg.PaymentTimeout,
		Currency:       cfg.Currency,
	})

	// The organizer password never leaves process memory unhashed.
	passwordHash, err := utils.HashPassword(cfg.OrganizerPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash organizer password: %v", err)
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		log.Printf("notify: SMTP_ADDR not set, ticket emails run in dry-run mode")
	}

	// Background ticket delivery worker.  It owns its own reconnect
	// loop; a broker outage only delays delivery, never payments.
	consumer := notify.NewConsumer(cfg.AMQPURL, bookingRepo, mailer, "logs")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e,
		&handler.BrowseHandler{EventRepo: eventRepo, TicketRepo: ticketRepo, BookingRepo: bookingRepo},
		&handler.CheckoutHandler{Bookings: bookings, PaymentBypass: cfg.PaymentBypass, GatewayKeyID: cfg.RazorpayKeyID},
		&handler.OrganizerHandler{
			EventRepo:    eventRepo,
			TicketRepo:   ticketRepo,
			BookingRepo:  bookingRepo,
			Email:        cfg.OrganizerEmail,
			PasswordHash: passwordHash,
			JWTSecret:    cfg.JWTSecret,
			AccessTTLMin: cfg.AccessTTLMin,
		},
		config.NewRedisClient(),
		cfg.JWTSecret,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, pending_ttl=%s)", addr, cfg.Env, cfg.PendingTTL)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
