package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/boa-platform/registration-ledger/internal/adapters/mongo"
	"github.com/boa-platform/registration-ledger/internal/adapters/rabbit"
	"github.com/boa-platform/registration-ledger/internal/config"
	"github.com/boa-platform/registration-ledger/internal/mailer"
	"github.com/boa-platform/registration-ledger/internal/notify"
	"github.com/boa-platform/registration-ledger/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	activity := mongoadapter.NewActivityLogger(mongoClient.Database("boa"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "notify.q", []string{
		notify.EventRegistrationConfirmed,
		notify.EventMembershipConfirmed,
		notify.EventPaymentReceived,
	})
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	dispatcher := notify.NewService(
		mailer.New(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPPassword),
		activity,
		logger,
	)

	worker := NewNotifyWorker(consumer, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notify worker")
}

type NotifyWorker struct {
	consumer   *rabbit.Consumer
	dispatcher notify.Dispatcher
	logger     observability.Logger
}

func NewNotifyWorker(consumer *rabbit.Consumer, dispatcher notify.Dispatcher, logger observability.Logger) *NotifyWorker {
	return &NotifyWorker{consumer: consumer, dispatcher: dispatcher, logger: logger}
}

func (w *NotifyWorker) Run(ctx context.Context) {
	deliveries, err := w.consumer.Consume(ctx)
	if err != nil {
		w.logger.WithError(err).Error("start consuming")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := w.handle(ctx, d); err != nil {
				w.logger.WithError(err).WithField("routing_key", d.RoutingKey).Error("handle delivery")
				// Requeue once; a message that fails again is dropped.
				d.Nack(false, !d.Redelivered)
				continue
			}
			d.Ack(false)
		}
	}
}

func (w *NotifyWorker) handle(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case notify.EventRegistrationConfirmed, notify.EventPaymentReceived:
		var ev notify.RegistrationConfirmed
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		if err := w.dispatcher.SendRegistrationConfirmation(ctx, ev); err != nil {
			return err
		}
		return w.dispatcher.LogAdminActivity(ctx, d.RoutingKey, map[string]interface{}{
			"registration_no": ev.RegistrationNo,
			"seminar":         ev.SeminarName,
			"amount":          ev.Amount,
		})
	case notify.EventMembershipConfirmed:
		var ev notify.MembershipConfirmed
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return err
		}
		if err := w.dispatcher.SendMembershipConfirmation(ctx, ev); err != nil {
			return err
		}
		return w.dispatcher.LogAdminActivity(ctx, d.RoutingKey, map[string]interface{}{
			"membership_no":   ev.MembershipNo,
			"membership_type": ev.MembershipType,
			"amount":          ev.Amount,
		})
	default:
		w.logger.WithField("routing_key", d.RoutingKey).Warn("unknown event type")
		return nil
	}
}
