package worker

import (
	"context"

	"restaurant-service/internal/broker"
	"restaurant-service/internal/service"
	"restaurant-service/internal/util"

	"go.uber.org/zap"
)

// ConfirmationWorker runs queued order confirmations
type ConfirmationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewConfirmationWorker creates a new confirmation worker
func NewConfirmationWorker(consumer *broker.Consumer, handler *service.ConfirmRequestHandler) *ConfirmationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnConfirmRequested(handler.HandleConfirmRequested)

	return &ConfirmationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker; it blocks until ctx is cancelled
func (w *ConfirmationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting confirmation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ConfirmationWorker) Stop() error {
	w.logger.Info("Stopping confirmation worker")
	return w.consumer.Close()
}
