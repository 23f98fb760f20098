package service

import (
	"context"
	"errors"
	"fmt"

	"restaurant-service/internal/models"
	"restaurant-service/internal/util"

	"go.uber.org/zap"
)

// ConfirmRequestHandler runs queued confirmation requests exactly once per event
type ConfirmRequestHandler struct {
	events       EventLog
	confirmation *ConfirmationService
	logger       *zap.Logger
}

// NewConfirmRequestHandler creates a new confirm request handler
func NewConfirmRequestHandler(events EventLog, confirmation *ConfirmationService) *ConfirmRequestHandler {
	return &ConfirmRequestHandler{
		events:       events,
		confirmation: confirmation,
		logger:       util.GetLogger(),
	}
}

// HandleConfirmRequested confirms the order named by the event. Requests that can never
// succeed are marked processed and dropped; transient failures are returned so the message is retried.
func (h *ConfirmRequestHandler) HandleConfirmRequested(ctx context.Context, event *models.OrderConfirmRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "ConfirmRequestHandler.HandleConfirmRequested",
		util.AttrOrderID.String(event.OrderID))
	defer span.End()

	processed, err := h.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		h.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	h.logger.Info("Handling confirm request",
		zap.String("order_id", event.OrderID),
		zap.String("requested_by", event.RequestedBy))

	result, err := h.confirmation.ConfirmOrder(ctx, event.OrderID, event.RequestedBy)
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrInvalidInput):
		h.logger.Warn("Dropping confirm request",
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	case err != nil:
		util.RecordError(span, err)
		return err
	default:
		h.logger.Info("Queued confirmation completed",
			zap.String("order_id", event.OrderID),
			zap.Bool("already_processed", result.AlreadyProcessed),
			zap.Strings("warnings", result.Warnings()))
	}

	if err := h.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		h.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
