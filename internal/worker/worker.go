package worker

import (
	"context"

	"github.com/Ishanth288/victure-sub004/internal/broker"
	"github.com/Ishanth288/victure-sub004/internal/service"
	"github.com/Ishanth288/victure-sub004/internal/util"
)

// ReorderWorker consumes low-stock events and records reorder suggestions
// for the purchasing screens.
type ReorderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewReorderWorker creates a new reorder worker
func NewReorderWorker(consumer *broker.Consumer, ledger *service.InventoryLedger) *ReorderWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnLowStock(ledger.HandleLowStock)

	return &ReorderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *ReorderWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting reorder worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReorderWorker) Stop() error {
	util.GetLogger().Info("Stopping reorder worker")
	return w.consumer.Close()
}
