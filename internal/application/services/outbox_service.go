package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/constants"
)

// OutboxService polls the transactional outbox and republishes pending events
// onto the in-process bus. Writers enqueue inside their own transactions;
// this poller is the only reader.
type OutboxService struct {
	repo *persistence.OutboxRepository
	bus  *EventBus

	stopCh chan struct{}
	doneWg sync.WaitGroup
	once   sync.Once
}

func NewOutboxService(repo *persistence.OutboxRepository, bus *EventBus) *OutboxService {
	return &OutboxService{
		repo:   repo,
		bus:    bus,
		stopCh: make(chan struct{}),
	}
}

// Start launches the polling loop.
func (s *OutboxService) Start() {
	s.doneWg.Add(1)
	go s.loop()
	log.Printf("✅ Outbox poller started (interval %s)", constants.OutboxPollInterval)
}

// Stop shuts the poller down and waits for the in-flight batch.
func (s *OutboxService) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.doneWg.Wait()
	log.Println("✅ Outbox poller stopped")
}

func (s *OutboxService) loop() {
	defer s.doneWg.Done()

	ticker := time.NewTicker(constants.OutboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.drain()
		}
	}
}

// drain processes one batch of pending events.
func (s *OutboxService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pending, err := s.repo.FetchPending(ctx, constants.OutboxFetchBatch)
	if err != nil {
		log.Printf("❌ Outbox fetch failed: %v", err)
		return
	}

	for _, event := range pending {
		s.bus.Publish(event.Type, event.Payload)
		if err := s.repo.MarkProcessed(ctx, event.ID); err != nil {
			log.Printf("⚠️ Failed to mark outbox event %s processed: %v", event.ID, err)
			_ = s.repo.RecordFailure(ctx, event.ID, err.Error())
		}
	}

	if len(pending) > 0 {
		log.Printf("📤 Dispatched %d outbox event(s)", len(pending))
	}
}
