package worker

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	metrics "github.com/aicser/aicser-studio/internal/pkg/metrics/counter"
)

const counterFlushInterval = 5 * time.Second

// Manager runs background maintenance tasks next to the HTTP server.
type Manager struct {
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global background worker manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// Start starts the background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Worker Manager] Starting background tasks")

	m.counterFlushTicker = time.NewTicker(counterFlushInterval)
	m.wg.Add(1)
	go m.counterFlushWorker()
}

// Stop stops all background tasks and waits for them to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Worker Manager] Stopping background tasks")
	close(m.stopCh)
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	m.wg.Wait()
	m.running = false

	// Flush once more so buffered counters survive a shutdown.
	if err := metrics.FlushAll(); err != nil {
		log.Errorf("[Worker Manager] Final counter flush error: %v", err)
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// counterFlushWorker periodically flushes buffered counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Worker Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[Worker Manager] Counter flush error: %v", err)
			}
		}
	}
}
