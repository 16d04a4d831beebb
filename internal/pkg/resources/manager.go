package resources

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

var (
	globalClient *Client
	initOnce     sync.Once
)

// Initialize sets up the global resource storage client from the
// environment. Storage stays disabled when not configured; download
// endpoints then fall back to the raw resource URLs.
func Initialize() {
	initOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			log.Errorf("[Resources] Invalid configuration: %v", err)
			return
		}
		if !cfg.IsEnabled() {
			log.Info("[Resources] S3 resource storage is disabled")
			return
		}
		client, err := NewClient(cfg)
		if err != nil {
			log.Errorf("[Resources] Failed to initialize client: %v", err)
			return
		}
		globalClient = client
	})
}

// GetClient returns the global client, or nil when storage is disabled.
func GetClient() *Client {
	return globalClient
}
