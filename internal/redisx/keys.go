package redisx

import (
	"fmt"
	"time"
)

const (
	// Variant stock lock: lock:variant:{sku} -> holder token
	KeyVariantLock = "lock:variant:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLVariantLock = 600 * time.Second
	TTLDedup       = 48 * time.Hour
)

func VariantLockKey(sku string) string { return fmt.Sprintf(KeyVariantLock, sku) }

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
