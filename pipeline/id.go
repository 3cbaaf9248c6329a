package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewCorrelationID creates a unique request correlation ID.
// Format: req-<timestamp>-<random>
func NewCorrelationID() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("req-%d", timestamp)
	}
	return fmt.Sprintf("req-%d-%s", timestamp, hex.EncodeToString(random))
}
