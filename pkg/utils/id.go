package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a random UUID string
func GenerateID() string {
	return uuid.NewString()
}

// GenerateRunID generates a run ID with a timestamp prefix, e.g. run-20260102-150405-1a2b3c4d5e6f
func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	suffix := strings.ReplaceAll(GenerateID(), "-", "")[:12]
	return fmt.Sprintf("run-%s-%s", timestamp, suffix)
}
