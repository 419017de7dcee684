package utils

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID returned an invalid UUID %q: %v", id, err)
	}
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if id1 == id2 {
		t.Error("GenerateRunID should return unique IDs")
	}
	if !strings.HasPrefix(id1, "run-") {
		t.Errorf("GenerateRunID should start with 'run-': %s", id1)
	}

	// run-YYYYMMDD-HHMMSS-xxxxxxxxxxxx
	parts := strings.Split(id1, "-")
	if len(parts) != 4 {
		t.Fatalf("GenerateRunID should have 4 parts: %s", id1)
	}
	if len(parts[1]) != 8 || len(parts[2]) != 6 || len(parts[3]) != 12 {
		t.Errorf("Unexpected run ID layout: %s", id1)
	}
}

func TestIDConcurrency(t *testing.T) {
	numGoroutines := 100
	idsPerGoroutine := 100

	idChan := make(chan string, numGoroutines*idsPerGoroutine)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- GenerateRunID()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	ids := make(map[string]bool)
	for id := range idChan {
		if ids[id] {
			t.Errorf("Duplicate ID generated in concurrent test: %s", id)
		}
		ids[id] = true
	}
	if len(ids) != numGoroutines*idsPerGoroutine {
		t.Errorf("Expected %d unique IDs, got %d", numGoroutines*idsPerGoroutine, len(ids))
	}
}
