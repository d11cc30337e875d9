package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
	assert.Len(t, id1.String(), 26)
}

func TestGenerateMonotonic(t *testing.T) {
	gen := NewGenerator()

	prev := gen.Generate()
	for i := 0; i < 100; i++ {
		next := gen.Generate()
		assert.Equal(t, 1, next.Compare(prev), "ULIDs should sort by creation order")
		prev = next
	}
}

func TestNewRequestID(t *testing.T) {
	reqID := NewRequestID()

	assert.True(t, strings.HasPrefix(reqID.String(), "req_"))
	parsed, ok := ParseRequestID(reqID.String())
	require.True(t, ok)
	assert.Equal(t, reqID, parsed)

	ts, err := Timestamp(reqID.String())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestParseRequestID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"empty", "", false},
		{"no prefix", "01ARZ3NDEKTSV4RRFFQ69G5FAV", false},
		{"wrong prefix", "sess_01ARZ3NDEKTSV4RRFFQ69G5FAV", false},
		{"bad ulid", "req_not-a-ulid", false},
		{"valid", "req_01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseRequestID(tt.raw)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewSessionID(t *testing.T) {
	sid := NewSessionID()

	_, err := uuid.Parse(sid.String())
	assert.NoError(t, err)
	assert.NotEqual(t, sid, NewSessionID())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v := gen.GenerateWithPrefix(RequestPrefix)
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
