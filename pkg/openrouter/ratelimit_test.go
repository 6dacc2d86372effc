package openrouter

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitCellStartsEmpty(t *testing.T) {
	var cell rateLimitCell
	assert.Equal(t, RateLimit{}, cell.snapshot())
}

func TestRateLimitCellIgnoresResponsesWithoutHeaders(t *testing.T) {
	var cell rateLimitCell
	cell.observe(http.Header{
		"X-Ratelimit-Remaining": []string{"10"},
		"X-Ratelimit-Limit":     []string{"50"},
	})

	// A later response without quota headers keeps the previous snapshot.
	cell.observe(http.Header{})

	snap := cell.snapshot()
	assert.Equal(t, "10", snap.Remaining)
	assert.Equal(t, "50", snap.Limit)
}

func TestRateLimitCellLastWriteWins(t *testing.T) {
	var cell rateLimitCell

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cell.observe(http.Header{
				"X-Ratelimit-Remaining": []string{fmt.Sprint(i)},
				"X-Ratelimit-Limit":     []string{"50"},
				"X-Ratelimit-Reset":     []string{"60s"},
			})
		}(i)
	}
	wg.Wait()

	// Whatever write landed last, the snapshot is internally consistent.
	snap := cell.snapshot()
	assert.Equal(t, "50", snap.Limit)
	assert.Equal(t, "60s", snap.Reset)
	assert.NotEmpty(t, snap.Remaining)
}
