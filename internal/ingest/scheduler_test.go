package ingest

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
)

// countingUpserter is safe for use from the cron goroutine.
type countingUpserter struct {
	calls atomic.Int64
}

func (c *countingUpserter) Upsert(ctx context.Context, chunks []knowledge.Chunk) error {
	c.calls.Add(1)
	return nil
}

func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	}
}

func TestSchedulerRunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	article := strings.Repeat("Το ντέρμπι έληξε ισόπαλο μετά από συναρπαστικό δεύτερο ημίχρονο. ", 20)
	srv := httptest.NewServer(articlePage(article))
	defer srv.Close()

	store := &countingUpserter{}
	ing := testIngester(Config{SourceURLs: []string{srv.URL}}, store)
	s := NewScheduler(ing, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, "@every 50ms"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never ran a cycle")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Stop must wait for the running cycle, so no goroutine survives it.
	s.Stop()
}

func TestSchedulerInvalidSpec(t *testing.T) {
	store := &countingUpserter{}
	ing := testIngester(Config{SourceURLs: []string{"http://127.0.0.1:1/x"}}, store)
	s := NewScheduler(ing, nil)

	if err := s.Start(context.Background(), "not a cron spec"); err == nil {
		t.Fatal("Start should reject an invalid cron spec")
	}
}
