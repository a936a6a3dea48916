package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MessagesCreated.Inc()
	m.MessagesCreated.Inc()
	m.Votes.WithLabelValues("none", "like").Inc()
	m.Failures.WithLabelValues("delete", "403").Inc()
	m.WSClients.Inc()
	m.WSClients.Dec()

	if v := testutil.ToFloat64(m.MessagesCreated); v != 2 {
		t.Errorf("Expected 2 created, got %v", v)
	}
	if v := testutil.ToFloat64(m.Votes.WithLabelValues("none", "like")); v != 1 {
		t.Errorf("Expected 1 vote, got %v", v)
	}
	if v := testutil.ToFloat64(m.WSClients); v != 0 {
		t.Errorf("Expected gauge back at 0, got %v", v)
	}
}

// TestNew_Isolated 各インスタンスは独立したレジストリを持つ
func TestNew_Isolated(t *testing.T) {
	a, b := New(), New()
	a.MessagesDeleted.Inc()

	if v := testutil.ToFloat64(b.MessagesDeleted); v != 0 {
		t.Errorf("Registries should not share state, got %v", v)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Failures.WithLabelValues("vote", "404").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{
		`guestbook_request_failures_total{code="404",op="vote"} 1`,
		"guestbook_websocket_clients 0",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
