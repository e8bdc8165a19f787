package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bomb-arena/internal/api"
	"bomb-arena/internal/game"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TestServerShutdownRacesStart verifies Shutdown may run while Start is still binding
func TestServerShutdownRacesStart(t *testing.T) {
	server := api.NewServer(game.NewEngine(game.DefaultEngineConfig()), api.ServerConfig{})

	errc := make(chan error, 1)
	go func() { errc <- server.Start("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Expected clean exit, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

// TestServerLimitStats verifies limiter occupancy reaches /metrics
func TestServerLimitStats(t *testing.T) {
	engine := game.NewEngine(game.DefaultEngineConfig())
	server := api.NewServer(engine, api.ServerConfig{Hub: api.HubConfig{MaxPerIP: 3}})
	server.Attach()
	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		server.Hub().Stop()
		ts.Close()
	})

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	a := dial(t, ts, "")
	b := dial(t, ts, "")

	stats := server.LimitStats()
	if stats.HTTPClients != 1 {
		t.Errorf("Expected 1 REST client, got %d", stats.HTTPClients)
	}
	want := api.ConnLimitStats{IPs: 1, Busiest: 2, MaxPerIP: 3}
	if stats.WebSocket != want {
		t.Errorf("Expected %+v, got %+v", want, stats.WebSocket)
	}

	api.RecordLimitStats(stats)
	metrics := httptest.NewServer(promhttp.Handler())
	defer metrics.Close()
	mresp, err := http.Get(metrics.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	body, _ := io.ReadAll(mresp.Body)
	mresp.Body.Close()
	for _, line := range []string{
		"websocket_busiest_ip_connections 2",
		"websocket_client_ips 1",
		"websocket_per_ip_limit 3",
		"api_ratelimit_clients 1",
	} {
		if !strings.Contains(string(body), line) {
			t.Errorf("Expected %q in metrics", line)
		}
	}

	a.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	a.Close()
	b.Close()

	deadline := time.Now().Add(3 * time.Second)
	for server.LimitStats().WebSocket.IPs != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected released IPs to be forgotten, got %+v", server.LimitStats().WebSocket)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
