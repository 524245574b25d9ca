package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockState tracks whether a single mock service is up and when it flips.
type mockState struct {
	up           bool
	nextChangeAt time.Time
}

// StartMockServer runs mock services under /svc/<name> that go up and down.
// Each service flips every 20-60 seconds. A down service drops the
// connection without responding.
// Call this in a goroutine before adding projects.
func StartMockServer(addr string) {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/svc/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		state, exists := states[name]
		if !exists {
			state = &mockState{
				up:           true,
				nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
			}
			states[name] = state
		}

		// flip when scheduled time is reached
		if time.Now().After(state.nextChangeAt) {
			state.up = !state.up
			state.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("mock service flipped", "service", name, "up", state.up)
		}
		up := state.up
		mu.Unlock()

		if up {
			w.WriteHeader(http.StatusOK)
			return
		}

		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
