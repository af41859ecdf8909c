//go:build profile

package profiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Scope-span profiler behind the "profile" build tag. Spans land in a fixed
// ring buffer; Dump writes a speedscope-compatible file.

type span struct {
	Name string
	Open bool
	AtNS int64
}

var (
	ready atomic.Bool
	spans []span
	head  atomic.Int64
)

// Init must be called once with a span capacity before Start is useful.
func Init(capacity int) {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	spans = make([]span, capacity)
	head.Store(0)
	ready.Store(true)
}

// Start begins a scope and returns an end func to be deferred.
func Start(name string) func() {
	if !ready.Load() {
		return func() {}
	}
	push(span{Name: name, Open: true, AtNS: time.Now().UnixNano()})
	return func() {
		push(span{Name: name, Open: false, AtNS: time.Now().UnixNano()})
	}
}

func push(s span) {
	i := head.Add(1) - 1
	spans[int(i)%len(spans)] = s
}

// Dump writes the recorded spans as a speedscope "evented" profile and
// returns the file path.
func Dump() (string, error) {
	if !ready.Load() {
		return "", fmt.Errorf("profiler: not initialized")
	}

	type event struct {
		Type string `json:"type"`
		At   int64  `json:"at"`
		Name string `json:"name"`
	}
	n := int(head.Load())
	if n > len(spans) {
		n = len(spans)
	}
	events := make([]event, 0, n)
	var start, end int64
	for i := 0; i < n; i++ {
		s := spans[i]
		typ := "C"
		if s.Open {
			typ = "O"
		}
		if start == 0 || s.AtNS < start {
			start = s.AtNS
		}
		if s.AtNS > end {
			end = s.AtNS
		}
		events = append(events, event{Type: typ, At: s.AtNS, Name: s.Name})
	}

	out := map[string]any{
		"version": "0.0.1",
		"$schema": "https://www.speedscope.app/file-format-schema.json",
		"profiles": []map[string]any{{
			"type":       "evented",
			"name":       "thicket",
			"unit":       "nanoseconds",
			"startValue": start,
			"endValue":   end,
			"events":     events,
		}},
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("thicket-%d.speedscope.json", time.Now().Unix()))
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
