package transmission

import (
	"context"
	"testing"
	"time"

	"github.com/jfxdev/go-transmission/transmissiontest"
)

func BenchmarkSanitizeArguments(b *testing.B) {
	args := Args{
		"ids":             []int{1, 2, 3, 4, 5},
		"uploadLimit":     "100",
		"seedRatioLimit":  "1.5",
		"uploadLimited":   true,
		"location":        "/downloads/caf\xe9",
		"files-unwanted":  []any{},
		"tracker-replace": nil,
		"nested":          map[string]any{"a": "", "b": "2"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeArguments(args)
	}
}

func BenchmarkNormalizeResult(b *testing.B) {
	torrents := make([]any, 50)
	for i := range torrents {
		torrents[i] = map[string]any{
			"id":          float64(i),
			"name":        "torrent",
			"status":      0.0,
			"errorString": "",
			"file-stats":  map[string]any{"0": map[string]any{"bytesCompleted": 1.0}, "1": map[string]any{"bytesCompleted": 2.0}},
		}
	}
	result := map[string]any{"torrents": torrents}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NormalizeResult(result)
	}
}

func BenchmarkStatusMessage(b *testing.B) {
	codes := []int{0, 1, 2, 3, 4, 5, 6, 8, 16}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		StatusMessage(13+i%2, codes[i%len(codes)])
	}
}

func BenchmarkClientCreation(b *testing.B) {
	config := Config{
		URL:            "http://localhost:9091/transmission/rpc",
		Username:       "test",
		Password:       "test",
		RequestTimeout: 30 * time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client, err := New(config)
		if err != nil {
			b.Fatalf("Failed to create client: %v", err)
		}
		client.Close()
	}
}

func BenchmarkConfigUpdate(b *testing.B) {
	client, err := New(Config{
		URL:            "http://localhost:9091/transmission/rpc",
		RequestTimeout: 30 * time.Second,
	})
	if err != nil {
		b.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	newConfig := Config{
		URL:            "http://localhost:9091/transmission/rpc",
		RequestTimeout: 60 * time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client.Update(newConfig)
	}
}

// Benchmark for concurrent operations
func BenchmarkConcurrentCalls(b *testing.B) {
	s := transmissiontest.NewServer()
	defer s.Close()
	s.AddTorrent("ubuntu")

	client, err := New(Config{URL: s.URL()})
	if err != nil {
		b.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			client.GetTorrents(context.Background(), nil, nil)
		}
	})
}
