package metrics

import (
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// Health is the process report served next to token usage.
type Health struct {
	HeapMB     uint64 `json:"heap_mb"`
	SysMB      uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
	Uptime     string `json:"uptime"`

	// Recipes is the size of the in-memory catalogue prompts sample from.
	Recipes int `json:"recipes"`

	DatabaseBytes int64  `json:"database_bytes"`
	DatabaseSize  string `json:"database_size"`
}

var startedAt = time.Now()

// ReadHealth reports runtime stats, the catalogue size and the on-disk size
// of the metrics database, write-ahead log included.
func ReadHealth(databasePath string, recipes int) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	dbBytes := databaseSize(databasePath)
	return Health{
		HeapMB:        m.HeapAlloc / 1024 / 1024,
		SysMB:         m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        time.Since(startedAt).Truncate(time.Second).String(),
		Recipes:       recipes,
		DatabaseBytes: dbBytes,
		DatabaseSize:  humanize.IBytes(uint64(dbBytes)),
	}
}

func databaseSize(path string) int64 {
	var size int64
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			size += info.Size()
		}
	}
	return size
}
