package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxd_store_session_loads_total",
		Help: "Number of session-list loads from the store.",
	})
	saves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxd_store_session_saves_total",
		Help: "Number of session-list saves to the store.",
	})
	decodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxd_store_decode_failures_total",
		Help: "Stored values that failed to decode and were treated as absent.",
	}, []string{"key"})
)

func init() {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "voxd_store_db_size_bytes",
		Help: "Best-effort on-disk size of the pebble database directory.",
	}, func() float64 { return float64(DBSizeBytes()) })
}

// DBSizeBytes computes the on-disk size of the database directory. Returns
// zero when the store is not open.
func DBSizeBytes() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(fi.Size())
		return nil
	})
	return total
}
