package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCompileMetric records one compile run as a point in the "compile"
// measurement.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Tags stay low-cardinality (extraction path and outcome only); per-compile
// values travel as fields.
//
// Parameters:
//   - path: extraction path that produced the document ("rules" or "model")
//   - outcome: "ok" when the compile produced no errors, "error" otherwise
//   - duration: wall-clock compile duration
//   - errorCount: number of error diagnostics
//   - warningCount: number of warning diagnostics
func (c *Client) WriteCompileMetric(path, outcome string, duration time.Duration, errorCount, warningCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"compile",
		map[string]string{
			"path":    path,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms":   duration.Milliseconds(),
			"error_count":   errorCount,
			"warning_count": warningCount,
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}

// WriteCatalogMetric records the entity count after a catalog refresh in
// the "catalog" measurement.
func (c *Client) WriteCatalogMetric(entities int, version uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"catalog",
		nil,
		map[string]interface{}{
			"entities": entities,
			"version":  int64(version), // #nosec G115 -- snapshot versions stay far below int64 range
		},
		time.Now(),
	)

	c.writes.WritePoint(point)
}
