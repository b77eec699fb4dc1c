package telemetry

import "fmt"

const (
	FieldRequests          = "requests"
	FieldApplied           = "applied"
	FieldHolds             = "holds"
	FieldUnrecognized      = "unrecognized"
	FieldNoReference       = "no_reference"
	FieldFailures          = "failures"
	FieldTransportFailures = "transport_failures"
	FieldParseFailures     = "parse_failures"
	FieldStale             = "stale"
	FieldSuperseded        = "superseded"

	fieldTotalLatency = "total_latency_ms"
	fieldLatencyCount = "latency_count"
)

type Metrics struct {
	CameraID          string `json:"camera_id"`
	Date              string `json:"date"`
	Hour              int    `json:"hour"`
	Requests          int64  `json:"requests"`
	Applied           int64  `json:"applied"`
	Holds             int64  `json:"holds"`
	Unrecognized      int64  `json:"unrecognized"`
	NoReference       int64  `json:"no_reference"`
	Failures          int64  `json:"failures"`
	TransportFailures int64  `json:"transport_failures"`
	ParseFailures     int64  `json:"parse_failures"`
	Stale             int64  `json:"stale"`
	Superseded        int64  `json:"superseded"`
	AvgLatencyMs      int64  `json:"avg_latency_ms"`
}

func MetricsRedisKey(cameraID, date string, hour int) string {
	return fmt.Sprintf("docking:metrics:%s:%s:%d", cameraID, date, hour)
}
