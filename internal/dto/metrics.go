package dto

type CameraMetricsResponse struct {
	Date              string `json:"date" example:"2024-01-15"`
	Hour              int    `json:"hour" example:"14"`
	Requests          int64  `json:"requests" example:"3600"`
	Applied           int64  `json:"applied" example:"3100"`
	Holds             int64  `json:"holds" example:"300"`
	Unrecognized      int64  `json:"unrecognized" example:"12"`
	NoReference       int64  `json:"no_reference" example:"0"`
	Failures          int64  `json:"failures" example:"40"`
	TransportFailures int64  `json:"transport_failures" example:"30"`
	ParseFailures     int64  `json:"parse_failures" example:"10"`
	Stale             int64  `json:"stale" example:"2"`
	Superseded        int64  `json:"superseded" example:"5"`
	AvgLatencyMs      int64  `json:"avg_latency_ms" example:"180"`
}

type CameraMetricsListResponse struct {
	CameraID string                  `json:"camera_id" example:"forward"`
	Hours    int                     `json:"hours" example:"24"`
	Metrics  []CameraMetricsResponse `json:"metrics"`
}

type SampleResponse struct {
	CameraID    string `json:"camera_id" example:"down"`
	Command     string `json:"command" example:"align with port"`
	Timestamp   int64  `json:"timestamp" example:"1705329600000"`
	ImageBase64 string `json:"image_base64"`
}

type SampleListResponse struct {
	CameraID string           `json:"camera_id" example:"down"`
	Samples  []SampleResponse `json:"samples"`
}
