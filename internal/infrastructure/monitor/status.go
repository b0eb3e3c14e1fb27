package monitor

import "time"

type Status struct {
	API           bool          `json:"api"`
	APILatency    time.Duration `json:"api_latency"`
	Storage       bool          `json:"storage"`
	StorageDriver string        `json:"storage_driver"`
	Authenticated bool          `json:"authenticated"`
	LastCheck     time.Time     `json:"last_check"`
}
