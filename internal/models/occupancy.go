package models

// WardOccupancySnapshot 病区占用快照（每个 tick 重新生成，不做历史化）
type WardOccupancySnapshot struct {
	WardName         string  `json:"ward_name"`
	TotalBeds        int     `json:"total_beds"`
	OccupiedBeds     int     `json:"occupied_beds"`
	AvailableBeds    int     `json:"available_beds"`
	OccupancyPercent float64 `json:"occupancy_percent"` // 保留1位小数
	Status           string  `json:"status"`            // low, moderate, high, critical
}

// 占用状态
const (
	OccupancyStatusLow      = "low"
	OccupancyStatusModerate = "moderate"
	OccupancyStatusHigh     = "high"
	OccupancyStatusCritical = "critical"
)
