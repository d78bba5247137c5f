package generator

import (
	"math"
	"math/rand"

	"mediq-simulator/internal/models"
)

// WardConfig 病区配置（床位总数与占用率区间）
type WardConfig struct {
	TotalBeds    int
	MinOccupancy float64
	MaxOccupancy float64
}

// 各病区的占用率区间配置
var wardConfigs = map[string]WardConfig{
	"ICU":       {TotalBeds: 20, MinOccupancy: 60, MaxOccupancy: 100},
	"Ward A":    {TotalBeds: 40, MinOccupancy: 40, MaxOccupancy: 95},
	"Ward B":    {TotalBeds: 35, MinOccupancy: 35, MaxOccupancy: 90},
	"Emergency": {TotalBeds: 15, MinOccupancy: 50, MaxOccupancy: 100},
	"Surgical":  {TotalBeds: 30, MinOccupancy: 30, MaxOccupancy: 85},
}

// WardOccupancyGenerator 病区占用生成器
// 每个病区在自己的 [min,max] 占用率区间内抽取，与生命体征生成相互独立
type WardOccupancyGenerator struct {
	rng *rand.Rand
}

// NewWardOccupancyGenerator 创建病区占用生成器
func NewWardOccupancyGenerator(rng *rand.Rand) *WardOccupancyGenerator {
	return &WardOccupancyGenerator{rng: rng}
}

// Generate 生成指定病区的占用快照（未知病区回退到 Ward A 配置）
func (g *WardOccupancyGenerator) Generate(wardName string) models.WardOccupancySnapshot {
	cfg, ok := wardConfigs[wardName]
	if !ok {
		cfg = wardConfigs["Ward A"]
	}

	pct := cfg.MinOccupancy + g.rng.Float64()*(cfg.MaxOccupancy-cfg.MinOccupancy)
	pct = math.Round(pct*10) / 10

	occupied := int(math.Round(float64(cfg.TotalBeds) * pct / 100))

	return models.WardOccupancySnapshot{
		WardName:         wardName,
		TotalBeds:        cfg.TotalBeds,
		OccupiedBeds:     occupied,
		AvailableBeds:    cfg.TotalBeds - occupied,
		OccupancyPercent: pct,
		Status:           occupancyStatus(pct),
	}
}

// GenerateAll 生成所有病区的占用快照
func (g *WardOccupancyGenerator) GenerateAll() map[string]models.WardOccupancySnapshot {
	occupancy := make(map[string]models.WardOccupancySnapshot, len(Wards))
	for _, ward := range Wards {
		occupancy[ward] = g.Generate(ward)
	}
	return occupancy
}

// occupancyStatus 根据占用率得出状态分类
func occupancyStatus(pct float64) string {
	switch {
	case pct >= 95:
		return models.OccupancyStatusCritical
	case pct >= 85:
		return models.OccupancyStatusHigh
	case pct >= 60:
		return models.OccupancyStatusModerate
	default:
		return models.OccupancyStatusLow
	}
}
