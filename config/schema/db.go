package schema

// GateConfig is the single administrative identity row. The administrator can
// only change through a designated update on this table, never through the
// public API.
type GateConfig struct {
	ID           uint `gorm:"primarykey"`
	AdminAddress string
}

type IpRateWhitelist struct {
	ID          uint   `gorm:"primarykey"`
	OriginOrIP  string // e.g "188.0.2.2"
	Available   bool   `gorm:"index:idx_rate01"` // true means effective
	Description string
}
