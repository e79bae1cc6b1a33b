package model

import (
	"fmt"
	"time"
)

// Asset is any unit able to import power from or export power to the grid.
// Durations such as MinZeroTime are expressed in minutes.
type Asset struct {
	ID                int
	Name              string
	Capacity          float64 // MW
	RunningCostPerMWh float64
	MinRequiredProfit float64

	MaxImportMWh float64 // 0 means no rate limit
	MaxExportMWh float64 // 0 means no rate limit

	// SingleImportMW and SingleExportMW mark assets that can only be off or
	// at one fixed level in the given direction. Zero means not fixed.
	SingleImportMW int
	SingleExportMW int

	MinZeroTime             float64
	MinNonZeroTime          float64
	NoticeToDeviateFromZero float64
	NoticeToDeliverBid      float64
	// MaxDeliveryPeriod is nil when the asset can deliver indefinitely.
	MaxDeliveryPeriod *float64

	Rates []Rate
}

// String returns the asset name, falling back to its identifier.
func (a Asset) String() string {
	if a.Name != "" {
		return fmt.Sprintf("Asset(%s)", a.Name)
	}
	return fmt.Sprintf("Asset(%d)", a.ID)
}

// MaxDelivery returns the maximum continuous delivery period and whether
// the asset has one.
func (a Asset) MaxDelivery() (time.Duration, bool) {
	if a.MaxDeliveryPeriod == nil {
		return 0, false
	}
	return Minutes(*a.MaxDeliveryPeriod), true
}

// Rate is a ramp-rate profile in MW per hour.
type Rate struct {
	ID             int
	AssetID        int
	RampUpImport   float64
	RampUpExport   float64
	RampDownImport float64
	RampDownExport float64
	MinMW          int
	MaxMW          *int
}

// BMU is a collection of assets which respond together to a request.
type BMU struct {
	ID     int
	Name   string
	Assets []Asset
}

func (b BMU) String() string {
	if b.Name != "" {
		return fmt.Sprintf("BMU(%s)", b.Name)
	}
	return fmt.Sprintf("BMU(%d)", b.ID)
}

// Minutes converts a fractional minute count to a duration.
func Minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
