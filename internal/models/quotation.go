package models

import "fmt"

const (
	BoardCoverageSqft   = 32
	BoardUnitPrice      = 695
	ChannelCoverageSqft = 16
	ChannelUnitPrice    = 140
)

// EstimateItem is one area the customer wants covered.
type EstimateItem struct {
	AreaSqft    int    `json:"area_sqft"`
	Brand       string `json:"brand"`
	ProductName string `json:"product_name"`
}

// EstimateLine is a priced material line.
type EstimateLine struct {
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Total     int    `json:"total"`
	Note      string `json:"note,omitempty"`
}

// Estimate prices boards and the GI channel needed for every item. Partial
// boards and channels are not counted.
func Estimate(items []EstimateItem) ([]EstimateLine, int) {
	lines := make([]EstimateLine, 0, len(items)*2)
	total := 0
	for _, item := range items {
		boards := item.AreaSqft / BoardCoverageSqft
		lines = append(lines, EstimateLine{
			Item:      fmt.Sprintf("%s %s", item.Brand, item.ProductName),
			Quantity:  boards,
			UnitPrice: BoardUnitPrice,
			Total:     boards * BoardUnitPrice,
		})
		total += boards * BoardUnitPrice

		channels := item.AreaSqft / ChannelCoverageSqft
		lines = append(lines, EstimateLine{
			Item:      "GI Channel (Calculated)",
			Quantity:  channels,
			UnitPrice: ChannelUnitPrice,
			Total:     channels * ChannelUnitPrice,
			Note:      fmt.Sprintf("Auto-added based on %dsqft", item.AreaSqft),
		})
		total += channels * ChannelUnitPrice
	}
	return lines, total
}
