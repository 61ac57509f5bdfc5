package services

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurant-api/models"
)

// readyOffsets is the fixed time added on top of the slowest dish:
// drive time, packaging or serving.
var readyOffsets = map[models.OrderType]time.Duration{
	models.OrderDelivery: 30 * time.Minute,
	models.OrderTakeaway: 10 * time.Minute,
	models.OrderDineIn:   5 * time.Minute,
}

// ComputeTotal sums unit price times quantity over all line items.
func ComputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// ComputeEstimatedTime returns now plus the longest preparation time (in
// minutes) plus the offset for the order type.
func ComputeEstimatedTime(now time.Time, orderType models.OrderType, prepTimes []int) time.Time {
	longest := 0
	for _, p := range prepTimes {
		longest = max(longest, p)
	}
	return now.Add(time.Duration(longest)*time.Minute + readyOffsets[orderType])
}
