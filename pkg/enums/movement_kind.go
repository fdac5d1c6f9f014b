package enums

// MovementKind classifies a stock history entry.
type MovementKind string

const (
	MovementKindSale       MovementKind = "sale"
	MovementKindAdjustment MovementKind = "adjustment"
)
