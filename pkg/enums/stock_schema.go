package enums

// StockSchema identifies which stock representation is authoritative for a
// product. Products can transition between schemas over their lifetime.
type StockSchema string

const (
	StockSchemaPlain      StockSchema = "plain"
	StockSchemaPerSize    StockSchema = "per_size"
	StockSchemaPerVariant StockSchema = "per_variant"
)
