package models

// AssetClass groups instruments by broad market segment.
type AssetClass string

const (
	AssetEnergy      AssetClass = "Energy"
	AssetMetals      AssetClass = "Metals"
	AssetAgriculture AssetClass = "Agriculture"
	AssetOther       AssetClass = "Other"
)

// Instrument maps a human-readable market name to its CFTC contract code,
// with exchange and commodity-group metadata. Instruments are loaded once at
// startup and read-only for the process lifetime.
type Instrument struct {
	ContractCode   string     `json:"contract_code"`
	Name           string     `json:"name"`
	Exchange       string     `json:"exchange,omitempty"`
	CommodityGroup string     `json:"commodity_group,omitempty"`
	AssetClass     AssetClass `json:"asset_class"`
}
