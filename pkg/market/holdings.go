package market

import "github.com/shopspring/decimal"

// AssetHolding is the engine's view of one asset position.
type AssetHolding struct {
	Available int `json:"available"`
	Settled   int `json:"settled"`
}

// Holdings is a snapshot of the participant's positions and cash as
// pushed by the remote engine. The client only displays it; it never
// computes or mutates these figures.
type Holdings struct {
	Assets        map[string]AssetHolding `json:"assets"`
	AvailableCash decimal.Decimal         `json:"available_cash"`
	SettledCash   decimal.Decimal         `json:"settled_cash"`
}

// EndowmentHoldings builds the period-start snapshot from configured
// endowments, with available and settled figures equal.
func EndowmentHoldings(assetEndowments map[string]int, cashEndowment decimal.Decimal) Holdings {
	h := Holdings{
		Assets:        make(map[string]AssetHolding, len(assetEndowments)),
		AvailableCash: cashEndowment,
		SettledCash:   cashEndowment,
	}
	for name, units := range assetEndowments {
		h.Assets[name] = AssetHolding{Available: units, Settled: units}
	}
	return h
}

// AssetNames returns the asset universe of this snapshot.
func (h Holdings) AssetNames() []string {
	names := make([]string, 0, len(h.Assets))
	for name := range h.Assets {
		names = append(names, name)
	}
	return names
}
