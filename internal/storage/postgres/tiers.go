package postgres

import (
	"encoding/json"

	"github.com/tessera-live/tessera/internal/domain"
)

// Tiers are stored as a JSONB column: they are read back only as a block,
// never queried field-by-field.
type tierJSON struct {
	Name     string `json:"name"`
	PriceWei uint64 `json:"price_wei"`
	Quantity int    `json:"quantity"`
}

func encodeTiers(tiers []domain.TicketTier) ([]byte, error) {
	out := make([]tierJSON, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, tierJSON{Name: t.Name, PriceWei: t.PriceWei, Quantity: t.Quantity})
	}
	return json.Marshal(out)
}

func decodeTiers(data []byte) ([]domain.TicketTier, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var in []tierJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	tiers := make([]domain.TicketTier, 0, len(in))
	for _, t := range in {
		tiers = append(tiers, domain.TicketTier{Name: t.Name, PriceWei: t.PriceWei, Quantity: t.Quantity})
	}
	return tiers, nil
}
