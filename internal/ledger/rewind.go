package ledger

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// RewindLots reconstructs lot depletion state from a bounded transaction
// stream. Each lot is reset to its full quantity, then every sell in txs
// is re-applied FIFO. Callers holding the lots purchased on or before a
// cutoff date and the transactions up to that date get the inventory
// exactly as it stood then, not as it stands today. Lot identity and cost
// basis come from the stored lots; only remaining quantity and closure
// are recomputed.
func RewindLots(lots []models.TaxLot, txs []models.Transaction) ([]models.TaxLot, error) {
	out := make([]models.TaxLot, len(lots))
	copy(out, lots)
	for i := range out {
		out[i].RemainingQuantity = out[i].Quantity
		out[i].ClosedAt = nil
	}

	var sells []models.Transaction
	for _, tx := range txs {
		if tx.Type == models.TxSell {
			sells = append(sells, tx)
		}
	}
	sort.SliceStable(sells, func(i, j int) bool {
		if sells[i].Date.Equal(sells[j].Date) {
			return sells[i].CreatedAt.Before(sells[j].CreatedAt)
		}
		return sells[i].Date.Before(sells[j].Date)
	})

	for _, sell := range sells {
		var open []models.TaxLot
		for i := range out {
			if out[i].AccountID == sell.AccountID && out[i].AssetID == sell.AssetID && out[i].Open() {
				open = append(open, out[i])
			}
		}
		depletions, _, err := depleteFIFO(open, sell.Quantity, sell.AccountID, sell.AssetID)
		if err != nil {
			return nil, fmt.Errorf("replay of sell %s failed: %w", sell.ID, err)
		}
		applyDepletions(out, depletions, sell.Date)
	}
	return out, nil
}
