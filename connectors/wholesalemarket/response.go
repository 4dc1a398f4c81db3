package wholesalemarket

import (
	"fmt"
	"time"

	"github.com/kilianp07/arbitrage/connectors"
	"github.com/kilianp07/arbitrage/core/model"
)

// Response mirrors the france_power_exchanges payload of the RTE API.
type Response struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

// Series flattens every exchange into one price series keyed by the start of
// each delivery period. Prices are in EUR/MWh.
func (r *Response) Series() (model.PriceSeries, error) {
	var points []model.PricePoint
	for _, exchange := range r.FrancePowerExchanges {
		for _, v := range exchange.Values {
			ts, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			points = append(points, model.PricePoint{Time: ts, Price: v.Price})
		}
	}
	return connectors.Normalize(points)
}
