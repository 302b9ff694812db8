package model

import "time"

// ObservationRow is the Parquet layout used by rate-card export and import.
type ObservationRow struct {
	ServiceKey string    `parquet:"service_key"`
	Price      float64   `parquet:"price"`
	City       string    `parquet:"city"`
	ObservedAt time.Time `parquet:"observed_at,timestamp"`
}

// ObservationColumns lists the columns an import file must carry.
func ObservationColumns() []string {
	return []string{"service_key", "price", "observed_at"}
}

// ObservationRows flattens a rate card into export rows, ordered by the
// caller-supplied key order.
func ObservationRows(rc RateCard, keys []string) []ObservationRow {
	var rows []ObservationRow
	for _, k := range keys {
		for _, o := range rc[k].Observations {
			rows = append(rows, ObservationRow{
				ServiceKey: k,
				Price:      o.Price,
				City:       o.City,
				ObservedAt: o.Timestamp,
			})
		}
	}
	return rows
}
