// Package coords carries the static facility coordinate table. None of
// the booking platforms return geocoordinates, so the table is
// maintained by hand in coordinates.json5 and keyed by pool id.
package coords

import (
	"gtapools-backend/lib/configutil"
	"gtapools-backend/lib/pool"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Table map[string]Coordinates

// Load reads the coordinate table from a JSON5 file through configutil,
// so a `.local` override file works the same way it does for the main
// config.
func Load(name string) (Table, error) {
	return configutil.ReadConfig[Table](name)
}

// Annotate fills latitude/longitude for every pool the table knows.
// Unknown pools keep null coordinates.
func (t Table) Annotate(pools []pool.Pool) {
	for i := range pools {
		c, ok := t[pools[i].ID]
		if !ok {
			continue
		}
		lat := c.Lat
		lng := c.Lng
		pools[i].Latitude = &lat
		pools[i].Longitude = &lng
	}
}
