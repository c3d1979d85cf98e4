package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Toronto")
	if err != nil {
		panic(err)
	}
}

// force timestamps into the GTA's timezone because the collector can
// run on servers in other regions, which would skew date-based
// metadata like last_updated
func Now() time.Time {
	return time.Now().In(Location)
}
