package design

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Location is a WGS-84 coordinate in degrees.
type Location struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// Point converts the location to an orb point (lon, lat order).
func (l Location) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

// Valid reports whether the coordinate lies on the globe.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", l.Lat, l.Lon)
}

// RadioUnit is a fixed demand point. Index is its position in Instance.RadioUnits.
type RadioUnit struct {
	Index    int
	Name     string
	Location Location
}

// SiteCandidate is a DU or CU site. Existing sites get the reduced install cost.
type SiteCandidate struct {
	Index    int
	Name     string
	Location Location
	Existing bool
}

// Instance is the set of locations one planning run works on.
type Instance struct {
	RadioUnits   []RadioUnit
	DUCandidates []SiteCandidate
	CUCandidates []SiteCandidate
}

// RULocations returns the RU coordinates in index order.
func (in Instance) RULocations() []Location {
	out := make([]Location, len(in.RadioUnits))
	for i, ru := range in.RadioUnits {
		out[i] = ru.Location
	}
	return out
}

// DULocations returns the DU candidate coordinates in index order.
func (in Instance) DULocations() []Location {
	return siteLocations(in.DUCandidates)
}

// CULocations returns the CU candidate coordinates in index order.
func (in Instance) CULocations() []Location {
	return siteLocations(in.CUCandidates)
}

func siteLocations(sites []SiteCandidate) []Location {
	out := make([]Location, len(sites))
	for i, s := range sites {
		out[i] = s.Location
	}
	return out
}

// Validate checks indices and coordinates.
func (in Instance) Validate() error {
	for i, ru := range in.RadioUnits {
		if ru.Index != i {
			return fmt.Errorf("radio unit %d: index %d out of order", i, ru.Index)
		}
		if !ru.Location.Valid() {
			return fmt.Errorf("radio unit %d: invalid location %s", i, ru.Location)
		}
	}
	if err := validateSites("du candidate", in.DUCandidates); err != nil {
		return err
	}
	return validateSites("cu candidate", in.CUCandidates)
}

func validateSites(kind string, sites []SiteCandidate) error {
	for i, s := range sites {
		if s.Index != i {
			return fmt.Errorf("%s %d: index %d out of order", kind, i, s.Index)
		}
		if !s.Location.Valid() {
			return fmt.Errorf("%s %d: invalid location %s", kind, i, s.Location)
		}
	}
	return nil
}

// WithRadioUnits returns a copy of the instance with the RU list replaced.
// The candidate slices are shared; they are never modified by the engine.
func (in Instance) WithRadioUnits(rus []RadioUnit) Instance {
	in.RadioUnits = rus
	return in
}
