package scenario

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
)

// NodeRow is one line of a road-graph nodes file.
type NodeRow struct {
	ID  int64   `csv:"id"`
	Lat float64 `csv:"lat"`
	Lon float64 `csv:"lon"`
}

// EdgeRow is one line of a road-graph edges file; Length is in meters.
type EdgeRow struct {
	From   int64   `csv:"from"`
	To     int64   `csv:"to"`
	Length float64 `csv:"length"`
}

func readCSV(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ReadLocations reads a lat,lon[,existing][,name] CSV file with a header row.
func ReadLocations(path string) ([]LocationSpec, error) {
	var rows []LocationSpec
	if err := readCSV(path, &rows); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if !(design.Location{Lat: r.Lat, Lon: r.Lon}).Valid() {
			return nil, fmt.Errorf("%s row %d: invalid coordinate (%f, %f)", path, i+1, r.Lat, r.Lon)
		}
	}
	return rows, nil
}

// ReadRoadGraph builds a road network from nodes (id,lat,lon) and edges
// (from,to,length) CSV files.
func ReadRoadGraph(nodesPath, edgesPath string) (*distance.Network, error) {
	var nodes []NodeRow
	if err := readCSV(nodesPath, &nodes); err != nil {
		return nil, err
	}
	var edges []EdgeRow
	if err := readCSV(edgesPath, &edges); err != nil {
		return nil, err
	}
	net := distance.NewNetwork(nil)
	for _, n := range nodes {
		if err := net.AddNode(n.ID, design.Location{Lat: n.Lat, Lon: n.Lon}); err != nil {
			return nil, fmt.Errorf("%s: %w", nodesPath, err)
		}
	}
	for _, e := range edges {
		if err := net.AddRoad(e.From, e.To, e.Length); err != nil {
			return nil, fmt.Errorf("%s: %w", edgesPath, err)
		}
	}
	if net.Len() == 0 {
		return nil, fmt.Errorf("%s: road graph has no nodes", nodesPath)
	}
	return net, nil
}
