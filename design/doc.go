// Package design provides the network-design engine for two-tier OpenRAN
// fronthaul/midhaul planning.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - location.go: Location, RadioUnit, SiteCandidate and the Instance they form
//   - params.go: capacities, distance ceilings and cost coefficients
//   - model.go: the capacitated two-echelon facility-location model
//   - extract.go: thresholding of solver values into a DesignSolution
//
// # Architecture
//
// The design package defines the data model, the optimization model and the
// solution extractor; collaborators live in sub-packages:
//   - design/distance/: RU×DU and DU×CU distance matrices, repair policy, road network
//   - design/milp/: binary linear programs and the Solver interface (branch-and-bound backend)
//   - design/distcache/: SQLite cache for pair measurements
//   - design/scenario/: YAML scenario and CSV input loading
//   - design/trace/: repair and solve records
//   - design/metrics/: Prometheus collectors for a planning run
//   - design/pipeline/: the distance → model → solve → extract pipeline
//
// Data flows strictly from distances to model to solver to extractor. Nothing
// in this package keeps state between runs.
package design
