// Package hydrotwin provides a library for calibrating hydraulic models of
// water-distribution networks against live sensor data.
//
// A network is read from a GeoJSON-like feature collection (see [Model]):
// nodes, pipes, valves, a single fixed head and transfer nodes, together with
// per-node demands, demand profiles and raw live-data records.
//
// The package covers three cooperating concerns:
//
//   - [Network.Trace] decomposes the network into sub-networks rooted at
//     virtual heads - the true fixed head and every point carrying live data -
//     producing a trace tree of [Leaf] and [Branch] nodes.
//   - [Network.ExtractSubModel] re-roots the network at any live-data point,
//     turning it into a fixed head whose level follows the aligned sensor data.
//   - [Align] resamples raw, irregularly time-stamped sensor readings onto the
//     canonical timeline of the simulation.
//
// Serialising a model into solver input lives in the compilation package, and
// the solver boundary (a single-slot, latest-wins work queue) in the solver
// package.
package hydrotwin
