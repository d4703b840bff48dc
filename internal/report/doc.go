// Package report persists duplicate findings and renders them for people.
//
// MatchStore records which local files matched which catalogued files during a
// walk-then-match locate and supports pruning entries whose local file is gone.
// ClusterStore records duplicate clusters found inside a catalogue. The export
// functions render match reports as CSV or a static HTML page.
package report
