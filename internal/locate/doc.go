// Package locate orchestrates duplicate detection end to end.
//
// WalkThenMatch walks a directory and checks every file against one or more
// catalogues as it goes, recording hits in a match report. CatalogueDedup
// works only on catalogued data, finding duplicate clusters inside each
// catalogue and optionally recording them in a cluster report.
package locate
