// Package preflight provides readiness checks for the filesystem paths a
// dupmap command depends on.
//
// Commands run RunAll before doing any work: a scan root that cannot be read or
// an output directory that cannot be written fails the command up front
// instead of part way through a long walk. Each check reports a Result so the
// CLI can render failures in one table.
package preflight
