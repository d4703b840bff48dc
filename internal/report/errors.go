package report

import "errors"

var (
	// ErrReportNotFound indicates the report database does not exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidCluster indicates a cluster whose members disagree on name,
	// size, or hash, or that has fewer than two members.
	ErrInvalidCluster = errors.New("invalid duplicate cluster")
)
