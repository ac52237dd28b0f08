package analysis

import "errors"

var (
	ErrInvalidAnalysisPayload = errors.New("invalid analysis payload")
	ErrAlreadyAnalyzed        = errors.New("document already analyzed")
	ErrNotInProgress          = errors.New("analysis is not in progress")
)
