package resolver

import "errors"

// Sentinel errors mapping to spec.md §7's taxonomy, wrapped into the
// descriptive messages ChainResult.Errors accumulates.
var (
	ErrFetchFailed        = errors.New("fetch failed")
	ErrVerificationFailed = errors.New("verification failed")
	ErrStructural         = errors.New("structural failure")
	ErrSubjectMismatch    = errors.New("subject mismatch")
)
