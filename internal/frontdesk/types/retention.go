package types

// RetentionCounts are the rows removed by one purge run, per table.
type RetentionCounts struct {
	Profiles   int64 `json:"profiles_deleted"`
	Visits     int64 `json:"visits_deleted"`
	Dependents int64 `json:"dependents_deleted"`
}

// RetentionResult reports a purge run. Err is empty on success and holds
// the failure message otherwise.
type RetentionResult struct {
	Counts RetentionCounts `json:"counts"`
	Err    string          `json:"error,omitempty"`
}
