package model

import "time"

// ExternalID is the directory's stable per-person identifier (employID)
type ExternalID int64

// RosterRecord is one normalized entry of a directory roster snapshot.
// It lives only for the duration of a single reconciliation pass.
type RosterRecord struct {
	ExternalID   ExternalID
	Hostname     string // sAMAccountName
	FullName     string
	Email        string
	IsEnabled    bool
	JobTitle     string // job title label as spelled by the directory
	Manager      *string
	Location     *string
	RegisteredAt *time.Time // always UTC
}

// JobTitleLabels returns the distinct job title labels of roster in first-seen order
func JobTitleLabels(roster []RosterRecord) []string {
	seen := make(map[string]struct{}, len(roster))
	labels := make([]string, 0, len(roster))
	for _, rec := range roster {
		if _, ok := seen[rec.JobTitle]; ok {
			continue
		}
		seen[rec.JobTitle] = struct{}{}
		labels = append(labels, rec.JobTitle)
	}
	return labels
}
