package model

// JobTitleID is the local identifier of a job title
type JobTitleID int64

// JobTitle is a locally stored job title. Label mirrors the directory spelling and is unique.
type JobTitle struct {
	ID           JobTitleID
	Label        string
	Name         *string // display name, curated by administrators
	DepartmentID *int64
	ParentID     *JobTitleID
}

// CreateJobTitleArgs holds the fields of a new job title
type CreateJobTitleArgs struct {
	Label        string
	Name         *string
	DepartmentID *int64
	ParentID     *JobTitleID
}

// JobTitleCache maps job title labels to local IDs for a single reconciliation pass.
// The zero value is an empty cache. A cache is never modified after construction.
type JobTitleCache struct {
	ids map[string]JobTitleID
}

// NewJobTitleCache builds a cache from a copy of ids
func NewJobTitleCache(ids map[string]JobTitleID) JobTitleCache {
	copied := make(map[string]JobTitleID, len(ids))
	for label, id := range ids {
		copied[label] = id
	}
	return JobTitleCache{ids: copied}
}

// Lookup returns the job title ID cached for label
func (c JobTitleCache) Lookup(label string) (JobTitleID, bool) {
	id, ok := c.ids[label]
	return id, ok
}

// Len returns the number of cached labels
func (c JobTitleCache) Len() int {
	return len(c.ids)
}

// Labels returns the cached labels in no particular order
func (c JobTitleCache) Labels() []string {
	labels := make([]string, 0, len(c.ids))
	for label := range c.ids {
		labels = append(labels, label)
	}
	return labels
}
