package directory

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

const registrationLayout = "2006-01-02 15:04:05"

// sourceZone is the fixed offset the directory writes registration timestamps in
var sourceZone = time.FixedZone("UTC+1", 60*60)

// rawRecord is one entry of the directory's user list as sent on the wire
type rawRecord struct {
	ID           int64   `json:"employID"`
	Hostname     string  `json:"samaccountname"`
	FullName     string  `json:"displayFName"`
	Email        string  `json:"email"`
	Enabled      int     `json:"accountEnabled"`
	JobTitle     string  `json:"jobTitle"`
	Manager      *string `json:"manager"`
	Location     *string `json:"usageLocation"`
	RegisteredAt *string `json:"userRegistrationDatetime"`
}

func (r *rawRecord) normalize() (model.RosterRecord, error) {
	var enabled bool
	switch r.Enabled {
	case 0:
		enabled = false
	case 1:
		enabled = true
	default:
		return model.RosterRecord{}, goerr.Wrap(ErrInvalidEnabledFlag, "failed to normalize record",
			goerr.V("employ_id", r.ID),
			goerr.V("account_enabled", r.Enabled))
	}

	var registeredAt *time.Time
	if r.RegisteredAt != nil {
		ts, err := time.ParseInLocation(registrationLayout, *r.RegisteredAt, sourceZone)
		if err != nil {
			return model.RosterRecord{}, goerr.Wrap(ErrInvalidRegistrationDate, "failed to normalize record",
				goerr.V("employ_id", r.ID),
				goerr.V("registered_at", *r.RegisteredAt),
				goerr.V("cause", err.Error()))
		}
		utc := ts.UTC()
		registeredAt = &utc
	}

	return model.RosterRecord{
		ExternalID:   model.ExternalID(r.ID),
		Hostname:     r.Hostname,
		FullName:     r.FullName,
		Email:        r.Email,
		IsEnabled:    enabled,
		JobTitle:     r.JobTitle,
		Manager:      r.Manager,
		Location:     r.Location,
		RegisteredAt: registeredAt,
	}, nil
}
