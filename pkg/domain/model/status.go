package model

import "time"

// StatusKind names a StatusEvent variant
type StatusKind string

const (
	StatusPassStarted          StatusKind = "pass_started"
	StatusRosterDownloading    StatusKind = "roster_downloading"
	StatusRosterDownloaded     StatusKind = "roster_downloaded"
	StatusRosterDownloadFailed StatusKind = "roster_download_failed"
	StatusJobTitleSyncing      StatusKind = "job_title_syncing"
	StatusJobTitleSyncFailed   StatusKind = "job_title_sync_failed"
	StatusJobTitleSyncFinished StatusKind = "job_title_sync_finished"
	StatusUserSyncing          StatusKind = "user_syncing"
	StatusUserSyncFailed       StatusKind = "user_sync_failed"
	StatusUserSyncFinished     StatusKind = "user_sync_finished"
	StatusPassFinished         StatusKind = "pass_finished"
)

// EventMeta is carried by every StatusEvent
type EventMeta struct {
	PassID string
	At     time.Time
}

// StatusEvent is a progress or failure notification published during a reconciliation pass.
// Implementations are immutable values; new variants may be added, so consumers
// must handle unknown kinds gracefully.
type StatusEvent interface {
	Kind() StatusKind
	Meta() EventMeta
	statusEvent()
}

type PassStarted struct {
	EventMeta
}

type RosterDownloading struct {
	EventMeta
}

type RosterDownloaded struct {
	EventMeta
	Count int
}

// RosterDownloadFailed is fatal: the sync worker stops after publishing it
type RosterDownloadFailed struct {
	EventMeta
	Err error
}

type JobTitleSyncing struct {
	EventMeta
	Label   string
	Current int
	Total   int
}

type JobTitleSyncFailed struct {
	EventMeta
	Label   string
	Current int
	Total   int
	Err     error
}

type JobTitleSyncFinished struct {
	EventMeta
	Total  int
	Cached int
}

type UserSyncing struct {
	EventMeta
	ExternalID ExternalID
	FullName   string
	Email      string
	Current    int
	Total      int
}

type UserSyncFailed struct {
	EventMeta
	ExternalID ExternalID
	FullName   string
	Current    int
	Total      int
	Err        error
}

type UserSyncFinished struct {
	EventMeta
	Result UserSyncResult
}

type PassFinished struct {
	EventMeta
	Duration time.Duration
}

func (x EventMeta) Meta() EventMeta { return x }

func (PassStarted) Kind() StatusKind          { return StatusPassStarted }
func (RosterDownloading) Kind() StatusKind    { return StatusRosterDownloading }
func (RosterDownloaded) Kind() StatusKind     { return StatusRosterDownloaded }
func (RosterDownloadFailed) Kind() StatusKind { return StatusRosterDownloadFailed }
func (JobTitleSyncing) Kind() StatusKind      { return StatusJobTitleSyncing }
func (JobTitleSyncFailed) Kind() StatusKind   { return StatusJobTitleSyncFailed }
func (JobTitleSyncFinished) Kind() StatusKind { return StatusJobTitleSyncFinished }
func (UserSyncing) Kind() StatusKind          { return StatusUserSyncing }
func (UserSyncFailed) Kind() StatusKind       { return StatusUserSyncFailed }
func (UserSyncFinished) Kind() StatusKind     { return StatusUserSyncFinished }
func (PassFinished) Kind() StatusKind         { return StatusPassFinished }

func (PassStarted) statusEvent()          {}
func (RosterDownloading) statusEvent()    {}
func (RosterDownloaded) statusEvent()     {}
func (RosterDownloadFailed) statusEvent() {}
func (JobTitleSyncing) statusEvent()      {}
func (JobTitleSyncFailed) statusEvent()   {}
func (JobTitleSyncFinished) statusEvent() {}
func (UserSyncing) statusEvent()          {}
func (UserSyncFailed) statusEvent()       {}
func (UserSyncFinished) statusEvent()     {}
func (PassFinished) statusEvent()         {}
