package constants

import "time"

// Session and token lifetimes
const (
	SessionLifetime      = 24 * time.Hour
	SignTokenLifetime    = 14 * 24 * time.Hour
	GuestSessionLifetime = 24 * time.Hour
)

// Background worker intervals
const (
	OutboxPollInterval  = 500 * time.Millisecond
	OutboxMaxAttempts   = 5
	OutboxFetchBatch    = 100
	GuestSweepSchedule  = "@every 10m"
	ContractExpirySched = "@hourly"
	WeeklyDigestSched   = "0 9 * * MON"
)

// Payout parameter defaults applied when a task is created without explicit
// Shapley parameters.
const (
	DefaultPayoutV0    = 0.0
	DefaultPayoutP0    = 0.5
	DefaultPayoutBeta  = 1.0
	DefaultPayoutGamma = 0.7
	DefaultPayoutK     = 3
)

// R-ratio defaults for new users: half fixed salary, half performance, with
// the full [0,1] range permitted until an admin narrows it.
const (
	DefaultR    = 0.5
	DefaultRMin = 0.0
	DefaultRMax = 1.0
)

// File upload limits for contract documents
const (
	MaxContractPDFBytes = 10 << 20 // 10 MB
	UploadDir           = "uploads"
)

// Pagination caps
const (
	DefaultPageSize      = 50
	MaxPageSize          = 200
	NotificationListCap  = 100
	GuestSeedTaskCount   = 3
)
