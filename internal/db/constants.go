package db

// Keys stored in the app_state table.
const (
	// StateLastResetDate is the calendar date of the last daily rollover.
	StateLastResetDate = "ledger.last_reset_date"
	// StateForcedResetDone marks the one-shot forced reset migration as complete.
	StateForcedResetDone = "migration.forced_reset_v1"
	// StateFireCursor is the sequence number of the last relayed fire consumed.
	StateFireCursor = "fires.cursor"
	// StateSignalsReceived counts cross-process signals observed by this process.
	StateSignalsReceived = "diag.signals_received"
)

// legacyResetDates are defaults written by earlier builds that compare
// incorrectly against real calendar dates.
var legacyResetDates = []string{"0001-01-01", "1970-01-01", "4001-01-01"}
