package manifest

import (
	"strings"
	"time"

	"github.com/banshee-data/tensor.report/internal/timeutil"
)

// WAL mode keeps readers unblocked, but concurrent writers can still hit
// SQLITE_BUSY. Short writes retry with a growing backoff.
const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

// isSQLiteBusy reports whether err is a transient lock error worth
// retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn, retrying up to busyRetries times while it keeps
// failing with a busy error. Any other error returns immediately.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = fn()
		if !isSQLiteBusy(err) {
			return err
		}
		clock.Sleep(busyBackoff * time.Duration(attempt+1))
	}
	return err
}
