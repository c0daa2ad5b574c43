package outboundq

import "time"

// timeNow is a var, not a direct time.Now call, so tests can shift it
// to exercise failure-cooldown expiry without sleeping real wall time.
var timeNow = time.Now
