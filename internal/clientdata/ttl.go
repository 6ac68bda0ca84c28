package clientdata

import "time"

// TTLSnapshot is the default freshness window of a collection snapshot.
// STOCKDESK_CACHE_TTL overrides it.
const TTLSnapshot = 10 * time.Minute
