package webhook

// Notification is the sanitized shape of an inbound push notification's
// headers (X-Goog-Resource-State, X-Goog-Resource-ID, X-Goog-Resource-URI,
// X-Goog-Channel-ID, X-Goog-Channel-Token in the upstream's own naming).
type Notification struct {
	ResourceState string
	ResourceID    string
	ResourceURI   string
	ChannelID     string
	ChannelToken  string
}

// resourceStatesTriggeringSync is the closed set of resource-state values
// that warrant kicking off an incremental sync. "sync" is the upstream's
// initial handshake notification and carries no change; "exists" covers
// inserts/updates/deletes.
var resourceStatesTriggeringSync = map[string]bool{
	"sync":   true,
	"exists": true,
}

// notificationIncrementalSyncCap bounds the page size of the sync a
// notification triggers, per spec §4.8's "low maxResults cap".
const notificationIncrementalSyncCap = 50
