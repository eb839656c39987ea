package instance

import "os"

// ID returns the identifier for this worker process, used in log fields so
// concurrent replicas can be told apart. Falls back to the hostname when
// LUZIMARKET_WORKER_ID is unset.
func ID() string {
	if id := os.Getenv("LUZIMARKET_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
