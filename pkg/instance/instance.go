package instance

import "os"

// GetID identifies the running replica in logs. Heroku sets DYNO, containers
// set HOSTNAME; WORKER_ID overrides both.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
