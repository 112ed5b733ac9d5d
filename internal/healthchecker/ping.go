package healthchecker

import (
	"context"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// CheckPing adapts any client with a Ping method, such as the object store or
// the token blacklist.
func CheckPing(client pinger) Check {
	return client.Ping
}
