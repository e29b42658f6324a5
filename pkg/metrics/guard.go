package metrics

import (
	"fmt"
	"net"
	"syscall"

	elastic "github.com/olivere/elastic/v7"
	"github.com/pkg/errors"

	"github.com/modeyang/rally/pkg/errs"
)

// Guard wraps backend operations and translates transport-level failures into
// the closed error taxonomy. Classification is based on the failure's
// semantic category (connection refused, HTTP 401, HTTP 403), never on
// message text, so wording changes in the backend client cannot alter
// user-visible diagnostics.
type Guard struct {
	host           string
	port           int
	configLocation string
}

// NewGuard creates a guard for a metrics store backend reachable at
// host:port. configLocation is the path of the tool's configuration file,
// referenced in remediation hints.
func NewGuard(host string, port int, configLocation string) *Guard {
	return &Guard{host: host, port: port, configLocation: configLocation}
}

// Do runs the named operation and classifies any failure it returns, in
// priority order: connection, authentication, authorization, everything else.
// On success the operation's result is passed through unchanged.
func (g *Guard) Do(operation string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	switch {
	case isConnectionError(err):
		return errs.SystemSetup("Could not connect to your Elasticsearch metrics store. Please check that it is running on host [%s] at port [%d] or fix the configuration in [%s].",
			g.host, g.port, g.configLocation)
	case elastic.IsUnauthorized(err):
		return errs.SystemSetup("The configured user could not authenticate against your Elasticsearch metrics store running on host [%s] at port [%d] (wrong password?). Please fix the configuration in [%s].",
			g.host, g.port, g.configLocation)
	case elastic.IsForbidden(err):
		return errs.SystemSetup("The configured user does not have enough privileges to run the operation [%s] against your Elasticsearch metrics store running on host [%s] at port [%d]. Please adjust your x-pack configuration or specify a user with enough privileges in the configuration in [%s].",
			operation, g.host, g.port, g.configLocation)
	default:
		return &errs.RallyError{
			Message: fmt.Sprintf("An unknown error occurred while running the operation [%s] against your Elasticsearch metrics store on host [%s] at port [%d].",
				operation, g.host, g.port),
			Cause: err,
		}
	}
}

func isConnectionError(err error) bool {
	if elastic.IsConnErr(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ETIMEDOUT:
			return true
		}
	}
	return false
}
