// Package agent connects to the local devmirror agent.
package agent

//go:generate mockery -name Client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding/gzip"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/sidkik/devmirror/pkg/errors"
	"github.com/sidkik/devmirror/pkg/retry"
)

// ServiceName is the name used in connection errors.
const ServiceName = "devmirror agent"

// attemptTimeout bounds a single health check.
const attemptTimeout = 5 * time.Second

// Status is reported every time a connection to the agent is established.
type Status struct {
	Address string
	Serving string
}

// Event is either a Status or an error. Errors are always
// errors.ConnectionError values.
type Event struct {
	Status Status
	Err    error
}

// Client is used for communicating with the local agent.
type Client interface {
	// Connect keeps trying to reach the agent at `address` every
	// `retrySeconds`. An event is sent whenever the connection comes up or
	// goes down. The channel is closed once ctx is cancelled.
	Connect(ctx context.Context, retrySeconds int, address string) <-chan Event
}

type grpcClient struct {
	clock clockwork.Clock
}

// New creates a client that checks the agent through the standard gRPC
// health service.
func New() Client {
	return grpcClient{clock: clockwork.NewRealClock()}
}

// Mocked for unit testing.
var dial = dialImpl

func dialImpl(addr string) (*grpc.ClientConn, error) {
	keepaliveOpt := grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 30 * time.Second})
	return grpc.Dial(addr, grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)), keepaliveOpt)
}

func (c grpcClient) Connect(ctx context.Context, retrySeconds int, address string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)

		send := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		target, err := grpcTarget(address)
		if err != nil {
			send(Event{Err: errors.ConnectionError{
				Service: ServiceName,
				Kind:    errors.KindGeneric,
				Err:     errors.WithContext(err, "parse address"),
			}})
			return
		}

		conn, err := dial(target)
		if err != nil {
			send(Event{Err: errors.ConnectionError{
				Service: ServiceName,
				Kind:    errors.KindGeneric,
				Err:     errors.WithContext(err, "dial"),
			}})
			return
		}
		defer conn.Close()

		health := healthpb.NewHealthClient(conn)
		var last Status
		attempt := func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
			defer cancel()

			resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{})
			if err != nil {
				return classify(err)
			}
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return errors.ConnectionError{
					Service: ServiceName,
					Kind:    errors.KindGeneric,
					Err:     errors.New("agent is %s", resp.GetStatus()),
				}
			}
			last = Status{Address: address, Serving: resp.GetStatus().String()}
			return nil
		}

		retry.Poll(ctx, c.clock, retry.Interval(retrySeconds), attempt, func(err error) {
			if err != nil {
				log.WithError(err).WithField("address", address).Debug("Agent connection lost")
				send(Event{Err: err})
				return
			}
			log.WithField("address", address).Debug("Connected to agent")
			send(Event{Status: last})
		})
	}()
	return events
}

func classify(err error) error {
	kind := errors.KindGeneric
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		kind = errors.KindUnreachable
	}
	return errors.ConnectionError{Service: ServiceName, Kind: kind, Err: err}
}

// grpcTarget converts the configured agent URL into a gRPC dial target.
// Plain host:port addresses are accepted as is.
func grpcTarget(address string) (string, error) {
	if !strings.Contains(address, "://") {
		return address, nil
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("missing host in %q", address)
	}
	return u.Host, nil
}
