// Package coordination provides optional leader election so that, when
// the CORE is deployed with multiple replicas sharing one Repository,
// only one process runs the Generator, Lifecycle, and Telemetry
// Simulator background loops at a time, preserving a single-writer-per-entity
// assumption without requiring a single-process deployment. It is built
// directly against go.etcd.io/etcd/client/v3's concurrency primitives.
package coordination

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// Elector campaigns for and holds a single named leadership lease.
type Elector struct {
	client   *clientv3.Client
	session  *concurrency.Session
	election *concurrency.Election
	key      string
}

// NewElector connects to the given etcd endpoints and prepares an
// election under key. The session's lease is kept alive automatically by
// the etcd client until Close is called or the connection is lost.
func NewElector(endpoints []string, key string) (*Elector, error) {
	client, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, fmt.Errorf("coordination: connect etcd: %w", err)
	}
	session, err := concurrency.NewSession(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("coordination: new session: %w", err)
	}
	return &Elector{
		client:   client,
		session:  session,
		election: concurrency.NewElection(session, key),
		key:      key,
	}, nil
}

// Campaign blocks until this process becomes leader or ctx is cancelled.
func (e *Elector) Campaign(ctx context.Context) error {
	return e.election.Campaign(ctx, "leader")
}

// Resign gives up leadership without closing the session, so a future
// Campaign call can re-acquire it.
func (e *Elector) Resign(ctx context.Context) error {
	return e.election.Resign(ctx)
}

// IsLeader reports whether this process currently holds leadership by
// checking the election's current leader key against our own session.
func (e *Elector) IsLeader(ctx context.Context) (bool, error) {
	resp, err := e.election.Leader(ctx)
	if err != nil {
		if err == concurrency.ErrElectionNoLeader {
			return false, nil
		}
		return false, err
	}
	if len(resp.Kvs) == 0 {
		return false, nil
	}
	return resp.Kvs[0].Lease == int64(e.session.Lease()), nil
}

// Close resigns leadership (if held), closes the session, and
// disconnects from etcd.
func (e *Elector) Close() error {
	_ = e.session.Close()
	return e.client.Close()
}
