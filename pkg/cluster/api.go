package cluster

import (
    "context"

    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// api serves the management API of a Cluster.
type api struct{ c *Cluster }

func (a api) Status(ctx context.Context) transport.Status { return a.c.Status(ctx) }

func (a api) Metadata(context.Context) ([]byte, error) { return md.ToJSON(a.c.Metadata()) }

func (a api) PutIndex(ctx context.Context, doc []byte) error {
    im, err := md.IndexFromXContent(doc, xcontent.JSON)
    if err != nil { return err }
    return a.c.PutIndex(ctx, im)
}

func (a api) DeleteIndex(ctx context.Context, name string) error { return a.c.DeleteIndex(ctx, name) }

// Join adds a voter. Followers refuse with a hint naming the leader.
func (a api) Join(ctx context.Context, req transport.JoinRequest) (transport.JoinResponse, error) {
    c := a.c
    if req.ID == "" || req.RaftAddr == "" {
        obsmetrics.JoinRequests.WithLabelValues("rejected").Inc()
        return transport.JoinResponse{Error: "id and raft_addr are required"}, nil
    }
    if !c.eng.IsLeader() {
        hint, _ := c.leaderMgmt(ctx)
        obsmetrics.JoinRequests.WithLabelValues("rejected").Inc()
        logutil.Warnf(c.log, "join rejected (not leader): id=%s", req.ID)
        return transport.JoinResponse{Leader: hint, Error: "not leader"}, nil
    }
    if err := c.eng.AddVoter(req.ID, req.RaftAddr, c.opts.ReconfigureTimeout); err != nil {
        obsmetrics.JoinRequests.WithLabelValues("error").Inc()
        logutil.Errorf(c.log, "add voter failed: id=%s addr=%s err=%v", req.ID, req.RaftAddr, err)
        return transport.JoinResponse{Error: err.Error()}, err
    }
    obsmetrics.JoinRequests.WithLabelValues("accepted").Inc()
    logutil.Infof(c.log, "join accepted: id=%s addr=%s", req.ID, req.RaftAddr)
    return transport.JoinResponse{Accepted: true}, nil
}

// Leave removes a voter. Only the leader accepts.
func (a api) Leave(ctx context.Context, req transport.LeaveRequest) (transport.LeaveResponse, error) {
    c := a.c
    if !c.eng.IsLeader() {
        logutil.Warnf(c.log, "leave rejected (not leader): id=%s", req.ID)
        return transport.LeaveResponse{Error: "not leader"}, nil
    }
    if err := c.eng.RemoveServer(req.ID, c.opts.ReconfigureTimeout); err != nil {
        return transport.LeaveResponse{Error: err.Error()}, err
    }
    logutil.Infof(c.log, "leave accepted: id=%s", req.ID)
    return transport.LeaveResponse{Accepted: true}, nil
}

var _ transport.Handler = api{}
