package health

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vyrodovalexey/avsvcgw/internal/observability"
	"github.com/vyrodovalexey/avsvcgw/internal/registry"
)

// grpcProber performs native grpc.health.v1 probes with pooled client
// connections, one per target address. Stale connections are replaced
// on the next probe.
type grpcProber struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func newGRPCProber() *grpcProber {
	return &grpcProber{conns: make(map[string]*grpc.ClientConn)}
}

// probe issues one Check call; SERVING counts as healthy.
func (p *grpcProber) probe(ctx context.Context, svc *registry.Service) error {
	u, err := url.Parse(svc.BaseURL)
	if err != nil {
		return err
	}

	conn, err := p.conn(u.Host)
	if err != nil {
		return err
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: svc.HealthGRPCService,
	})
	if err != nil {
		// Drop the connection so the next probe dials fresh.
		p.close(u.Host)
		return err
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc health status %s", resp.GetStatus())
	}
	return nil
}

// conn returns a pooled connection for the address, replacing shut-down
// or failing ones.
func (p *grpcProber) conn(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[addr]; ok {
		state := conn.GetState()
		if state != connectivity.Shutdown && state != connectivity.TransientFailure {
			return conn, nil
		}
		_ = conn.Close()
		delete(p.conns, addr)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}

	p.conns[addr] = conn
	return conn, nil
}

// close drops a pooled connection.
func (p *grpcProber) close(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[addr]; ok {
		_ = conn.Close()
		delete(p.conns, addr)
	}
}

// closeAll closes every pooled connection.
func (p *grpcProber) closeAll(logger observability.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close gRPC health connection",
				observability.String("addr", addr),
				observability.Error(err),
			)
		}
		delete(p.conns, addr)
	}
}
