package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthPollMin     = 100 * time.Millisecond
	healthPollMax     = time.Second
	healthCallTimeout = time.Second
)

// WaitForHealth polls the health service until service reports SERVING or
// ctx ends. Polls back off from 100ms to one second.
func WaitForHealth(ctx context.Context, cc gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if cc == nil {
		return errors.New("grpc connection is required")
	}
	delay := healthPollMin
	for attempt := 1; ; attempt++ {
		err := CheckHealth(ctx, cc, service)
		if err == nil {
			return nil
		}
		if logf != nil {
			logf("health %q attempt %d: %v", service, attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for health of %q: %w (last: %v)", service, ctx.Err(), err)
		case <-timer.C:
		}
		delay = min(delay*2, healthPollMax)
	}
}

// CheckHealth makes one health call and returns an error unless service is
// SERVING.
func CheckHealth(ctx context.Context, cc gogrpc.ClientConnInterface, service string) error {
	callCtx, cancel := context.WithTimeout(ctx, healthCallTimeout)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(cc).Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return err
	}
	if status := resp.GetStatus(); status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", status)
	}
	return nil
}
