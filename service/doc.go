// Package service provides lifecycle management for the long-running
// services of a graph process.
//
// A process hosting a dynamic graph runs a small set of services next to the
// graph itself: the evaluation engine that drives signal recomputation, the
// Prometheus metrics server, and the NATS remote access server. This package
// defines the contract they share and a base implementation they embed.
//
// # Core Types
//
// Service: the contract all services satisfy - named lifecycle with
// Start/Stop, status reporting, health reporting, and metric registration.
//
// BaseService: foundation for all services with standardized lifecycle
// management:
//   - Lifecycle states: Stopped -> Starting -> Running -> Stopping (plus
//     Failed for services that stop on error)
//   - Health monitoring with periodic checks
//   - Metrics integration with the core metrics registry
//   - Context-based cancellation and graceful shutdown
//
// # Service Pattern
//
// Concrete services embed *BaseService and layer their own Start/Stop on
// top of the base lifecycle:
//
//	type MyService struct {
//	    *BaseService
//	    // service-specific fields
//	}
//
//	func NewMyService(opts ...Option) *MyService {
//	    return &MyService{BaseService: NewBaseService("my-service", opts...)}
//	}
//
//	func (s *MyService) Start(ctx context.Context) error {
//	    if err := s.BaseService.Start(ctx); err != nil {
//	        return err
//	    }
//	    // start service-specific goroutines
//	    return nil
//	}
//
// # Health Checks
//
// Each service runs a periodic health check. A custom check installed with
// WithHealthCheck has priority; when a NATS client is attached with
// WithNATS, a down connection marks the service unhealthy. Health state
// transitions can trigger an OnHealthChange callback.
//
// # Error Handling
//
// Services follow the platform error handling patterns:
//   - Configuration errors: return during construction
//   - Runtime errors: log and update health status
//   - Shutdown errors: log but continue graceful shutdown
package service
