package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/vyrodovalexey/avsvcgw/internal/config"
	"github.com/vyrodovalexey/avsvcgw/internal/util"
)

// Service describes one backend service: identity plus the call policy
// applied when brokering requests to it. Instances are shared and must
// not be mutated after registry construction.
type Service struct {
	// Name is the logical name callers use to address the service.
	Name string

	// BaseURL is the service root without a trailing slash. Request
	// paths are joined onto it.
	BaseURL string

	// Timeout bounds a single attempt against the service.
	Timeout time.Duration

	// MaxRetries is the total attempt budget for idempotent calls.
	// Non-idempotent calls always get exactly one attempt.
	MaxRetries int

	// HealthPath is the HTTP health endpoint path.
	HealthPath string

	// HealthProtocol selects the probe type: "http" or "grpc".
	HealthProtocol string

	// HealthGRPCService is the service string passed to the
	// grpc.health.v1 Check call. Empty checks overall server health.
	HealthGRPCService string
}

// HealthURL returns the full URL probed by HTTP health checks.
func (s *Service) HealthURL() string {
	return s.BaseURL + s.HealthPath
}

// Registry is an immutable catalog of services keyed by name.
type Registry struct {
	services map[string]*Service
	names    []string
}

// New builds a registry from service descriptors. Descriptors with
// unset policy fields get defaults; malformed names, addresses, or
// health paths fail construction.
func New(services []Service) (*Registry, error) {
	r := &Registry{
		services: make(map[string]*Service, len(services)),
		names:    make([]string, 0, len(services)),
	}

	for i, svc := range services {
		field := fmt.Sprintf("services[%d]", i)

		if svc.Name == "" {
			return nil, util.NewConfigError(field+".name", "service name is required")
		}
		if _, exists := r.services[svc.Name]; exists {
			return nil, util.NewConfigError(field+".name",
				fmt.Sprintf("duplicate service name: %s", svc.Name))
		}
		if err := validateBaseURL(svc.BaseURL); err != nil {
			return nil, util.NewConfigErrorWithCause(field+".address",
				fmt.Sprintf("invalid address for service %s", svc.Name), err)
		}

		normalized := svc
		normalized.BaseURL = strings.TrimRight(svc.BaseURL, "/")
		if normalized.Timeout <= 0 {
			normalized.Timeout = config.DefaultRequestTimeout
		}
		if normalized.MaxRetries <= 0 {
			normalized.MaxRetries = config.DefaultMaxRetries
		}
		if normalized.HealthPath == "" {
			normalized.HealthPath = config.DefaultHealthPath
		}
		if !strings.HasPrefix(normalized.HealthPath, "/") {
			return nil, util.NewConfigError(field+".healthPath",
				fmt.Sprintf("health path for service %s must start with /", svc.Name))
		}
		switch normalized.HealthProtocol {
		case "":
			normalized.HealthProtocol = "http"
		case "http", "grpc":
		default:
			return nil, util.NewConfigError(field+".healthProtocol",
				fmt.Sprintf("unsupported health protocol %q for service %s",
					normalized.HealthProtocol, svc.Name))
		}

		r.services[normalized.Name] = &normalized
		r.names = append(r.names, normalized.Name)
	}

	sort.Strings(r.names)
	return r, nil
}

// NewFromConfig builds a registry from the services section of a
// configuration. The configuration is expected to be normalized.
func NewFromConfig(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, util.NewConfigError("config", "configuration is nil")
	}

	services := make([]Service, 0, len(cfg.Services))
	for _, sc := range cfg.Services {
		services = append(services, Service{
			Name:              sc.Name,
			BaseURL:           sc.Address,
			Timeout:           sc.Timeout.Duration(),
			MaxRetries:        sc.MaxRetries,
			HealthPath:        sc.HealthPath,
			HealthProtocol:    sc.HealthProtocol,
			HealthGRPCService: sc.HealthGRPCService,
		})
	}
	return New(services)
}

// Lookup returns the descriptor for a service name. Unknown names fail
// with an UnknownServiceError; this is fatal to the calling request
// only, never to the process.
func (r *Registry) Lookup(name string) (*Service, error) {
	svc, ok := r.services[name]
	if !ok {
		return nil, util.NewUnknownServiceError(name)
	}
	return svc, nil
}

// Has reports whether a service name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.services[name]
	return ok
}

// Names returns all registered service names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.services)
}

// validateBaseURL checks that an address is an absolute http(s) URL.
func validateBaseURL(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	u, err := url.Parse(address)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("address scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("address host is required")
	}
	return nil
}
