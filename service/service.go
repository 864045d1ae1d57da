package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// ErrUnknownService is returned when a name is not registered.
var ErrUnknownService = errors.New("service: unknown service")

// Service is a bootable component.
type Service interface {
	Name() string
	Boot(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

// Status is a point-in-time health snapshot of one service.
type Status struct {
	Name    string `json:"name"`
	Booted  bool   `json:"booted"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// Manager boots services in registration order and shuts them down in
// reverse.
type Manager struct {
	// lifecycle serializes BootAll, ShutdownAll and Restart.
	lifecycle sync.Mutex
	mu        sync.Mutex
	services  []Service
	booted    map[string]bool
}

// NewManager returns a manager holding services.
func NewManager(services ...Service) *Manager {
	m := &Manager{booted: map[string]bool{}}
	for _, s := range services {
		m.Register(s)
	}
	return m
}

// Register appends s; a service with the same name is replaced in place.
func (m *Manager) Register(s Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.services {
		if existing.Name() == s.Name() {
			m.services[i] = s
			return
		}
	}
	m.services = append(m.services, s)
}

// Names lists registered services in boot order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.services))
	for i, s := range m.services {
		names[i] = s.Name()
	}
	return names
}

// BootAll boots every registered service. When one fails, the services
// already booted are shut down in reverse order and the boot error is
// returned.
func (m *Manager) BootAll(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	services := m.snapshot()
	var started []Service
	for _, s := range services {
		if m.isBooted(s.Name()) {
			started = append(started, s)
			continue
		}
		logger := log.WithField("service", s.Name())
		if err := s.Boot(ctx); err != nil {
			logger.WithError(err).Error("boot failed")
			for i := len(started) - 1; i >= 0; i-- {
				if serr := started[i].Shutdown(ctx); serr != nil {
					log.WithField("service", started[i].Name()).WithError(serr).Warn("rollback shutdown failed")
				}
				m.setBooted(started[i].Name(), false)
			}
			return fmt.Errorf("service: boot %s: %w", s.Name(), err)
		}
		m.setBooted(s.Name(), true)
		started = append(started, s)
		logger.Debug("booted")
	}
	return nil
}

// ShutdownAll shuts booted services down in reverse order, continuing past
// failures, and returns every error encountered.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	services := m.snapshot()
	var result *multierror.Error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		if !m.isBooted(s.Name()) {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			log.WithField("service", s.Name()).WithError(err).Warn("shutdown failed")
			result = multierror.Append(result, fmt.Errorf("service: shutdown %s: %w", s.Name(), err))
		}
		m.setBooted(s.Name(), false)
	}
	return result.ErrorOrNil()
}

// Restart shuts the named service down (if booted) and boots it again.
func (m *Manager) Restart(ctx context.Context, name string) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	var target Service
	for _, s := range m.snapshot() {
		if s.Name() == name {
			target = s
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if m.isBooted(name) {
		if err := target.Shutdown(ctx); err != nil {
			return fmt.Errorf("service: restart %s: %w", name, err)
		}
		m.setBooted(name, false)
	}
	if err := target.Boot(ctx); err != nil {
		return fmt.Errorf("service: restart %s: %w", name, err)
	}
	m.setBooted(name, true)
	log.WithField("service", name).Info("restarted")
	return nil
}

// snapshot copies the registered services so lifecycle calls run without mu
// held; a health request reading Status must never wait on a Shutdown.
func (m *Manager) snapshot() []Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Service(nil), m.services...)
}

func (m *Manager) isBooted(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.booted[name]
}

func (m *Manager) setBooted(name string, booted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if booted {
		m.booted[name] = true
		return
	}
	delete(m.booted, name)
}

// Status health-checks every booted service.
func (m *Manager) Status(ctx context.Context) []Status {
	services := m.snapshot()
	m.mu.Lock()
	booted := make(map[string]bool, len(m.booted))
	for k, v := range m.booted {
		booted[k] = v
	}
	m.mu.Unlock()

	result := make([]Status, 0, len(services))
	for _, s := range services {
		st := Status{Name: s.Name(), Booted: booted[s.Name()]}
		if st.Booted {
			st.Err = s.HealthCheck(ctx)
			st.Healthy = st.Err == nil
		} else {
			st.Err = errors.New("not booted")
		}
		if st.Err != nil {
			st.Error = st.Err.Error()
		}
		result = append(result, st)
	}
	return result
}

// Healthy reports whether every status is healthy.
func Healthy(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
