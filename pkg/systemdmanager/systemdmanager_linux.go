//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Manager controls kron's own unit over D-Bus.
type Manager struct {
	mu   sync.RWMutex
	conn *dbus.Conn
}

// New connects to the user manager when user is true, otherwise to the
// system manager.
func New(ctx context.Context, user bool) (*Manager, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	if user {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	return nil
}

func (m *Manager) connection() (*dbus.Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, ErrClosed
	}
	return m.conn, nil
}

// Status reports the unit state. A missing unit is not an error.
func (m *Manager) Status(ctx context.Context, name string) (*Status, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, err
	}
	unit := UnitName(name)
	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return notFound(name), nil
		}
		return nil, fmt.Errorf("failed to get status for %s: %w", unit, err)
	}
	return statusFromProps(name, props), nil
}

func (m *Manager) Start(ctx context.Context, name string) error {
	return m.run(ctx, "start", name, func(c *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return c.StartUnitContext(ctx, unit, "replace", ch)
	})
}

func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.run(ctx, "stop", name, func(c *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return c.StopUnitContext(ctx, unit, "replace", ch)
	})
}

func (m *Manager) Restart(ctx context.Context, name string) error {
	return m.run(ctx, "restart", name, func(c *dbus.Conn, unit string, ch chan<- string) (int, error) {
		return c.RestartUnitContext(ctx, unit, "replace", ch)
	})
}

// run submits a job and waits for systemd to report its result.
func (m *Manager) run(ctx context.Context, action, name string, submit func(*dbus.Conn, string, chan<- string) (int, error)) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	unit := UnitName(name)
	ch := make(chan string, 1)
	if _, err := submit(conn, unit, ch); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, unit, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return jobError(action, unit, res)
	}
}
