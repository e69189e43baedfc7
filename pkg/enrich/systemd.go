package enrich

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// SystemdProvider is the external collaborator interface for §4.5 step 4's
// SYSTEMD block.
type SystemdProvider interface {
	SystemdInfo(pid int32) (SystemdInfo, bool)
}

// SystemdInfo is the SYSTEMD enrichment block's payload: the unit that
// owns pid, per systemd's GetUnitByPID call.
type SystemdInfo struct {
	Unit string
	Slice string
}

// DBusSystemdProvider resolves the owning unit over the system bus, the way
// systemd's own tooling does (org.freedesktop.systemd1 Manager interface).
type DBusSystemdProvider struct {
	conn *dbus.Conn
}

// NewDBusSystemdProvider connects to the system bus. The connection is
// reused across calls; callers that don't enable [enrich] systemd never
// pay the dial cost.
func NewDBusSystemdProvider() (*DBusSystemdProvider, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("enrich: connect to system bus: %w", err)
	}
	return &DBusSystemdProvider{conn: conn}, nil
}

// Close releases the bus connection.
func (p *DBusSystemdProvider) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// SystemdInfo calls systemd1.Manager.GetUnitByPID and then reads the unit's
// Slice property, best-effort.
func (p *DBusSystemdProvider) SystemdInfo(pid int32) (SystemdInfo, bool) {
	if p.conn == nil {
		return SystemdInfo{}, false
	}
	obj := p.conn.Object("org.freedesktop.systemd1", "/org/freedesktop/systemd1")

	var unitPath dbus.ObjectPath
	if err := obj.Call("org.freedesktop.systemd1.Manager.GetUnitByPID", 0, uint32(pid)).Store(&unitPath); err != nil {
		return SystemdInfo{}, false
	}

	unitObj := p.conn.Object("org.freedesktop.systemd1", unitPath)
	idVariant, err := unitObj.GetProperty("org.freedesktop.systemd1.Unit.Id")
	if err != nil {
		return SystemdInfo{}, false
	}
	unitName, _ := idVariant.Value().(string)

	sliceVariant, err := unitObj.GetProperty("org.freedesktop.systemd1.Unit.Slice")
	slice := ""
	if err == nil {
		slice, _ = sliceVariant.Value().(string)
	}

	if unitName == "" {
		return SystemdInfo{}, false
	}
	return SystemdInfo{Unit: unitName, Slice: slice}, true
}
