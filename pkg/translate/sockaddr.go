package translate

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// DecodeSockaddr turns the raw bytes of a SOCKADDR field (the hex-decoded
// kernel struct sockaddr) into a symbolic, human-readable form. Only the
// address families actually seen in audit trails are handled; anything
// else reports ok=false and the caller keeps the raw hex.
func DecodeSockaddr(raw []byte) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	family := binary.LittleEndian.Uint16(raw[:2])
	switch family {
	case unix.AF_INET:
		if len(raw) < 8 {
			return "", false
		}
		port := binary.BigEndian.Uint16(raw[2:4])
		ip := net.IP(raw[4:8])
		return fmt.Sprintf("{family=inet, port=%d, addr=%s}", port, ip.String()), true
	case unix.AF_INET6:
		if len(raw) < 28 {
			return "", false
		}
		port := binary.BigEndian.Uint16(raw[2:4])
		ip := net.IP(raw[8:24])
		return fmt.Sprintf("{family=inet6, port=%d, addr=%s}", port, ip.String()), true
	case unix.AF_UNIX:
		path := ""
		if len(raw) > 2 {
			end := len(raw)
			for i := 2; i < len(raw); i++ {
				if raw[i] == 0 {
					end = i
					break
				}
			}
			path = string(raw[2:end])
		}
		if path == "" {
			return "{family=unix, path=(anonymous)}", true
		}
		return fmt.Sprintf("{family=unix, path=%s}", path), true
	case unix.AF_NETLINK:
		if len(raw) < 8 {
			return "", false
		}
		pid := binary.LittleEndian.Uint32(raw[4:8])
		return fmt.Sprintf("{family=netlink, pid=%d}", pid), true
	default:
		return fmt.Sprintf("{family=%d}", family), true
	}
}
