package device

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
)

// ErrNoInterface is returned when no interface has a usable MAC address.
var ErrNoInterface = errors.New("device: no interface with a hardware address")

// FormatID renders a 6-byte MAC address as lower-case hex without
// separators.
func FormatID(hw net.HardwareAddr) (string, error) {
	if len(hw) != 6 {
		return "", fmt.Errorf("device: hardware address %q is not 6 bytes", hw)
	}
	return hex.EncodeToString(hw), nil
}

// ID derives the device identifier from the MAC address of the named
// interface. With an empty name the first non-loopback interface with a
// 6-byte address is used.
func ID(iface string) (string, error) {
	if iface != "" {
		ifi, err := net.InterfaceByName(iface)
		if err != nil {
			return "", fmt.Errorf("device: interface %s: %w", iface, err)
		}
		return FormatID(ifi.HardwareAddr)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("device: list interfaces: %w", err)
	}
	return pickID(ifaces)
}

func pickID(ifaces []net.Interface) (string, error) {
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 || len(ifi.HardwareAddr) != 6 {
			continue
		}
		return FormatID(ifi.HardwareAddr)
	}
	return "", ErrNoInterface
}
