package common

import (
	"errors"
	"fmt"
	"strings"
)

type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f *Family) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "4", "v4", "ipv4":
		*f = IPv4
	case "6", "v6", "ipv6":
		*f = IPv6
	default:
		return errors.New("invalid IP family")
	}
	return nil
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("unknown<%d>", int(f))
	}
}

// IPMode selects where the host's current IP is observed from.
type IPMode int

const (
	IPModeExternal IPMode = iota
	IPModeInternal
)

func (m *IPMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "external":
		*m = IPModeExternal
	case "internal":
		*m = IPModeInternal
	default:
		return errors.New("invalid IP mode")
	}
	return nil
}

func (m IPMode) String() string {
	switch m {
	case IPModeExternal:
		return "external"
	case IPModeInternal:
		return "internal"
	default:
		return fmt.Sprintf("unknown<%d>", int(m))
	}
}
