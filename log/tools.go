package log

import (
	"net/netip"

	"go.uber.org/zap"
)

func IP(ip netip.Addr) zap.Field {
	return zap.Stringer("ip", ip)
}

func Domain(domain string) zap.Field {
	return zap.String("domain", domain)
}

func Stage(stage string) zap.Field {
	return zap.String("stage", stage)
}
