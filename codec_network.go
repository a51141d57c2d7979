package pgbulk

import (
	"fmt"
	"net"
	"net/netip"
)

const (
	// PGSQL_AF_INET and PGSQL_AF_INET6 from PostgreSQL's inet.h
	familyInet  = 2
	familyInet6 = 3
)

// InetCodec handles PostgreSQL inet (OID 869) and, with CIDR set, cidr (OID 650).
type InetCodec struct {
	CIDR bool
}

func (c InetCodec) OID() uint32 {
	if c.CIDR {
		return TypeOIDCidr
	}
	return TypeOIDInet
}

func (c InetCodec) Name() string {
	if c.CIDR {
		return "cidr"
	}
	return "inet"
}

func (c InetCodec) prefix(v any) (netip.Addr, int, error) {
	switch x := v.(type) {
	case netip.Addr:
		if !x.IsValid() {
			return netip.Addr{}, 0, fmt.Errorf("invalid %s address", c.Name())
		}
		return x.WithZone(""), x.BitLen(), nil
	case netip.Prefix:
		if !x.IsValid() {
			return netip.Addr{}, 0, fmt.Errorf("invalid %s prefix", c.Name())
		}
		return x.Addr().WithZone(""), x.Bits(), nil
	case net.IP:
		addr, err := ipAddr(x)
		if err != nil {
			return netip.Addr{}, 0, err
		}
		return addr, addr.BitLen(), nil
	case net.IPNet:
		return c.ipNet(&x)
	case *net.IPNet:
		if x == nil {
			return netip.Addr{}, 0, unsupportedValue(c, v)
		}
		return c.ipNet(x)
	}
	return netip.Addr{}, 0, unsupportedValue(c, v)
}

func (c InetCodec) ipNet(n *net.IPNet) (netip.Addr, int, error) {
	addr, err := ipAddr(n.IP)
	if err != nil {
		return netip.Addr{}, 0, err
	}
	ones, bits := n.Mask.Size()
	if bits == 0 {
		return netip.Addr{}, 0, fmt.Errorf("non-canonical mask %s", n.Mask)
	}
	if bits == 128 && addr.Is4() {
		ones -= 96
	}
	return addr, ones, nil
}

func ipAddr(ip net.IP) (netip.Addr, error) {
	if v4 := ip.To4(); v4 != nil {
		return netip.AddrFrom4([4]byte(v4)), nil
	}
	if len(ip) == net.IPv6len {
		return netip.AddrFrom16([16]byte(ip)), nil
	}
	return netip.Addr{}, fmt.Errorf("invalid IP address length %d", len(ip))
}

func (c InetCodec) Size(v any) (int, error) {
	addr, _, err := c.prefix(v)
	if err != nil {
		return 0, err
	}
	return 4 + addr.BitLen()/8, nil
}

func (c InetCodec) Append(buf []byte, v any) ([]byte, error) {
	addr, bits, err := c.prefix(v)
	if err != nil {
		return buf, err
	}
	family := byte(familyInet)
	if addr.Is6() {
		family = familyInet6
	}
	isCIDR := byte(0)
	if c.CIDR {
		isCIDR = 1
	}
	raw := addr.AsSlice()
	buf = append(buf, family, byte(bits), isCIDR, byte(len(raw)))
	return append(buf, raw...), nil
}

// MacaddrCodec handles PostgreSQL macaddr (OID 829) and, with EUI64 set, macaddr8 (OID 774).
type MacaddrCodec struct {
	EUI64 bool
}

func (c MacaddrCodec) OID() uint32 {
	if c.EUI64 {
		return TypeOIDMacaddr8
	}
	return TypeOIDMacaddr
}

func (c MacaddrCodec) Name() string {
	if c.EUI64 {
		return "macaddr8"
	}
	return "macaddr"
}

func (c MacaddrCodec) addr(v any) (net.HardwareAddr, error) {
	hw, ok := v.(net.HardwareAddr)
	if !ok {
		return nil, unsupportedValue(c, v)
	}
	want := 6
	if c.EUI64 {
		want = 8
	}
	if len(hw) != want {
		return nil, fmt.Errorf("%s requires %d bytes, got %d", c.Name(), want, len(hw))
	}
	return hw, nil
}

func (c MacaddrCodec) Size(v any) (int, error) {
	hw, err := c.addr(v)
	if err != nil {
		return 0, err
	}
	return len(hw), nil
}

func (c MacaddrCodec) Append(buf []byte, v any) ([]byte, error) {
	hw, err := c.addr(v)
	if err != nil {
		return buf, err
	}
	return append(buf, hw...), nil
}
