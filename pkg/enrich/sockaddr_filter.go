package enrich

import (
	"net"
	"strconv"
	"strings"

	"github.com/hillu/laurel/pkg/laurelerr"
)

// sockaddrPredicate is one compiled `filter-sockaddr` entry: `<addr>[/bits]
// [:port]`, `*` standing in for "any" at either position, family-aware
// (§4.5's last paragraph).
type sockaddrPredicate struct {
	anyAddr bool
	net     *net.IPNet
	anyPort bool
	port    uint16
}

func compileSockaddrPredicate(spec string) (*sockaddrPredicate, error) {
	addrPart, portPart, hasPort := strings.Cut(spec, ":")
	p := &sockaddrPredicate{}

	if addrPart == "*" || addrPart == "" {
		p.anyAddr = true
	} else {
		cidr := addrPart
		if !strings.Contains(cidr, "/") {
			if strings.Contains(cidr, ":") {
				cidr += "/128"
			} else {
				cidr += "/32"
			}
		}
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "filter-sockaddr: bad address %q: %v", addrPart, err)
		}
		p.net = ipnet
	}

	if !hasPort || portPart == "*" || portPart == "" {
		p.anyPort = true
	} else {
		n, err := strconv.ParseUint(portPart, 10, 16)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "filter-sockaddr: bad port %q: %v", portPart, err)
		}
		p.port = uint16(n)
	}

	return p, nil
}

// matches reports whether ip/port satisfy the predicate.
func (p *sockaddrPredicate) matches(ip net.IP, port uint16) bool {
	if !p.anyAddr && (p.net == nil || !p.net.Contains(ip)) {
		return false
	}
	if !p.anyPort && p.port != port {
		return false
	}
	return true
}

// SockaddrFilter is the compiled form of the `filter-sockaddr` list.
type SockaddrFilter struct {
	predicates []*sockaddrPredicate
}

// CompileSockaddrFilter compiles every entry, failing closed on the first
// bad one — `filter-sockaddr` is validated at startup, per ConfigInvalid's
// "fatal at startup only" policy.
func CompileSockaddrFilter(specs []string) (*SockaddrFilter, error) {
	f := &SockaddrFilter{}
	for _, s := range specs {
		p, err := compileSockaddrPredicate(s)
		if err != nil {
			return nil, err
		}
		f.predicates = append(f.predicates, p)
	}
	return f, nil
}

// MatchesAny reports whether ip/port satisfies any compiled predicate.
func (f *SockaddrFilter) MatchesAny(ip net.IP, port uint16) bool {
	for _, p := range f.predicates {
		if p.matches(ip, port) {
			return true
		}
	}
	return false
}
