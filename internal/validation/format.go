package validation

import (
	"encoding/binary"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Name length bounds, inclusive.
const (
	NameMinLength = 3
	NameMaxLength = 30
)

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateName checks a workspace or prefix name.
func ValidateName(s string) error {
	if len(s) < NameMinLength || len(s) > NameMaxLength {
		return errNameLength
	}
	if !namePattern.MatchString(s) {
		return errNamePattern
	}
	if strings.Contains(s, "--") {
		return errNameDoubleDash
	}
	return nil
}

// ValidateCIDR checks an IPv4 network in CIDR notation without host bits.
func ValidateCIDR(s string) error {
	ip, network, err := net.ParseCIDR(strings.TrimSpace(s))
	if err != nil || ip.To4() == nil {
		return errCIDRInvalid
	}
	if !ip.Equal(network.IP) {
		return errCIDRNotNetwork
	}
	return nil
}

// cidrContains reports whether subnet lies within parent. Both must be valid.
func cidrContains(parent, subnet string) bool {
	_, p, err := net.ParseCIDR(parent)
	if err != nil {
		return false
	}
	_, s, err := net.ParseCIDR(subnet)
	if err != nil {
		return false
	}
	pOnes, _ := p.Mask.Size()
	sOnes, _ := s.Mask.Size()
	return sOnes >= pOnes && p.Contains(s.IP)
}

// CIDRSubnet calculates a subnet address given a network address, a netmask
// size increase, and a subnet number, like Terraform's cidrsubnet.
// Only IPv4 is supported.
func CIDRSubnet(prefix string, newbits int, netnum int) (string, error) {
	_, network, err := net.ParseCIDR(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	ip := network.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("only IPv4 addresses are supported, got IPv6: %s", prefix)
	}

	maskSize, totalBits := network.Mask.Size()
	newMaskSize := maskSize + newbits
	if newMaskSize > totalBits {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}
	if netnum < 0 || netnum >= 1<<newbits {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, 1<<newbits)
	}

	// #nosec G115 - netnum and the subnet size are bounded by the 32-bit mask above
	base := binary.BigEndian.Uint32(ip) + uint32(netnum)<<(totalBits-newMaskSize)
	out := make(net.IP, 4)
	binary.BigEndian.PutUint32(out, base)
	return fmt.Sprintf("%s/%d", out, newMaskSize), nil
}
