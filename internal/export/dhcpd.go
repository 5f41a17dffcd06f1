package export

import (
	"bytes"
	"fmt"
	"strings"
)

// DHCPDExporter renders assignments as ISC dhcpd host declarations and
// spaces as subnet declarations. Assignments without a MAC address cannot
// be fixed-address hosts and are skipped.
type DHCPDExporter struct{}

func (DHCPDExporter) FormatName() string    { return "dhcpd" }
func (DHCPDExporter) FileExtension() string { return "conf" }
func (DHCPDExporter) MIMEType() string      { return "text/plain" }

func (DHCPDExporter) ExportSpaces(spaces []SpaceRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range spaces {
		s := rec.Space
		mask, err := prefixNetmask(s.CIDR.Bits())
		if err != nil {
			return nil, err
		}
		if s.Name != "" {
			fmt.Fprintf(&buf, "# %s\n", s.Name)
		}
		fmt.Fprintf(&buf, "subnet %s netmask %s {\n", s.NetworkAddress(), mask)
		fmt.Fprintf(&buf, "}\n\n")
	}
	return buf.Bytes(), nil
}

func (DHCPDExporter) ExportAssignments(assignments []AssignmentRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range assignments {
		a := rec.Assignment
		if a.MAC == "" {
			continue
		}
		name := a.Hostname
		if name == "" {
			name = "host-" + strings.ReplaceAll(a.Addr.String(), ".", "-")
		}
		fmt.Fprintf(&buf, "host %s {\n", name)
		fmt.Fprintf(&buf, "    hardware ethernet %s;\n", a.MAC)
		fmt.Fprintf(&buf, "    fixed-address %s;\n", a.Addr)
		fmt.Fprintf(&buf, "}\n\n")
	}
	return buf.Bytes(), nil
}

func prefixNetmask(bits int) (string, error) {
	if bits < 0 || bits > 32 {
		return "", fmt.Errorf("invalid prefix length %d", bits)
	}
	mask := ^uint32(0)
	if bits < 32 {
		mask <<= 32 - bits
	}
	return fmt.Sprintf("%d.%d.%d.%d", byte(mask>>24), byte(mask>>16), byte(mask>>8), byte(mask)), nil
}
