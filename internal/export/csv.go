package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

type CSVExporter struct{}

func (CSVExporter) FormatName() string    { return "CSV" }
func (CSVExporter) FileExtension() string { return "csv" }
func (CSVExporter) MIMEType() string      { return "text/csv" }

func (CSVExporter) ExportSpaces(spaces []SpaceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"Network", "CIDR", "Broadcast Address", "VLAN ID", "Location",
		"Description", "Total Hosts", "Used Hosts", "Available Hosts",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range spaces {
		s := rec.Space
		row := []string{
			s.NetworkAddress().String(),
			strconv.Itoa(s.CIDR.Bits()),
			s.BroadcastAddress().String(),
			vlanField(s.VLANID),
			s.Location,
			s.Description,
			strconv.FormatUint(rec.Util.Total, 10),
			strconv.FormatUint(rec.Util.Used, 10),
			strconv.FormatUint(rec.Util.Available, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func (CSVExporter) ExportAssignments(assignments []AssignmentRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"IP Address", "Hostname", "MAC Address", "Status", "Is Assigned",
		"Last Seen", "Discovery Source", "Network", "Description",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range assignments {
		a := rec.Assignment
		network := ""
		if rec.Space != nil {
			network = rec.Space.CIDR.Masked().String()
		}
		row := []string{
			a.Addr.String(),
			a.Hostname,
			a.MAC,
			string(a.Status),
			strconv.FormatBool(a.Assigned),
			lastSeenField(a.LastSeen),
			a.DiscoverySource,
			network,
			a.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func vlanField(id int32) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(int64(id), 10)
}

func lastSeenField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
