package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ipamkit/ipamkit/internal/domain"
)

type CSVImporter struct{}

func (CSVImporter) FormatName() string       { return "CSV" }
func (CSVImporter) FileExtensions() []string { return []string{"csv"} }

func (CSVImporter) ParseSpaces(content []byte) ([]domain.SpaceImportRow, []domain.ImportFailure, error) {
	records, err := readCSV(content)
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, nil
	}

	head := headerIndex(records[0])
	var rows []domain.SpaceImportRow
	var failures []domain.ImportFailure

	for i, rec := range records[1:] {
		line := i + 2 // header is line 1

		network := field(head, rec, "Network")
		cidrStr := field(head, rec, "CIDR")
		if network == "" || cidrStr == "" {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  "missing required fields (Network, CIDR)",
			})
			continue
		}
		cidr, err := strconv.Atoi(cidrStr)
		if err != nil || cidr < 0 || cidr > 32 {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  fmt.Sprintf("invalid cidr %q", cidrStr),
			})
			continue
		}

		rows = append(rows, domain.SpaceImportRow{
			Line: line,
			Input: domain.CreateSpaceInput{
				CIDR:        fmt.Sprintf("%s/%d", network, cidr),
				Name:        field(head, rec, "Name"),
				Domain:      field(head, rec, "Domain"),
				VLANID:      vlanID(field(head, rec, "VLAN ID")),
				Location:    field(head, rec, "Location"),
				Description: field(head, rec, "Description"),
			},
		})
	}
	return rows, failures, nil
}

func (CSVImporter) ParseAssignments(content []byte) ([]domain.AssignmentImportRow, []domain.ImportFailure, error) {
	records, err := readCSV(content)
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, nil
	}

	head := headerIndex(records[0])
	var rows []domain.AssignmentImportRow
	var failures []domain.ImportFailure

	for i, rec := range records[1:] {
		line := i + 2

		addr := field(head, rec, "IP Address")
		if addr == "" {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  "missing required field (IP Address)",
			})
			continue
		}
		assigned, err := parseBool(field(head, rec, "Is Assigned"))
		if err != nil {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  fmt.Sprintf("invalid Is Assigned value %q", field(head, rec, "Is Assigned")),
			})
			continue
		}
		lastSeen, err := parseTime(field(head, rec, "Last Seen"))
		if err != nil {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  fmt.Sprintf("invalid Last Seen timestamp %q", field(head, rec, "Last Seen")),
			})
			continue
		}

		rows = append(rows, domain.AssignmentImportRow{
			Line: line,
			Input: domain.CreateAssignmentInput{
				Addr:            addr,
				Hostname:        field(head, rec, "Hostname"),
				MAC:             field(head, rec, "MAC Address"),
				Status:          field(head, rec, "Status"),
				Assigned:        assigned,
				LastSeen:        lastSeen,
				DiscoverySource: field(head, rec, "Discovery Source"),
				Description:     field(head, rec, "Description"),
			},
		})
	}
	return rows, failures, nil
}

func readCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed csv: %v", domain.ErrInvalidInput, err)
	}
	return records, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func field(head map[string]int, rec []string, name string) string {
	i, ok := head[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func vlanID(s string) int32 {
	// Unparseable VLAN ids are dropped, not fatal.
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// parseBool and parseTime treat an empty field as absent but reject
// garbage instead of coercing it.
func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
