package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ipamkit/ipamkit/internal/domain"
)

type JSONImporter struct{}

func (JSONImporter) FormatName() string       { return "JSON" }
func (JSONImporter) FileExtensions() []string { return []string{"json"} }

func (JSONImporter) ParseSpaces(content []byte) ([]domain.SpaceImportRow, []domain.ImportFailure, error) {
	items, err := extractData(content)
	if err != nil {
		return nil, nil, err
	}

	var rows []domain.SpaceImportRow
	var failures []domain.ImportFailure

	for i, item := range items {
		line := i + 1 // element number, the file has no meaningful lines

		network := asString(item["network"])
		cidrStr := asString(item["cidr"])
		if network == "" || cidrStr == "" {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  "missing required fields (network, cidr)",
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
				Name:        asString(item["name"]),
				Domain:      asString(item["domain"]),
				VLANID:      vlanID(asString(item["vlan_id"])),
				Location:    asString(item["location"]),
				Description: asString(item["description"]),
			},
		})
	}
	return rows, failures, nil
}

func (JSONImporter) ParseAssignments(content []byte) ([]domain.AssignmentImportRow, []domain.ImportFailure, error) {
	items, err := extractData(content)
	if err != nil {
		return nil, nil, err
	}

	var rows []domain.AssignmentImportRow
	var failures []domain.ImportFailure

	for i, item := range items {
		line := i + 1

		addr := asString(item["ip_address"])
		if addr == "" {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  "missing required field (ip_address)",
			})
			continue
		}
		assigned, err := asBool(item["is_assigned"])
		if err != nil {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  fmt.Sprintf("invalid is_assigned value %v", item["is_assigned"]),
			})
			continue
		}
		lastSeen, err := parseTime(asString(item["last_seen"]))
		if err != nil {
			failures = append(failures, domain.ImportFailure{
				Line: line,
				Err:  fmt.Sprintf("invalid last_seen timestamp %v", item["last_seen"]),
			})
			continue
		}

		rows = append(rows, domain.AssignmentImportRow{
			Line: line,
			Input: domain.CreateAssignmentInput{
				Addr:            addr,
				Hostname:        asString(item["hostname"]),
				CNAME:           asString(item["cname"]),
				MAC:             asString(item["mac_address"]),
				Status:          asString(item["status"]),
				Assigned:        assigned,
				LastSeen:        lastSeen,
				DiscoverySource: asString(item["discovery_source"]),
				Description:     asString(item["description"]),
			},
		})
	}
	return rows, failures, nil
}

// extractData accepts either a bare array or the export envelope with a
// "data" field.
func extractData(content []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidInput, err)
		}
		return items, nil
	}

	var env struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidInput, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: expected array or object with data field", domain.ErrInvalidInput)
	}
	return env.Data, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return parseBool(b)
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %v", v)
	}
}
