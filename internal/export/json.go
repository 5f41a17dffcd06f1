package export

import (
	"encoding/json"
	"time"
)

type JSONExporter struct{}

func (JSONExporter) FormatName() string    { return "JSON" }
func (JSONExporter) FileExtension() string { return "json" }
func (JSONExporter) MIMEType() string      { return "application/json" }

type jsonEnvelope struct {
	ExportType    string `json:"export_type"`
	ExportVersion string `json:"export_version"`
	Data          []any  `json:"data"`
}

type jsonSpace struct {
	Network          string    `json:"network"`
	CIDR             int       `json:"cidr"`
	BroadcastAddress string    `json:"broadcast_address"`
	Name             string    `json:"name,omitempty"`
	Domain           string    `json:"domain,omitempty"`
	VLANID           int32     `json:"vlan_id,omitempty"`
	Location         string    `json:"location,omitempty"`
	Description      string    `json:"description,omitempty"`
	Statistics       jsonStats `json:"statistics"`
}

type jsonStats struct {
	TotalHosts     uint64 `json:"total_hosts"`
	UsedHosts      uint64 `json:"used_hosts"`
	AvailableHosts uint64 `json:"available_hosts"`
}

type jsonAssignment struct {
	IPAddress       string         `json:"ip_address"`
	Hostname        string         `json:"hostname,omitempty"`
	CNAME           string         `json:"cname,omitempty"`
	MACAddress      string         `json:"mac_address,omitempty"`
	Status          string         `json:"status"`
	IsAssigned      bool           `json:"is_assigned"`
	LastSeen        string         `json:"last_seen,omitempty"`
	DiscoverySource string         `json:"discovery_source,omitempty"`
	Description     string         `json:"description,omitempty"`
	Network         *jsonSpaceInfo `json:"network"`
}

type jsonSpaceInfo struct {
	Network string `json:"network"`
	CIDR    int    `json:"cidr"`
	VLANID  int32  `json:"vlan_id,omitempty"`
}

func (JSONExporter) ExportSpaces(spaces []SpaceRecord) ([]byte, error) {
	env := jsonEnvelope{ExportType: "networks", ExportVersion: "1.0", Data: []any{}}
	for _, rec := range spaces {
		s := rec.Space
		env.Data = append(env.Data, jsonSpace{
			Network:          s.NetworkAddress().String(),
			CIDR:             s.CIDR.Bits(),
			BroadcastAddress: s.BroadcastAddress().String(),
			Name:             s.Name,
			Domain:           s.Domain,
			VLANID:           s.VLANID,
			Location:         s.Location,
			Description:      s.Description,
			Statistics: jsonStats{
				TotalHosts:     rec.Util.Total,
				UsedHosts:      rec.Util.Used,
				AvailableHosts: rec.Util.Available,
			},
		})
	}
	return json.MarshalIndent(env, "", "  ")
}

func (JSONExporter) ExportAssignments(assignments []AssignmentRecord) ([]byte, error) {
	env := jsonEnvelope{ExportType: "hosts", ExportVersion: "1.0", Data: []any{}}
	for _, rec := range assignments {
		a := rec.Assignment

		var network *jsonSpaceInfo
		if rec.Space != nil {
			network = &jsonSpaceInfo{
				Network: rec.Space.NetworkAddress().String(),
				CIDR:    rec.Space.CIDR.Bits(),
				VLANID:  rec.Space.VLANID,
			}
		}

		lastSeen := ""
		if !a.LastSeen.IsZero() {
			lastSeen = a.LastSeen.Format(time.RFC3339)
		}

		env.Data = append(env.Data, jsonAssignment{
			IPAddress:       a.Addr.String(),
			Hostname:        a.Hostname,
			CNAME:           a.CNAME,
			MACAddress:      a.MAC,
			Status:          string(a.Status),
			IsAssigned:      a.Assigned,
			LastSeen:        lastSeen,
			DiscoverySource: a.DiscoverySource,
			Description:     a.Description,
			Network:         network,
		})
	}
	return json.MarshalIndent(env, "", "  ")
}
