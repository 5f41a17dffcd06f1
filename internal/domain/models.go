package domain

import (
	"net/netip"
	"time"
)

type AssignmentID string

// Status is a descriptive tag on an Assignment. It is set by the caller
// and never transitioned automatically.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusReserved Status = "reserved"
)

// Space is one managed CIDR block. CIDR is immutable after creation;
// resizing a space is a delete and recreate, never an in-place edit.
type Space struct {
	ID          int64
	CIDR        netip.Prefix
	Name        string
	Domain      string
	VLANID      int32
	Location    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignment binds one concrete address to host metadata. Addr is unique
// across the whole store. SpaceID is zero for unmanaged assignments.
type Assignment struct {
	ID              AssignmentID
	Addr            netip.Addr
	Hostname        string
	CNAME           string
	MAC             string
	Description     string
	Status          Status
	SpaceID         int64
	Assigned        bool
	LastSeen        time.Time
	DiscoverySource string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReservedRange is a contiguous sub-range of a space (a DHCP pool, say)
// whose addresses are withheld from allocation while Active.
type ReservedRange struct {
	ID          int64
	SpaceID     int64
	Start       netip.Addr
	End         netip.Addr
	Active      bool
	Description string
	CreatedAt   time.Time
}

// Utilization summarizes address usage within one space.
type Utilization struct {
	Total     uint64
	Used      uint64
	Available uint64
}

// Classification is the answer to "what is this address".
type Classification string

const (
	ClassAssigned  Classification = "assigned"
	ClassReserved  Classification = "reserved"
	ClassAvailable Classification = "available"
	ClassUnmanaged Classification = "unmanaged"
)

// QueryResult carries the classification of one address plus whatever
// record backs it: assigned carries the Assignment (and the Space when
// managed), reserved and available carry the owning Space, unmanaged
// carries neither.
type QueryResult struct {
	Addr       netip.Addr
	Class      Classification
	Assignment *Assignment
	Space      *Space
}

// Snapshot is the full persisted state, dumped and loaded atomically by
// the backup layer.
type Snapshot struct {
	Spaces      []Space         `json:"spaces"`
	Assignments []Assignment    `json:"assignments"`
	Ranges      []ReservedRange `json:"reserved_ranges"`
}
