package domain

import "time"

type CreateSpaceInput struct {
	CIDR        string
	Name        string
	Domain      string
	VLANID      int32
	Location    string
	Description string
}

type CreateAssignmentInput struct {
	Addr            string
	Hostname        string
	CNAME           string
	MAC             string
	Description     string
	Status          string
	SpaceID         int64
	Assigned        bool
	LastSeen        time.Time
	DiscoverySource string

	// AllowUnmanaged permits an assignment whose address falls outside
	// every managed space. Off by default.
	AllowUnmanaged bool
}

type UpdateAssignmentInput struct {
	Hostname        string
	CNAME           string
	MAC             string
	Description     string
	Status          string
	Assigned        bool
	LastSeen        time.Time
	DiscoverySource string
}

type CreateRangeInput struct {
	SpaceID     int64
	Start       string
	End         string
	Active      bool
	Description string
}

// SpaceImportRow and AssignmentImportRow tie a parsed record back to its
// source line so import failures can point at it.
type SpaceImportRow struct {
	Line  int
	Input CreateSpaceInput
}

type AssignmentImportRow struct {
	Line  int
	Input CreateAssignmentInput
}

type ImportFailure struct {
	Line int
	Err  string
}

// ImportResult reports a partial-success batch: committed records stay
// committed even when other rows fail.
type ImportResult struct {
	Committed int
	Failures  []ImportFailure
}
