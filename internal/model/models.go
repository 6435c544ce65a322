package model

import "fmt"

// Status is the triage state of a photo record.
type Status int

const (
	StatusNormal  Status = 0 // untriaged
	StatusKeep    Status = 1 // user chose to keep
	StatusTrashed Status = 2 // user chose to trash
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusKeep:
		return "KEEP"
	case StatusTrashed:
		return "TRASHED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// CoverPriority is the total order used when selecting a group cover:
// NORMAL before KEEP before TRASHED, so an untriaged photo is surfaced
// ahead of already-decided ones. Lower is preferred.
func CoverPriority(s Status) int {
	switch s {
	case StatusNormal:
		return 0
	case StatusKeep:
		return 1
	case StatusTrashed:
		return 2
	default:
		return 3
	}
}

// GroupType distinguishes year buckets from month buckets.
type GroupType string

const (
	GroupTypeYear  GroupType = "YEAR"
	GroupTypeMonth GroupType = "MONTH"
)

// GroupKey identifies a time bucket structurally. Month is the English
// 3-letter abbreviation ("Jan") and is empty for year buckets. Keeping
// year and month as separate fields avoids re-parsing rendered keys.
type GroupKey struct {
	Year  string
	Month string
}

// YearKey returns the key of the year bucket containing k.
func (k GroupKey) YearKey() GroupKey { return GroupKey{Year: k.Year} }

// Type returns the bucket type implied by the key shape.
func (k GroupKey) Type() GroupType {
	if k.Month == "" {
		return GroupTypeYear
	}
	return GroupTypeMonth
}

// String renders the stored form: "2024" for years, "2024-Jan" for months.
func (k GroupKey) String() string {
	if k.Month == "" {
		return k.Year
	}
	return k.Year + "-" + k.Month
}

// Photo mirrors one entry of the external media index. ID is the stable
// external media identifier, not a row id.
type Photo struct {
	ID         int64  // external media identifier
	Path       string // absolute file path
	TakenAt    int64  // capture time, milliseconds since epoch
	YearGroup  string // e.g. "2024"
	MonthGroup string // e.g. "Jan"
	Status     Status
}

// Key returns the month bucket the photo belongs to.
func (p Photo) Key() GroupKey {
	return GroupKey{Year: p.YearGroup, Month: p.MonthGroup}
}

// PhotoGroup is a persisted aggregate over one time bucket.
type PhotoGroup struct {
	GroupKey    string // rendered key, primary key together with GroupType
	GroupType   GroupType
	YearGroup   string
	MonthGroup  string // empty for year groups
	LatestAt    int64  // newest capture time in the bucket
	EarliestAt  int64  // oldest capture time in the bucket
	PhotoCount  int
	TrashCount  int
	KeepCount   int
	CoverPath   string // cover photo path, empty when no cover is available
	CoverID     int64  // cover photo media identifier
	DisplayName string
}

// Key returns the structured form of the group's key.
func (g PhotoGroup) Key() GroupKey {
	return GroupKey{Year: g.YearGroup, Month: g.MonthGroup}
}

// ScanStats summarizes one reconciliation pass over the media source.
type ScanStats struct {
	Scanned        int
	Inserted       int
	Updated        int
	SkippedFiles   int // entries whose backing file was gone or path invalid
	DeletedRecords int // stale records removed because the file was gone
	Batches        int
}

// DeleteResult is the per-photo success/failure tally of a permanent delete.
type DeleteResult struct {
	Succeeded int
	Failed    int
}
