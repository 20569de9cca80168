package model

import "fmt"

type Status string

const (
	StatusCreated      Status = "created"
	StatusUpdated      Status = "updated"
	StatusFailed       Status = "failed"
	StatusNotAttempted Status = "not_attempted"
)

// Stage is the last state a row reached in the pipeline.
type Stage string

const (
	StageParsed              Stage = "parsed"
	StageEnriched            Stage = "enriched"
	StagePriced              Stage = "priced"
	StageCollectionsResolved Stage = "collections_resolved"
	StageUpserted            Stage = "upserted"
)

// Outcome is the result of one RawRow. Exactly one is produced per input row.
type Outcome struct {
	Index     int
	Line      int
	Name      string
	SKU       string
	Status    Status
	ProductID string
	Stage     Stage // on failure: the stage that failed
	Err       error
	Warnings  []string
}

func (o *Outcome) Warn(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusCreated || o.Status == StatusUpdated
}

// Summary counts outcomes of one run. A warned row is also counted as
// created or updated.
type Summary struct {
	Total        int
	Created      int
	Updated      int
	Warned       int
	Failed       int
	NotAttempted int
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusCreated:
			s.Created++
		case StatusUpdated:
			s.Updated++
		case StatusFailed:
			s.Failed++
		case StatusNotAttempted:
			s.NotAttempted++
		}
		if o.Succeeded() && len(o.Warnings) > 0 {
			s.Warned++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d created=%d updated=%d warned=%d failed=%d not_attempted=%d",
		s.Total, s.Created, s.Updated, s.Warned, s.Failed, s.NotAttempted)
}
