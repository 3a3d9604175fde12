package core

import (
	"fmt"

	"incidentdesk/pkg/domain"
)

func sampleRecord(id, org string) domain.Record {
	return domain.Record{
		ID:                  id,
		Name:                "Ayşe",
		Surname:             "Yılmaz",
		Age:                 34,
		Sex:                 "Kadın",
		BloodGroup:          "A",
		BloodRh:             "+",
		ArrivalReason:       "Trafik Kazası",
		ArrivalNote:         "kavşakta çarpışma",
		Occupants:           []string{"Tabip"},
		Assault:             false,
		Organization:        org,
		Complaint:           "baş ağrısı",
		Physician:           "Dr. Demir",
		SuitableEnvironment: true,
	}
}

func recordsForOrgs(orgs ...string) []domain.Record {
	out := make([]domain.Record, len(orgs))
	for i, org := range orgs {
		out[i] = sampleRecord(fmt.Sprintf("r%d", i+1), org)
	}
	return out
}

func ids(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
