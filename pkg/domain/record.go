// Package domain defines the incident intake records, column descriptors and
// error taxonomy shared by the core board logic and its adapters.
package domain

// Record is one incident intake as emitted by the entry form. JSON keys follow
// the form payload so producers can post their objects unchanged.
type Record struct {
	ID                  string   `json:"id"`
	Name                string   `json:"ad"`
	Surname             string   `json:"soyad"`
	Age                 int      `json:"yas"`
	Sex                 string   `json:"cinsiyet"`
	BloodGroup          string   `json:"kanGrubu"`
	BloodRh             string   `json:"kanGrubuRh"`
	ArrivalReason       string   `json:"gelisNedeni"`
	ArrivalNote         string   `json:"gelisNedeniAciklama"`
	Occupants           []string `json:"odadaBulunanlar"`
	Assault             bool     `json:"darpDurumu"`
	Organization        string   `json:"organizasyon"`
	Complaint           string   `json:"sikayet"`
	Physician           string   `json:"doktorAdi"`
	SuitableEnvironment bool     `json:"uygunOrtamSaglandi"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Occupants != nil {
		out.Occupants = append([]string(nil), r.Occupants...)
	}
	return out
}

// CloneRecords deep copies a record slice, preserving order. A nil input
// yields an empty, non-nil slice.
func CloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// Bucket is one (group key, count) pair of a grouped count.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
