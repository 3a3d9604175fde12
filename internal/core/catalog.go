package core

import (
	"fmt"

	"incidentdesk/pkg/domain"
)

// Well-known column identifiers.
const (
	ColumnName                = "ad"
	ColumnSurname             = "soyad"
	ColumnAge                 = "yas"
	ColumnSex                 = "cinsiyet"
	ColumnBloodType           = "kanGrubu"
	ColumnArrivalReason       = "gelisNedeni"
	ColumnArrivalNote         = "gelisNedeniAciklama"
	ColumnOccupants           = "odadaBulunanlar"
	ColumnAssault             = "darpDurumu"
	ColumnOrganization        = "organizasyon"
	ColumnComplaint           = "sikayet"
	ColumnPhysician           = "doktorAdi"
	ColumnSuitableEnvironment = "uygunOrtamSaglandi"
)

// OccupantMatch selects how the occupants filter compares a record's list
// against a selected role.
type OccupantMatch string

const (
	// OccupantMatchExact matches only when the whole list equals the value.
	OccupantMatchExact OccupantMatch = "exact"
	// OccupantMatchContains matches when the list contains the value.
	OccupantMatchContains OccupantMatch = "contains"
)

// ParseOccupantMatch validates a configured occupant match policy. Empty
// input selects OccupantMatchExact.
func ParseOccupantMatch(raw string) (OccupantMatch, error) {
	switch OccupantMatch(raw) {
	case "", OccupantMatchExact:
		return OccupantMatchExact, nil
	case OccupantMatchContains:
		return OccupantMatchContains, nil
	default:
		return "", fmt.Errorf("unknown occupant match policy %q", raw)
	}
}

func textOptions(values ...string) []domain.FilterOption {
	out := make([]domain.FilterOption, len(values))
	for i, v := range values {
		out[i] = domain.FilterOption{Text: v, Value: v, Kind: domain.KindString}
	}
	return out
}

var bloodTypeFilters = []domain.FilterOption{
	{Text: "A+", Value: "A +", Kind: domain.KindString},
	{Text: "A-", Value: "A -", Kind: domain.KindString},
	{Text: "B+", Value: "B +", Kind: domain.KindString},
	{Text: "B-", Value: "B -", Kind: domain.KindString},
	{Text: "AB+", Value: "AB +", Kind: domain.KindString},
	{Text: "AB-", Value: "AB -", Kind: domain.KindString},
	{Text: "0+", Value: "0 +", Kind: domain.KindString},
	{Text: "0-", Value: "0 -", Kind: domain.KindString},
}

var suitabilityFilters = []domain.FilterOption{
	{Text: domain.Yes, Value: "true", Kind: domain.KindBoolean},
	{Text: domain.No, Value: "false", Kind: domain.KindBoolean},
}

func defaultColumns(occupants OccupantMatch) []domain.Column {
	occupantMode := domain.MatchListExact
	if occupants == OccupantMatchContains {
		occupantMode = domain.MatchListContains
	}
	return []domain.Column{
		{ID: ColumnName, Title: "Ad", Accessor: domain.AccessName, Render: domain.RenderPlain, Match: domain.MatchText},
		{ID: ColumnSurname, Title: "Soyad", Accessor: domain.AccessSurname, Render: domain.RenderPlain, Match: domain.MatchText},
		{ID: ColumnAge, Title: "Yaş", Accessor: domain.AccessAge, Render: domain.RenderNumber, Match: domain.MatchText},
		{
			ID: ColumnSex, Title: "Cinsiyet", Accessor: domain.AccessSex, Render: domain.RenderPlain, Match: domain.MatchText,
			Filters: textOptions("Erkek", "Kadın"),
		},
		{
			ID: ColumnBloodType, Title: "Kan Grubu", Accessor: domain.AccessBloodType, Render: domain.RenderPlain, Match: domain.MatchText,
			Filters: bloodTypeFilters,
		},
		{
			ID: ColumnArrivalReason, Title: "Geliş Nedeni", Accessor: domain.AccessArrivalReason, Render: domain.RenderPlain, Match: domain.MatchText,
			Filters: textOptions(
				"Etkili Eylem",
				"Trafik Kazası",
				"İş Kazası",
				"Diğer Kazalar",
				"İnsan Hakları İhlali İddiası",
				"İntihar Girişimi",
				"Zehirlenmeler",
			),
		},
		{ID: ColumnArrivalNote, Title: "Geliş Nedeni Açıklama", Accessor: domain.AccessArrivalNote, Render: domain.RenderPlain, Match: domain.MatchText},
		{
			ID: ColumnOccupants, Title: "Odada Bulunanlar", Accessor: domain.AccessOccupants, Render: domain.RenderJoined, Match: occupantMode,
			Filters: textOptions(
				"Tabip",
				"Sağlık Personeli",
				"Sağlık Meslek Mensubu Personel",
				"Refakatçi",
				"Güvenlik Görevlisi",
			),
		},
		{
			ID: ColumnAssault, Title: "Darp Durumu", Accessor: domain.AccessAssault, Render: domain.RenderYesNo, Match: domain.MatchYesNo,
			Filters: textOptions(domain.Yes, domain.No),
		},
		{ID: ColumnOrganization, Title: "Organizasyon", Accessor: domain.AccessOrganization, Render: domain.RenderPlain, Match: domain.MatchText},
		{ID: ColumnComplaint, Title: "Şikayet", Accessor: domain.AccessComplaint, Render: domain.RenderPlain, Match: domain.MatchText},
		{ID: ColumnPhysician, Title: "Doktor Adı", Accessor: domain.AccessPhysician, Render: domain.RenderPlain, Match: domain.MatchText},
		{
			ID: ColumnSuitableEnvironment, Title: "Uygun Ortam Sağlandı", Accessor: domain.AccessSuitableEnvironment, Render: domain.RenderYesNo, Match: domain.MatchBoolLiteral,
			Filters: suitabilityFilters,
		},
	}
}

// Catalog is the static column table the board is rendered from. It is
// built once and never mutated; accessors hand out copies.
type Catalog struct {
	columns []domain.Column
	index   map[string]int
}

// CatalogOption customises a catalog at construction time.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	occupants OccupantMatch
}

// WithOccupantMatch selects the occupants filter policy.
func WithOccupantMatch(m OccupantMatch) CatalogOption {
	return func(c *catalogConfig) { c.occupants = m }
}

// NewCatalog builds the board catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	cfg := catalogConfig{occupants: OccupantMatchExact}
	for _, opt := range opts {
		opt(&cfg)
	}
	cols := defaultColumns(cfg.occupants)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.ID] = i
	}
	return &Catalog{columns: cols, index: idx}
}

// DefaultCatalog returns a catalog with the exact occupants policy.
func DefaultCatalog() *Catalog { return NewCatalog() }

// Columns returns the column definitions in display order.
func (c *Catalog) Columns() []domain.Column {
	out := make([]domain.Column, len(c.columns))
	for i, col := range c.columns {
		out[i] = col.Clone()
	}
	return out
}

// Column looks up a column by id.
func (c *Catalog) Column(id string) (domain.Column, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Column{}, false
	}
	return c.columns[i].Clone(), true
}

func (c *Catalog) column(id string) (*domain.Column, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.columns[i], true
}
