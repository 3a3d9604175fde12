package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Accessor names the record field (or combination of fields) a column reads.
type Accessor string

const (
	AccessName                Accessor = "name"
	AccessSurname             Accessor = "surname"
	AccessAge                 Accessor = "age"
	AccessSex                 Accessor = "sex"
	AccessBloodType           Accessor = "blood_type" // letter + " " + rh
	AccessArrivalReason       Accessor = "arrival_reason"
	AccessArrivalNote         Accessor = "arrival_note"
	AccessOccupants           Accessor = "occupants"
	AccessAssault             Accessor = "assault"
	AccessOrganization        Accessor = "organization"
	AccessComplaint           Accessor = "complaint"
	AccessPhysician           Accessor = "physician"
	AccessSuitableEnvironment Accessor = "suitable_environment"
)

// Render tags the display transform applied to a cell.
type Render string

const (
	RenderPlain  Render = "plain"
	RenderNumber Render = "number"
	RenderYesNo  Render = "yes_no" // true -> Evet, false -> Hayır
	RenderJoined Render = "joined" // list -> ", " joined
)

// MatchMode tags how a cell is turned into the token compared against active
// filter values.
type MatchMode string

const (
	// MatchText compares the textual cell value.
	MatchText MatchMode = "text"
	// MatchYesNo compares the Evet/Hayır rendering of a boolean.
	MatchYesNo MatchMode = "yes_no"
	// MatchBoolLiteral compares "true"/"false".
	MatchBoolLiteral MatchMode = "bool_literal"
	// MatchListExact compares the whole list joined with "," against one value.
	MatchListExact MatchMode = "list_exact"
	// MatchListContains tests list membership.
	MatchListContains MatchMode = "list_contains"
)

// ValueKind is the wire type of a filter option value.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindBoolean ValueKind = "boolean"
)

// Yes/no display tokens.
const (
	Yes = "Evet"
	No  = "Hayır"
)

// FilterOption is one entry of a column's filter menu.
type FilterOption struct {
	Text  string
	Value string
	Kind  ValueKind
}

// MarshalJSON encodes boolean options with a literal JSON boolean value.
func (o FilterOption) MarshalJSON() ([]byte, error) {
	var value any = o.Value
	if o.Kind == KindBoolean {
		value = o.Value == "true"
	}
	return json.Marshal(struct {
		Text  string `json:"text"`
		Value any    `json:"value"`
	}{o.Text, value})
}

// UnmarshalJSON accepts the string and boolean values MarshalJSON emits.
func (o *FilterOption) UnmarshalJSON(b []byte) error {
	var raw struct {
		Text  string `json:"text"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.Text = raw.Text
	switch v := raw.Value.(type) {
	case bool:
		o.Value, o.Kind = strconv.FormatBool(v), KindBoolean
	case string:
		o.Value, o.Kind = v, KindString
	case nil:
		o.Value, o.Kind = "", KindString
	default:
		return fmt.Errorf("filter option %q: unsupported value %v", raw.Text, v)
	}
	return nil
}

// Column describes one displayed field. It carries data only; the core
// interprets the tags.
type Column struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Accessor Accessor       `json:"accessor"`
	Render   Render         `json:"render"`
	Match    MatchMode      `json:"match"`
	Filters  []FilterOption `json:"filters,omitempty"`
}

// Filterable reports whether the column exposes a filter menu.
func (c Column) Filterable() bool { return len(c.Filters) > 0 }

// Clone returns a copy that shares no slices with c.
func (c Column) Clone() Column {
	out := c
	if c.Filters != nil {
		out.Filters = append([]FilterOption(nil), c.Filters...)
	}
	return out
}
