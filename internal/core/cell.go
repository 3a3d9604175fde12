package core

import (
	"strconv"
	"strings"

	"incidentdesk/pkg/domain"
)

// cell is the raw value an accessor reads from a record. Exactly one of the
// value fields is meaningful, selected by kind.
type cell struct {
	kind cellKind
	text string
	num  int
	flag bool
	list []string
}

type cellKind int

const (
	cellText cellKind = iota
	cellNumber
	cellBool
	cellList
)

// BloodType joins a blood group letter and Rh sign the way the board shows
// and filters them.
func BloodType(letter, rh string) string {
	return letter + " " + rh
}

func cellValue(r domain.Record, a domain.Accessor) cell {
	switch a {
	case domain.AccessName:
		return cell{kind: cellText, text: r.Name}
	case domain.AccessSurname:
		return cell{kind: cellText, text: r.Surname}
	case domain.AccessAge:
		return cell{kind: cellNumber, num: r.Age}
	case domain.AccessSex:
		return cell{kind: cellText, text: r.Sex}
	case domain.AccessBloodType:
		return cell{kind: cellText, text: BloodType(r.BloodGroup, r.BloodRh)}
	case domain.AccessArrivalReason:
		return cell{kind: cellText, text: r.ArrivalReason}
	case domain.AccessArrivalNote:
		return cell{kind: cellText, text: r.ArrivalNote}
	case domain.AccessOccupants:
		return cell{kind: cellList, list: r.Occupants}
	case domain.AccessAssault:
		return cell{kind: cellBool, flag: r.Assault}
	case domain.AccessOrganization:
		return cell{kind: cellText, text: r.Organization}
	case domain.AccessComplaint:
		return cell{kind: cellText, text: r.Complaint}
	case domain.AccessPhysician:
		return cell{kind: cellText, text: r.Physician}
	case domain.AccessSuitableEnvironment:
		return cell{kind: cellBool, flag: r.SuitableEnvironment}
	default:
		return cell{kind: cellText}
	}
}

func yesNo(v bool) string {
	if v {
		return domain.Yes
	}
	return domain.No
}

// plain is the neutral string form of a cell, used when no render or match
// tag says otherwise.
func (c cell) plain() string {
	switch c.kind {
	case cellNumber:
		return strconv.Itoa(c.num)
	case cellBool:
		return strconv.FormatBool(c.flag)
	case cellList:
		return strings.Join(c.list, ",")
	default:
		return c.text
	}
}

func renderCell(c cell, r domain.Render) string {
	switch r {
	case domain.RenderYesNo:
		if c.kind == cellBool {
			return yesNo(c.flag)
		}
	case domain.RenderJoined:
		if c.kind == cellList {
			return strings.Join(c.list, ", ")
		}
	}
	return c.plain()
}

// matchTokens returns the tokens a cell offers to the filter evaluator. A
// record matches a column when any token equals an active value.
func matchTokens(c cell, m domain.MatchMode) []string {
	switch m {
	case domain.MatchYesNo:
		if c.kind == cellBool {
			return []string{yesNo(c.flag)}
		}
	case domain.MatchBoolLiteral:
		if c.kind == cellBool {
			return []string{strconv.FormatBool(c.flag)}
		}
	case domain.MatchListContains:
		if c.kind == cellList {
			return c.list
		}
	}
	return []string{c.plain()}
}

// RenderCell returns the display string of column for record.
func (c *Catalog) RenderCell(record domain.Record, columnID string) string {
	col, ok := c.column(columnID)
	if !ok {
		return ""
	}
	return renderCell(cellValue(record, col.Accessor), col.Render)
}

// GroupKey returns the token a record is grouped under for column.
func (c *Catalog) GroupKey(record domain.Record, columnID string) string {
	col, ok := c.column(columnID)
	if !ok {
		return ""
	}
	v := cellValue(record, col.Accessor)
	if col.Match == domain.MatchListContains {
		return v.plain()
	}
	return matchTokens(v, col.Match)[0]
}
