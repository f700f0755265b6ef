// Package export renders requisitions into the report format handed to
// auditors: a header block, a Field,Value section, and the full history.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/spec-kit/requisition-service/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// Filename returns the download name for a requisition export.
func Filename(req *domain.Requisition) string {
	return fmt.Sprintf("requisition_%s.csv", req.DisplayID)
}

// RequisitionCSV renders one requisition, including its changelog, as a CSV
// report.
func RequisitionCSV(req *domain.Requisition, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Request Export Report"},
		{"Generated on", now.Format(timestampLayout)},
		{},
		{"Basic Information"},
		{"Field", "Value"},
		{"Display ID", req.DisplayID},
		{"Type", typeLabel(req.Type)},
		{"Subject", req.Subject},
		{"Description", req.Description},
		{"Status", string(req.Status)},
		{"Priority", string(req.Priority)},
		{"Submitted By", req.RequesterName},
		{"Submitted Date", req.CreatedAt.Format(timestampLayout)},
		{"Last Updated", req.UpdatedAt.Format(timestampLayout)},
	}
	rows = append(rows, variantRows(req)...)
	rows = append(rows, []string{}, []string{"Request History"}, []string{"Date", "Action", "User", "Details"})
	for _, entry := range req.Changelog {
		rows = append(rows, []string{
			entry.Timestamp.Format(timestampLayout),
			string(entry.Action),
			entry.Actor,
			entry.Details,
		})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func variantRows(req *domain.Requisition) [][]string {
	switch {
	case req.IT != nil:
		rows := [][]string{{"Category", req.IT.Category}}
		if req.IT.AssignedTo != nil {
			rows = append(rows, []string{"Assigned To", *req.IT.AssignedTo})
		}
		return rows
	case req.ConferenceRoom != nil:
		cr := req.ConferenceRoom
		rows := [][]string{
			{"Room", cr.RoomName},
			{"Start", cr.StartDatetime.Format(timestampLayout)},
			{"End", cr.EndDatetime.Format(timestampLayout)},
			{"Attendees", strconv.Itoa(cr.AttendeesCount)},
		}
		if cr.Equipment != nil {
			rows = append(rows, []string{"Equipment", *cr.Equipment})
		}
		return rows
	case req.Leave != nil:
		lv := req.Leave
		rows := [][]string{
			{"Leave Type", lv.LeaveType},
			{"Start Date", lv.StartDate.Format("2006-01-02")},
			{"End Date", lv.EndDate.Format("2006-01-02")},
			{"Total Days", strconv.Itoa(lv.TotalDays)},
		}
		if lv.ReplacementName != "" {
			rows = append(rows, []string{"Replacement", lv.ReplacementName})
			rows = append(rows, []string{"Replacement Confirmed", replacementLabel(lv.ReplacementConfirmed)})
		}
		return rows
	}
	return nil
}

func typeLabel(t domain.RequisitionType) string {
	switch t {
	case domain.TypeIT:
		return "IT Support"
	case domain.TypeConferenceRoom:
		return "Conference Room"
	case domain.TypeLeave:
		return "Leave"
	}
	return string(t)
}

func replacementLabel(confirmed *bool) string {
	switch {
	case confirmed == nil:
		return "Awaiting response"
	case *confirmed:
		return "Confirmed"
	default:
		return "Declined"
	}
}
