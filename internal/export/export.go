// Package export renders history rows as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

const sheetName = "Visit History"

var Header = []string{
	"Visitor ID", "First Name", "Last Name", "Known As", "Address", "Phone",
	"Unit", "Reason", "Type", "Company", "Acknowledgment Taken",
	"Entry Time", "Exit Time", "Dependents", "Banned",
}

// Row flattens one history record into Header order. Times are RFC 3339
// UTC; an open visit has an empty exit time.
func Row(r types.VisitRecord) []string {
	return []string{
		strconv.FormatInt(r.VisitorID, 10),
		r.FirstName,
		r.LastName,
		r.KnownAs,
		r.Address,
		r.PhoneNumber,
		r.Unit,
		r.ReasonForVisit,
		r.VisitorType,
		r.CompanyName,
		yesNo(r.MandatoryAcknowledgmentTaken),
		formatTime(r.EntryTime),
		formatTime(r.ExitTime),
		formatDependents(r.Dependents),
		yesNo(r.IsBanned),
	}
}

func WriteCSV(w io.Writer, recs []types.VisitRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, recs []types.VisitRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for col, h := range Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range recs {
		for col, v := range Row(r) {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatDependents renders "Sam Doe (7); Kit Doe".
func formatDependents(deps []types.Dependent) string {
	parts := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Age != nil {
			parts = append(parts, fmt.Sprintf("%s (%d)", d.FullName, *d.Age))
		} else {
			parts = append(parts, d.FullName)
		}
	}
	return strings.Join(parts, "; ")
}
