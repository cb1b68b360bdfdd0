// Package export renders submitted reports as downloadable files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"firesim/internal/domain/report"
)

// Format constants for export file format.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Content types for the export formats.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// utf8BOM makes spreadsheet applications detect UTF-8 for Korean text.
const utf8BOM = "\ufeff"

// Header is the CSV header row.
var Header = []string{"팀", "이름", "제목", "팀원", "현상파악", "문제정의", "원인분석", "해결방안", "재발방지", "일정"}

// Domain errors.
var (
	ErrNoReports = errors.New("no reports to export")
)

// CSV renders every report as one row. Cells are always quoted and line
// breaks inside a cell become spaces so each report stays on one line.
// PRE: len(reports) > 0
// POST: output starts with a UTF-8 BOM followed by Header
func CSV(reports []report.Report) ([]byte, error) {
	if len(reports) == 0 {
		return nil, ErrNoReports
	}
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	writeRow(&buf, Header)
	for _, r := range reports {
		c := r.Content
		writeRow(&buf, []string{
			strconv.Itoa(r.TeamID),
			r.UserName,
			c.Title,
			c.Members,
			c.Situation,
			c.Definition,
			c.Cause,
			c.Solution,
			c.Prevention,
			c.Schedule,
		})
	}
	return buf.Bytes(), nil
}

func writeRow(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(flatten(cell), `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

// flatten replaces every line break with a single space.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// JSON renders one report as indented JSON.
func JSON(r report.Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// CSVFilename returns the download name for a session's CSV export.
func CSVFilename(groupName string) string {
	return fmt.Sprintf("%s_전체보고서.csv", sanitize(groupName))
}

// JSONFilename returns the download name for a single report.
func JSONFilename(r report.Report) string {
	return fmt.Sprintf("%s_%s_보고서.json", r.TeamName(), sanitize(r.UserName))
}

// sanitize removes path separators and quotes from user-supplied file name parts.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("/", "_", `\`, "_", `"`, "", "\n", " ", "\r", "").Replace(s)
}
