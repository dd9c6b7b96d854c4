package leads

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParseCSVLine splits one CSV line on commas outside quotes. Every '"'
// toggles the quoted state and is dropped; doubled quotes are not an
// escape. Values are trimmed.
func ParseCSVLine(line string) []string {
	var (
		values   []string
		cur      strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			values = append(values, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(values, strings.TrimSpace(cur.String()))
}

type fieldAliases struct {
	field   string
	aliases []string
}

// Header spellings accepted per field, consulted in order. Matching ignores
// case, spaces, '-' and '_'.
var leadFieldAliases = []fieldAliases{
	{"companyName", []string{"Company Name", "Company", "Organization", "Organisation", "Business Name", "Business"}},
	{"contactPerson", []string{"Contact Person", "Contact", "Contact Name", "Full Name", "Name"}},
	{"email", []string{"Email", "Email Address", "Mail"}},
	{"phone", []string{"Phone", "Phone Number", "Mobile", "Mobile Number", "Telephone", "Tel"}},
	{"status", []string{"Status", "Lead Status"}},
	{"leadSource", []string{"Lead Source", "Source"}},
	{"notes", []string{"Notes", "Note", "Comments", "Comment"}},
	{"followUpDate", []string{"Follow-Up Date", "Follow Up", "Next Follow-Up", "Follow-Up", "Next Contact Date"}},
}

var statusAliases = map[string]Status{
	"new":          StatusNew,
	"contacted":    StatusContacted,
	"indiscussion": StatusInDiscussion,
	"discussion":   StatusInDiscussion,
	"inprogress":   StatusInDiscussion,
	"negotiation":  StatusInDiscussion,
	"converted":    StatusConverted,
	"won":          StatusConverted,
	"closedwon":    StatusConverted,
	"lost":         StatusLost,
	"closedlost":   StatusLost,
}

var sourceAliases = map[string]Source{
	"websiteform": SourceWebsiteForm,
	"website":     SourceWebsiteForm,
	"web":         SourceWebsiteForm,
	"webform":     SourceWebsiteForm,
	"form":        SourceWebsiteForm,
	"manual":      SourceManual,
	"referral":    SourceReferral,
	"referred":    SourceReferral,
	"other":       SourceOther,
}

var followUpLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1/2/2006",
	"2/1/2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var importEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ImportRow is one accepted CSV row, normalized.
type ImportRow struct {
	Row           int
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
	Status        Status
	LeadSource    Source
	Notes         string
	FollowUpDate  *time.Time
}

// ParseImport turns CSV text into normalized rows plus one message per
// rejected row. Rows are numbered from 1 with the header as row 1.
func ParseImport(contents string) ([]ImportRow, []string) {
	lines := nonBlankLines(contents)
	if len(lines) == 0 {
		return nil, []string{"CSV file is empty"}
	}
	headers := ParseCSVLine(lines[0])
	for i, h := range headers {
		headers[i] = normalizeKey(h)
	}

	var (
		rows []ImportRow
		errs []string
	)
	for i, line := range lines[1:] {
		rowNum := i + 2
		values := ParseCSVLine(line)
		record := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(values) && record[h] == "" {
				record[h] = values[j]
			}
		}
		get := func(field string) string { return lookupField(record, field) }

		row := ImportRow{
			Row:           rowNum,
			CompanyName:   get("companyName"),
			ContactPerson: get("contactPerson"),
			Email:         get("email"),
			Phone:         get("phone"),
			Status:        normalizeStatus(get("status")),
			LeadSource:    normalizeSource(get("leadSource")),
			Notes:         get("notes"),
		}
		label := row.CompanyName
		if label == "" {
			label = "Unknown"
		}
		if row.CompanyName == "" || row.ContactPerson == "" || row.Email == "" {
			errs = append(errs, fmt.Sprintf("Row %d: Missing required fields (companyName, contactPerson, email) for %s", rowNum, label))
			continue
		}
		if !importEmailPattern.MatchString(row.Email) {
			errs = append(errs, fmt.Sprintf("Row %d: Invalid email format %q for %s", rowNum, row.Email, label))
			continue
		}
		if raw := get("followUpDate"); raw != "" {
			t, err := parseFollowUpDate(raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("Row %d: Invalid follow-up date %q for %s", rowNum, raw, label))
				continue
			}
			row.FollowUpDate = &t
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func nonBlankLines(contents string) []string {
	contents = strings.TrimPrefix(contents, "\ufeff")
	var out []string
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

func lookupField(record map[string]string, field string) string {
	for _, fa := range leadFieldAliases {
		if fa.field != field {
			continue
		}
		if v := record[normalizeKey(field)]; v != "" {
			return v
		}
		for _, alias := range fa.aliases {
			if v := record[normalizeKey(alias)]; v != "" {
				return v
			}
		}
	}
	return ""
}

func normalizeStatus(raw string) Status {
	if s, ok := statusAliases[normalizeKey(raw)]; ok {
		return s
	}
	return StatusNew
}

func normalizeSource(raw string) Source {
	if s, ok := sourceAliases[normalizeKey(raw)]; ok {
		return s
	}
	return SourceManual
}

func parseFollowUpDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range followUpLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
