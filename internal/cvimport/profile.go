package cvimport

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// Profile is the candidate data recovered from one CV.
type Profile struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Skills   []string `json:"skills"`
	LinkedIn string   `json:"linkedIn,omitempty"`
}

const maxSkills = 30

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)
	linkedInPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/[A-Za-z0-9_\-%]+/?`)
	skillsHeading   = regexp.MustCompile(`(?i)^\s*(?:technical\s+|core\s+|key\s+)?skills?\b(?:\s*(?:&|and)\s*\w+)?\s*(?::|-|–|$)\s*`)
	skillSeparators = regexp.MustCompile(`[,;|•·●▪]+`)
)

var sectionHeadings = map[string]bool{
	"experience": true, "work experience": true, "professional experience": true, "employment history": true,
	"education": true, "projects": true, "certifications": true, "certificates": true, "languages": true,
	"summary": true, "profile": true, "objective": true, "references": true, "interests": true, "awards": true,
}

var documentTitles = map[string]bool{"curriculum vitae": true, "resume": true, "résumé": true, "cv": true}

// ParseProfile pulls contact details and skills out of résumé text. The
// file name is the fallback for the candidate name.
func ParseProfile(text, fileName string) Profile {
	p := Profile{Skills: []string{}}
	if m := emailPattern.FindString(text); m != "" {
		p.Email = strings.ToLower(m)
	}
	if m := linkedInPattern.FindString(text); m != "" {
		p.LinkedIn = strings.TrimSuffix(m, "/")
	}
	for _, m := range phonePattern.FindAllString(text, -1) {
		if digits := countDigits(m); digits >= 9 && digits <= 15 {
			p.Phone = strings.TrimSpace(m)
			break
		}
	}

	lines := strings.Split(text, "\n")
	p.Name = guessName(lines)
	if p.Name == "" {
		p.Name = nameFromFile(fileName)
	}
	p.Skills = collectSkills(lines)
	return p
}

func guessName(lines []string) string {
	for i, raw := range lines {
		if i >= 8 {
			break
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if emailPattern.MatchString(line) || linkedInPattern.MatchString(line) || strings.Contains(lower, "http") {
			continue
		}
		heading := strings.Trim(lower, ": ")
		if strings.IndexFunc(line, unicode.IsDigit) >= 0 || sectionHeadings[heading] || documentTitles[heading] || skillsHeading.MatchString(line) {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 1 || len(words) > 5 || strings.IndexFunc(line, unicode.IsLetter) < 0 {
			continue
		}
		return strings.Join(words, " ")
	}
	return ""
}

// nameFromFile follows the "Name_CV.pdf" convention.
func nameFromFile(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}
	return strings.TrimSpace(strings.NewReplacer("-", " ", ".", " ").Replace(base))
}

func collectSkills(lines []string) []string {
	var (
		out     []string
		seen    = map[string]bool{}
		inBlock bool
	)
	add := func(chunk string) {
		for _, part := range skillSeparators.Split(chunk, -1) {
			s := strings.Trim(strings.TrimSpace(part), "-*. ")
			key := strings.ToLower(s)
			if s == "" || len(s) > 40 || seen[key] || len(out) >= maxSkills {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		lower := strings.ToLower(strings.Trim(line, ": "))
		if !inBlock {
			if loc := skillsHeading.FindStringIndex(line); loc != nil {
				inBlock = true
				add(line[loc[1]:])
			}
			continue
		}
		if line == "" || sectionHeadings[lower] {
			if len(out) > 0 || sectionHeadings[lower] {
				break
			}
			continue
		}
		add(line)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
