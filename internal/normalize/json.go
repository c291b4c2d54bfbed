package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"cv-tailor/internal/profile"
)

const (
	maxSkills         = 50
	maxExperience     = 20
	maxEducation      = 10
	maxCertifications = 15
)

type jsonKind int

const (
	kindCustom jsonKind = iota
	kindExport
)

// NormalizeJSON decodes a JSON profile document of any supported shape.
func NormalizeJSON(data []byte) (profile.Profile, error) {
	root, err := decodeJSONRoot(data)
	if err != nil {
		return profile.Profile{}, err
	}
	if classifyJSON(root) == kindCustom {
		return fromCustom(root), nil
	}
	doc := unwrapJSON(root)
	switch classifyJSON(doc) {
	case kindCustom:
		return fromCustom(doc), nil
	default:
		return fromExport(doc, root), nil
	}
}

// decodeJSONRoot decodes data into an object, wrapping a top-level array as {"_list": [...]}.
func decodeJSONRoot(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrInputFormat, err)
	}
	switch t := raw.(type) {
	case map[string]any:
		return t, nil
	case []any:
		return map[string]any{"_list": t}, nil
	default:
		return nil, fmt.Errorf("%w: JSON document must be an object or array", ErrInputFormat)
	}
}

func classifyJSON(root map[string]any) jsonKind {
	for _, key := range []string{"full_name", "name", "basics"} {
		if _, ok := root[key]; ok {
			return kindCustom
		}
	}
	return kindExport
}

// fromCustom reads hand-written and resume-schema style documents.
func fromCustom(m map[string]any) profile.Profile {
	p := profile.Profile{
		FullName:    customName(m),
		Headline:    first(m, "headline", "title", "basics.label"),
		Summary:     first(m, "summary", "about", "basics.summary"),
		Email:       first(m, "email", "basics.email"),
		Phone:       first(m, "phone", "basics.phone"),
		Address:     address(m, "address", "basics.address", "location", "basics.location"),
		LinkedInURL: first(m, "linkedin_url", "url", "basics.url"),
		PhotoBase64: first(m, "photo_base64", "photo", "basics.image"),
	}

	for _, e := range objects(list(m, "experience", "positions", "work")) {
		end := first(e, "end_date", "endDate")
		if end == "" {
			if cur, ok := e["current"].(bool); ok && cur {
				end = "Present"
			}
		}
		desc := first(e, "description", "summary")
		if desc == "" {
			desc = strings.Join(names(list(e, "highlights")), "\n")
		}
		p.Experience = append(p.Experience, profile.Experience{
			Title:       first(e, "title", "position"),
			Company:     first(e, "company", "companyName", "company.name", "organization", "name"),
			StartDate:   first(e, "start_date", "startDate"),
			EndDate:     end,
			Description: desc,
			Location:    first(e, "location"),
		})
	}

	for _, e := range objects(list(m, "education", "schools")) {
		p.Education = append(p.Education, profile.Education{
			School:      first(e, "school", "institution", "organization", "schoolName"),
			Degree:      first(e, "degree", "degreeName", "studyType"),
			Field:       first(e, "field", "fieldOfStudy", "area"),
			StartDate:   first(e, "start_date", "startDate"),
			EndDate:     first(e, "end_date", "endDate"),
			Description: first(e, "description"),
		})
	}

	p.Skills = dedupe(names(list(m, "skills", "skill"), "name", "skill", "title"), maxSkills)

	for _, c := range objects(list(m, "certifications", "certification", "licenses", "certificates")) {
		p.Certifications = append(p.Certifications, profile.Certification{
			Name:      first(c, "name", "title"),
			Authority: first(c, "authority", "issuer"),
			Date:      first(c, "date", "endDate"),
			URL:       first(c, "url"),
		})
	}

	p.Languages = dedupe(names(list(m, "languages"), "language", "name"), 0)
	return p.Normalize()
}

func customName(m map[string]any) string {
	for _, key := range []string{"full_name", "name", "basics.name"} {
		switch v := lookup(m, key).(type) {
		case map[string]any:
			if s := first(v, "full_name", "name"); s != "" {
				return s
			}
		default:
			if s := text(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// address accepts a plain string or a {city, region, country} object.
func address(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookup(m, p).(type) {
		case map[string]any:
			var parts []string
			for _, k := range []string{"city", "region", "country", "countryCode"} {
				if s := text(v[k]); s != "" {
					parts = append(parts, s)
					if k == "country" {
						break
					}
				}
			}
			if len(parts) == 0 {
				if s := first(v, "name", "address"); s != "" {
					return s
				}
				continue
			}
			return strings.Join(parts, ", ")
		default:
			if s := text(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// fromExport reads nested profile exports (positions, startedOn.year dates).
// m is the unwrapped profile object; sections missing from it are read from root.
func fromExport(m, root map[string]any) profile.Profile {

	name := first(m, "fullName")
	if name == "" {
		name = strings.TrimSpace(first(m, "firstName") + " " + first(m, "lastName"))
	}
	if name == "" {
		name = first(m, "name")
	}

	p := profile.Profile{
		FullName:    name,
		Headline:    first(m, "headline"),
		Summary:     first(m, "summary"),
		Email:       first(m, "emailAddress", "email"),
		Phone:       first(m, "phoneNumber", "phone"),
		Address:     address(m, "location", "address", "locationName"),
		LinkedInURL: first(m, "publicProfileUrl", "linkedinUrl"),
		PhotoBase64: first(m, "profilePicture.displayImageReference.url"),
	}

	for _, e := range objects(sectionList(m, root, "positions", "experience")) {
		p.Experience = append(p.Experience, profile.Experience{
			Title:       first(e, "title", "positionTitle"),
			Company:     first(e, "companyName", "company.name", "company"),
			StartDate:   exportDate(e, "startedOn", "startDate"),
			EndDate:     exportDate(e, "endedOn", "endDate"),
			Description: first(e, "description"),
			Location:    first(e, "locationName", "location"),
		})
	}

	for _, e := range objects(sectionList(m, root, "educations", "education")) {
		p.Education = append(p.Education, profile.Education{
			School:      first(e, "schoolName", "school.name", "school"),
			Degree:      first(e, "degreeName", "degree"),
			Field:       first(e, "fieldOfStudy", "field"),
			StartDate:   exportDate(e, "startedOn", "startDate"),
			EndDate:     exportDate(e, "endedOn", "endDate"),
			Description: first(e, "description", "activities"),
		})
	}

	p.Skills = dedupe(names(sectionList(m, root, "skills"), "name", "skillName", "title"), maxSkills)

	for _, c := range objects(sectionList(m, root, "certifications")) {
		p.Certifications = append(p.Certifications, profile.Certification{
			Name:      first(c, "name", "title"),
			Authority: first(c, "authority"),
			Date:      firstNonEmpty(exportDate(c, "issuedOn", ""), first(c, "date", "endDate")),
			URL:       first(c, "url"),
		})
	}

	p.Languages = dedupe(names(sectionList(m, root, "languages"), "name"), 0)
	return p.Normalize()
}

// sectionList reads a list section from the profile object, else from the wrapper document.
func sectionList(m, root map[string]any, paths ...string) []any {
	if arr := list(m, paths...); arr != nil {
		return arr
	}
	return list(root, paths...)
}

// unwrapJSON finds the profile object inside a list or export wrapper.
func unwrapJSON(root map[string]any) map[string]any {
	for _, key := range []string{"_list", "profile", "Profile", "data"} {
		switch v := root[key].(type) {
		case map[string]any:
			return v
		case []any:
			if objs := objects(v); len(objs) > 0 {
				return objs[0]
			}
		}
	}
	return root
}

// exportDate renders {year, month} objects as "YYYY" or "YYYY-MM", else reads the flat key.
func exportDate(m map[string]any, objKey, flatKey string) string {
	if obj := object(m, objKey); obj != nil {
		year := text(obj["year"])
		if year != "" {
			if month := text(obj["month"]); month != "" {
				if len(month) == 1 {
					month = "0" + month
				}
				return year + "-" + month
			}
			return year
		}
	}
	if flatKey == "" {
		return ""
	}
	return first(m, flatKey)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
