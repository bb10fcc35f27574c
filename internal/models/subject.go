package models

// DefaultSubject is preselected on every new row.
const DefaultSubject = "Matemática"

// DefaultSubjects lists the disciplines offered when no override is configured.
var DefaultSubjects = []string{
	"Matemática",
	"Português",
	"História",
	"Geografia",
	"Ciências",
	"Física",
	"Química",
	"Biologia",
	"Inglês",
	"Artes",
	"Educação Física",
}

// SubjectCatalog is the fixed set of subject labels a row may carry.
type SubjectCatalog struct {
	Subjects []string `json:"subjects"`
	Default  string   `json:"default"`
	index    map[string]struct{}
}

// NewSubjectCatalog builds a catalog. An empty list falls back to DefaultSubjects
// and a default outside the list is replaced by the first subject.
func NewSubjectCatalog(subjects []string, def string) *SubjectCatalog {
	if len(subjects) == 0 {
		subjects = DefaultSubjects
	}
	index := make(map[string]struct{}, len(subjects))
	ordered := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if _, dup := index[s]; dup || s == "" {
			continue
		}
		index[s] = struct{}{}
		ordered = append(ordered, s)
	}
	if _, ok := index[def]; !ok {
		if _, ok := index[DefaultSubject]; ok {
			def = DefaultSubject
		} else {
			def = ordered[0]
		}
	}
	return &SubjectCatalog{Subjects: ordered, Default: def, index: index}
}

// Contains reports whether subject belongs to the catalog.
func (c *SubjectCatalog) Contains(subject string) bool {
	_, ok := c.index[subject]
	return ok
}
