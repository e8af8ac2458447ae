package accession

import "strings"

// ProjectUID validates a BioProject accession and returns the numeric uid
// the link service expects.
func ProjectUID(project string) (string, error) {
	if !strings.HasPrefix(project, ProjectPrefix) {
		return "", &ValidationError{
			Field:  "project",
			Value:  project,
			Reason: "must start with " + ProjectPrefix,
		}
	}

	uid := strings.TrimPrefix(project, ProjectPrefix)
	if uid == "" {
		return "", &ValidationError{Field: "project", Value: project, Reason: "missing numeric id"}
	}
	for _, r := range uid {
		if r < '0' || r > '9' {
			return "", &ValidationError{Field: "project", Value: project, Reason: "id part is not numeric"}
		}
	}
	return uid, nil
}
