package codec

import "strings"

// CheckResult is the outcome of the capability check of one candidate.
type CheckResult struct {
	Name    string
	Missing []string
}

// OK reports whether the candidate satisfies the codec contract.
func (r CheckResult) OK() bool { return len(r.Missing) == 0 }

func (r CheckResult) String() string {
	if r.OK() {
		return r.Name + ": ok"
	}
	return r.Name + ": missing " + strings.Join(r.Missing, ", ")
}

// Check verifies that c has a name, at least one mimetype, a parser and a
// renderer.
func Check(c Candidate) CheckResult {
	if c == nil {
		return CheckResult{Missing: []string{"name", "mimetypes", "parse", "render"}}
	}
	result := CheckResult{Name: c.Name()}
	if strings.TrimSpace(result.Name) == "" {
		result.Missing = append(result.Missing, "name")
	}
	hasMimetype := false
	for _, mt := range c.Mimetypes() {
		if NormalizeMimetype(mt) != "" {
			hasMimetype = true
			break
		}
	}
	if !hasMimetype {
		result.Missing = append(result.Missing, "mimetypes")
	}
	if _, ok := c.(Parser); !ok {
		result.Missing = append(result.Missing, "parse")
	}
	if _, ok := c.(Renderer); !ok {
		result.Missing = append(result.Missing, "render")
	}
	return result
}
