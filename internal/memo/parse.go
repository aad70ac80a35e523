// Package memo turns raw model output into a typed competitive memo.
//
// Parsing is a binary gate on the required top-level shape. Everything past
// that gate is decoded leniently: malformed optional fields and malformed
// claim entries are dropped rather than failing the whole memo.
package memo

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/compintel/internal/model"
)

// Kind discriminates parse results
type Kind int

const (
	KindOK Kind = iota
	KindParseError
	KindSchemaError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindParseError:
		return "parse_error"
	case KindSchemaError:
		return "schema_error"
	default:
		return "unknown"
	}
}

var (
	ErrNoJSONObject   = eris.New("no JSON object in response")
	ErrMissingField   = eris.New("required field missing")
	ErrWrongFieldType = eris.New("required field has wrong type")
)

// Result is the outcome of Parse. Memo and RawClaims are set only for KindOK.
// Memo.Claims is left empty; claims are grounded separately from RawClaims.
type Result struct {
	Kind      Kind
	Memo      *model.CompetitiveMemo
	RawClaims []RawClaim
	Err       error
}

// OK reports whether the payload passed the gate
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// RawClaim is a claim exactly as the model asserted it
type RawClaim struct {
	Text        string
	ClaimType   string
	EvidenceIDs []string
}

// Parse strips formatting wrappers, decodes the JSON object and checks the
// required fields: categoryLabel and crowdednessLevel as non-empty strings,
// referenceProjects as an array.
func Parse(raw string) Result {
	body, err := extractObject(raw)
	if err != nil {
		return Result{Kind: KindParseError, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Result{Kind: KindParseError, Err: eris.Wrap(err, "decode memo")}
	}

	if err := checkRequired(fields); err != nil {
		return Result{Kind: KindSchemaError, Err: err}
	}

	memo := &model.CompetitiveMemo{
		CategoryLabel:     strings.TrimSpace(stringField(fields, "categoryLabel")),
		CrowdednessLevel:  strings.TrimSpace(stringField(fields, "crowdednessLevel")),
		Summary:           strings.TrimSpace(stringField(fields, "summary")),
		ReferenceProjects: projectsField(fields["referenceProjects"]),
		Difficulty:        verdictField(fields["difficulty"]),
		Differentiation:   verdictField(fields["differentiation"]),
		NoiseVsSignal:     strings.TrimSpace(stringField(fields, "noiseVsSignal")),
		EvaluatorNotes:    strings.TrimSpace(stringField(fields, "evaluatorNotes")),
	}

	return Result{
		Kind:      KindOK,
		Memo:      memo,
		RawClaims: claimsField(fields["claims"]),
	}
}

// extractObject removes code fences and any prose around the outermost object
func extractObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "\ufeff")

	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimLeft(s, "`")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSONObject
	}
	return []byte(s[start : end+1]), nil
}

func checkRequired(fields map[string]json.RawMessage) error {
	for _, key := range []string{"categoryLabel", "crowdednessLevel"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			return eris.Wrapf(ErrMissingField, "%s", key)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return eris.Wrapf(ErrWrongFieldType, "%s must be a string", key)
		}
		if strings.TrimSpace(s) == "" {
			return eris.Wrapf(ErrMissingField, "%s is empty", key)
		}
	}

	raw, ok := fields["referenceProjects"]
	if !ok || isNull(raw) {
		return eris.Wrap(ErrMissingField, "referenceProjects")
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return eris.Wrap(ErrWrongFieldType, "referenceProjects must be an array")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v displayString
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return string(v)
}

func verdictField(raw json.RawMessage) model.Verdict {
	if isNull(raw) {
		return model.Verdict{}
	}

	var obj struct {
		Verdict     displayString `json:"verdict"`
		Explanation displayString `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return model.Verdict{
			Verdict:     strings.TrimSpace(string(obj.Verdict)),
			Explanation: strings.TrimSpace(string(obj.Explanation)),
		}
	}

	// A bare string is taken as the verdict
	var s displayString
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.Verdict{Verdict: strings.TrimSpace(string(s))}
	}
	return model.Verdict{}
}

type rawProject struct {
	Name     displayString   `json:"name"`
	Platform displayString   `json:"platform"`
	Note     displayString   `json:"note"`
	Metrics  json.RawMessage `json:"metrics"`
}

type rawMetrics struct {
	MarketCap  displayString `json:"marketCap"`
	TVL        displayString `json:"tvl"`
	DailyUsers displayString `json:"dailyUsers"`
	Funding    displayString `json:"funding"`
	Revenue    displayString `json:"revenue"`
}

func projectsField(raw json.RawMessage) []model.ReferenceProject {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}

	projects := make([]model.ReferenceProject, 0, len(list))
	for _, entry := range list {
		var rp rawProject
		if err := json.Unmarshal(entry, &rp); err != nil {
			continue
		}
		name := strings.TrimSpace(string(rp.Name))
		if name == "" {
			continue
		}
		project := model.ReferenceProject{
			Name:     name,
			Platform: strings.TrimSpace(string(rp.Platform)),
			Note:     strings.TrimSpace(string(rp.Note)),
		}
		if !isNull(rp.Metrics) {
			var m rawMetrics
			if err := json.Unmarshal(rp.Metrics, &m); err == nil {
				project.Metrics = &model.ProjectMetrics{
					MarketCap:  strings.TrimSpace(string(m.MarketCap)),
					TVL:        strings.TrimSpace(string(m.TVL)),
					DailyUsers: strings.TrimSpace(string(m.DailyUsers)),
					Funding:    strings.TrimSpace(string(m.Funding)),
					Revenue:    strings.TrimSpace(string(m.Revenue)),
				}
			}
		}
		projects = append(projects, project)
	}
	return projects
}

type rawClaim struct {
	Text        displayString   `json:"text"`
	ClaimType   displayString   `json:"claimType"`
	EvidenceIDs json.RawMessage `json:"evidenceIds"`
}

func claimsField(raw json.RawMessage) []RawClaim {
	if isNull(raw) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}

	claims := make([]RawClaim, 0, len(list))
	for _, entry := range list {
		var rc rawClaim
		if err := json.Unmarshal(entry, &rc); err != nil {
			continue
		}
		claims = append(claims, RawClaim{
			Text:        string(rc.Text),
			ClaimType:   string(rc.ClaimType),
			EvidenceIDs: idList(rc.EvidenceIDs),
		})
	}
	return claims
}

// idList accepts an array of strings or a single string. Non-string
// array members are dropped.
func idList(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
			return []string{strings.TrimSpace(single)}
		}
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		var id string
		if err := json.Unmarshal(item, &id); err != nil {
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
