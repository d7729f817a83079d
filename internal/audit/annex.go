package audit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	annexCitation = regexp.MustCompile(`(?i)\ban{1,2}ex(?:os?|es)?\b([^)\n]*)`)
	annexNumber   = regexp.MustCompile(`\b(\d+)\.(\d+)\b`)
	listMarker    = regexp.MustCompile(`(?:^|\s)([a-z])\)\s`)
)

// AnnexRef formats the citation for photo image of finding finding. Both
// counters start at 1 and the image counter restarts for every finding.
func AnnexRef(finding, image int) string {
	return fmt.Sprintf("%d.%d", finding, image)
}

// AnnexRefs extracts every annex citation ("Ver Anexo 1.1 y 1.2") from text
// in order of appearance.
func AnnexRefs(text string) []string {
	var refs []string
	for _, citation := range annexCitation.FindAllStringSubmatch(text, -1) {
		for _, num := range annexNumber.FindAllString(citation[1], -1) {
			refs = append(refs, num)
		}
	}
	return refs
}

// CheckAnnexScope verifies that each finding only cites its own photos:
// finding i (1-based) may cite i.1 .. i.n where n is the photo count of the
// observation at the same position.
func CheckAnnexScope(r SavedReport) error {
	if err := r.CheckAlignment(); err != nil {
		return err
	}
	for i, finding := range r.Findings {
		photos := len(r.Observations[i].Images)
		for _, ref := range AnnexRefs(finding.Title) {
			n, x, err := splitAnnexRef(ref)
			if err != nil {
				return err
			}
			if n != i+1 {
				return fmt.Errorf("audit: finding %d cites annex %s of another finding", i+1, ref)
			}
			if x < 1 || x > photos {
				return fmt.Errorf("audit: finding %d cites annex %s but has %d photo(s)", i+1, ref, photos)
			}
		}
	}
	return nil
}

func splitAnnexRef(ref string) (int, int, error) {
	left, right, ok := strings.Cut(ref, ".")
	if !ok {
		return 0, 0, fmt.Errorf("audit: malformed annex %q", ref)
	}
	n, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, fmt.Errorf("audit: malformed annex %q", ref)
	}
	x, err := strconv.Atoi(right)
	if err != nil {
		return 0, 0, fmt.Errorf("audit: malformed annex %q", ref)
	}
	return n, x, nil
}

// ListItems splits a lettered list ("a) ...\n\nb) ...") into its entries.
// Text without markers counts as a single entry; blank text has none.
func ListItems(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	locs := listMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	items := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		item := strings.TrimSpace(text[loc[0]:end])
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// CheckItemization verifies that recommendations, responsible parties and
// implementation dates list the same number of entries, since renderers zip
// them by position.
func CheckItemization(f AuditFinding) error {
	recs := len(ListItems(f.Recommendations))
	owners := len(ListItems(f.Responsible))
	dates := len(ListItems(f.ImplementationDate))
	if recs != owners || recs != dates {
		return fmt.Errorf("audit: finding %q lists %d recommendation(s), %d responsible, %d date(s)", f.Condition, recs, owners, dates)
	}
	return nil
}
