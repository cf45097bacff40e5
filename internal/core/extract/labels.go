package extract

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/labels"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// LabelExtractor turns page text into labeled values. It holds no mutable
// state and is safe for concurrent use.
type LabelExtractor struct {
	matchers []labels.Matcher
}

func NewLabelExtractor() *LabelExtractor {
	return &LabelExtractor{matchers: labels.Matchers()}
}

type candidate struct {
	start, end int // span of label+numeral in the folded line
	rank       int
	matcher    labels.Matcher
	raw        string
}

// ExtractPage scans every non-empty line of text and returns one value per
// accepted label match, in reading order.
func (x *LabelExtractor) ExtractPage(page int, text string) []entity.LabeledValue {
	var out []entity.LabeledValue
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, c := range x.matchLine(labels.Fold(line)) {
			v := labels.Classify(c.raw)
			lv := entity.LabeledValue{
				Page:         page,
				Label:        c.matcher.Label,
				Field:        c.matcher.Field,
				RawText:      c.raw,
				Value:        v.Value,
				Status:       entity.ValueOK,
				OriginalLine: line,
			}
			if !v.OK {
				lv.Status = entity.ValueSuspect
				lv.Reason = v.Reason
			}
			out = append(out, lv)
		}
	}
	return out
}

// ExtractPages runs ExtractPage over every page that OCR'd successfully.
func (x *LabelExtractor) ExtractPages(pages []entity.PageResult) []entity.LabeledValue {
	var out []entity.LabeledValue
	for _, p := range pages {
		if p.Failed() {
			continue
		}
		out = append(out, x.ExtractPage(p.Page, p.Text)...)
	}
	return out
}

// matchLine collects candidates from every matcher and keeps the
// non-overlapping winners. Lower rank (longer label) wins a conflict.
func (x *LabelExtractor) matchLine(folded string) []candidate {
	var all []candidate
	for _, m := range x.matchers {
		for _, idx := range m.Pattern.FindAllStringSubmatchIndex(folded, -1) {
			all = append(all, candidate{
				start:   idx[0],
				end:     idx[1],
				rank:    m.Rank,
				matcher: m,
				raw:     folded[idx[2]:idx[3]],
			})
		}
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].rank != all[j].rank {
			return all[i].rank < all[j].rank
		}
		return all[i].start < all[j].start
	})

	var kept []candidate
	for _, c := range all {
		clash := false
		for _, k := range kept {
			if c.start < k.end && k.start < c.end {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// GroupByField buckets values by canonical field, preserving order within each bucket.
func GroupByField(values []entity.LabeledValue) map[constants.Field][]entity.LabeledValue {
	out := make(map[constants.Field][]entity.LabeledValue)
	for _, v := range values {
		out[v.Field] = append(out[v.Field], v)
	}
	return out
}
