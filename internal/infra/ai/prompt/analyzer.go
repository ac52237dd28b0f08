package prompt

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/infra/knowledge"
)

// SecuritySystem is the catalog entry that secret detections are attributed to.
const SecuritySystem = "Information Security"

const maxRelated = 5

// secret detectors; a hit means the document itself leaks a credential
var secretDetectors = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`),
	regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`),
	regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|client[_-]?secret|secret|token)\s*[:=]\s*["']?[^\s"']{12,}`),
	regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`),
}

// KnowledgeAnalyzer is the offline analyzer. It scores a document against the
// knowledge catalog and never calls out of process.
type KnowledgeAnalyzer struct {
	Catalog *knowledge.Catalog
	// Delay simulates a slow analysis; honours ctx.
	Delay time.Duration
}

func NewKnowledgeAnalyzer(c *knowledge.Catalog) *KnowledgeAnalyzer {
	if c == nil {
		c = knowledge.Default()
	}
	return &KnowledgeAnalyzer{Catalog: c}
}

func (a *KnowledgeAnalyzer) Analyze(ctx context.Context, in analysis.Input) (*analysis.Payload, error) {
	if a.Delay > 0 {
		t := time.NewTimer(a.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return a.score(in), nil
}

type hit struct {
	system  knowledge.System
	matched []string
	order   int
}

func (a *KnowledgeAnalyzer) score(in analysis.Input) *analysis.Payload {
	text := strings.ToLower(strings.Join([]string{in.Title, in.Description, in.Content}, "\n"))
	leaked := false
	for _, re := range secretDetectors {
		if re.MatchString(in.Content) {
			leaked = true
			break
		}
	}

	var hits []hit
	for i, s := range a.Catalog.Systems {
		matched := matchKeywords(text, s.Keywords)
		if leaked && s.Name == SecuritySystem {
			matched = append(matched, "embedded credential")
		}
		if len(matched) > 0 {
			hits = append(hits, hit{system: s, matched: matched, order: i})
		}
	}
	// strongest signal first, catalog order breaks ties
	sort.SliceStable(hits, func(i, j int) bool {
		ri, rj := hits[i].system.Level.Rank(), hits[j].system.Level.Rank()
		if ri != rj {
			return ri > rj
		}
		if len(hits[i].matched) != len(hits[j].matched) {
			return len(hits[i].matched) > len(hits[j].matched)
		}
		return hits[i].order < hits[j].order
	})

	out := &analysis.Payload{
		ImpactLevel:      analysis.ImpactLow,
		ImpactedAreas:    make([]analysis.ImpactArea, 0, len(hits)),
		RelatedDocuments: []analysis.RelatedDocument{},
	}
	var keywords []string
	for _, h := range hits {
		area := analysis.ImpactArea{
			Name:        h.system.Name,
			ImpactLevel: h.system.Level,
			Description: fmt.Sprintf("%s Mentions: %s.", h.system.Description, strings.Join(h.matched, ", ")),
			Contact:     h.system.Owner,
		}
		// only high impact areas carry a conflict
		if h.system.Level == analysis.ImpactHigh && h.system.Conflict != "" {
			area.Conflict = h.system.Conflict
		} else {
			area.Recommendation = h.system.Recommendation
		}
		out.ImpactedAreas = append(out.ImpactedAreas, area)
		if h.system.Level.Rank() > out.ImpactLevel.Rank() {
			out.ImpactLevel = h.system.Level
		}
		keywords = append(keywords, h.system.Keywords...)
	}

	for _, ref := range a.Catalog.Documents {
		if len(out.RelatedDocuments) >= maxRelated {
			break
		}
		if len(matchKeywords(text, ref.Keywords)) == 0 && !overlaps(ref.Keywords, keywords) {
			continue
		}
		tags := append([]string{}, ref.Tags...)
		out.RelatedDocuments = append(out.RelatedDocuments, analysis.RelatedDocument{
			Title:       ref.Title,
			Type:        ref.Type,
			LastUpdated: ref.LastUpdated,
			Tags:        tags,
		})
	}
	return out
}

func matchKeywords(text string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
