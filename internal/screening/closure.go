package screening

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ydhoon/policy-ranker/internal/logger"
	"github.com/ydhoon/policy-ranker/internal/policy"
)

// DefaultClosureKeywords is the built-in closure vocabulary, mixing the
// Korean phrases the source sites use with their English equivalents.
var DefaultClosureKeywords = []string{
	"접수 마감",
	"모집 마감",
	"마감되었습니다",
	"종료된 정책",
	"terminated",
	"discontinued",
	"application closed",
}

// scanWorkers bounds the fan-out of the content scan. Scanning is CPU-only,
// so a small fixed limit is enough.
const scanWorkers = 8

// dateWindowRadius is how far around a closure keyword (in runes) a date
// token still counts as referring to the closure.
const dateWindowRadius = 120

var (
	numericDateRE = regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})`)
	koreanDateRE  = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일`)
	yearTokenRE   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ClosureConfig configures the keyword scanner.
type ClosureConfig struct {
	Keywords      []string
	ReferenceDate time.Time
	TargetYear    int
	// MaxLogLength truncates candidate content in debug logs.
	MaxLogLength int
}

type closureFilter struct {
	cfg      *ClosureConfig
	keywords []string
	logger   *zap.Logger
}

// NewClosure creates the filter that drops candidates whose content carries
// closure language, unless a nearby date shows the closure lies in the
// future. Stale year mentions alone are flagged, not dropped; alongside a
// closure phrase they drop the candidate too.
func NewClosure(cfg *ClosureConfig, log *zap.Logger) Filter {
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = DefaultClosureKeywords
	}

	lowered := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" {
			lowered = append(lowered, keyword)
		}
	}

	if log == nil {
		log = zap.NewNop()
	}

	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = 200
	}

	return &closureFilter{cfg: cfg, keywords: lowered, logger: log}
}

func (f *closureFilter) Name() string { return "closure_keywords" }

func (f *closureFilter) Disable(string) {}

func (f *closureFilter) IsEnabled() bool { return true }

type deferredClosure struct {
	keyword string
	date    string
}

type scanResult struct {
	matchedKeyword string
	// deferred lists keywords whose every occurrence carried a future date,
	// in keyword order, so notes stay stable between runs.
	deferred   []deferredClosure
	staleYears []int
}

// exclusion reports whether the scan drops the candidate and with what
// detail. A keyword with no future date drops outright. A keyword kept alive
// only by a future date still drops when the content also mentions stale
// years.
func (r scanResult) exclusion() (string, bool) {
	if r.matchedKeyword != "" {
		return r.matchedKeyword, true
	}
	if len(r.deferred) > 0 && len(r.staleYears) > 0 {
		return fmt.Sprintf("%s with stale year %d", r.deferred[0].keyword, r.staleYears[0]), true
	}
	return "", false
}

func (f *closureFilter) Apply(ctx context.Context, c *policy.Candidates) (*policy.Candidates, []Exclusion, Step, error) {
	initial := c.Len()
	results := make([]scanResult, initial)

	// Scans are independent per candidate; fan out and collect by index so
	// the outcome does not depend on scheduling.
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for i, candidate := range c.Items {
		g.Go(func() error {
			results[i] = f.scan(candidate.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, Step{}, err
	}

	var exclusions []Exclusion
	kept := make([]*policy.Candidate, 0, initial)
	for i, candidate := range c.Items {
		result := results[i]

		if detail, drop := result.exclusion(); drop {
			exclusions = append(exclusions, Exclusion{
				Candidate: candidate,
				Reason:    ReasonClosure,
				Detail:    detail,
			})
			f.logger.Debug("candidate dropped by closure keyword",
				zap.String("candidate_id", candidate.ID),
				zap.String("detail", detail),
				zap.String("content", logger.TruncateForLog(candidate.Content, f.cfg.MaxLogLength)),
			)
			continue
		}

		for _, deferred := range result.deferred {
			candidate.AddNote(fmt.Sprintf("closure phrase %q refers to %s, still open", deferred.keyword, deferred.date))
		}

		for _, year := range result.staleYears {
			candidate.Stale = true
			candidate.AddNote(fmt.Sprintf("content mentions year %d, below target year %d", year, f.cfg.TargetYear))
		}

		kept = append(kept, candidate)
	}

	next := &policy.Candidates{Items: kept}
	return next, exclusions, Step{Initial: initial, Dropped: len(exclusions), Left: next.Len()}, nil
}

func (f *closureFilter) scan(content string) scanResult {
	lower := strings.ToLower(content)
	result := scanResult{}

	for _, keyword := range f.keywords {
		deferredDate := ""
		from := 0
		for {
			idx := strings.Index(lower[from:], keyword)
			if idx < 0 {
				break
			}
			idx += from
			from = idx + len(keyword)

			// Offsets index the lowered string; slicing the original would
			// skew where case folding changes byte length.
			window := runeWindow(lower, idx, idx+len(keyword), dateWindowRadius)
			date, ok := futureDateIn(window, f.cfg.ReferenceDate)
			if !ok {
				result.matchedKeyword = keyword
				break
			}
			deferredDate = date.Format("2006-01-02")
		}
		if result.matchedKeyword != "" {
			break
		}
		if deferredDate != "" {
			result.deferred = append(result.deferred, deferredClosure{keyword: keyword, date: deferredDate})
		}
	}

	staleFloor := f.cfg.TargetYear - 1
	seen := make(map[int]bool)
	for _, token := range yearTokenRE.FindAllString(lower, -1) {
		year, err := strconv.Atoi(token)
		if err != nil || seen[year] {
			continue
		}
		seen[year] = true
		if year >= 1990 && year < staleFloor {
			result.staleYears = append(result.staleYears, year)
		}
	}

	return result
}

// futureDateIn reports the first date token in s that falls on or after the
// reference date.
func futureDateIn(s string, ref time.Time) (time.Time, bool) {
	for _, re := range []*regexp.Regexp{numericDateRE, koreanDateRE} {
		for _, match := range re.FindAllStringSubmatch(s, -1) {
			year, _ := strconv.Atoi(match[1])
			month, _ := strconv.Atoi(match[2])
			day, _ := strconv.Atoi(match[3])
			if month < 1 || month > 12 || day < 1 || day > 31 {
				continue
			}
			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if !date.Before(ref) {
				return date, true
			}
		}
	}
	return time.Time{}, false
}

// runeWindow widens the byte range [start, end) by radius runes on each side.
func runeWindow(s string, start, end, radius int) string {
	left := start
	for i := 0; i < radius && left > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:left])
		left -= size
	}
	right := end
	for i := 0; i < radius && right < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[right:])
		right += size
	}
	return s[left:right]
}

func (f *closureFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{
			"keywords":       strings.Join(f.keywords, ","),
			"reference_date": f.cfg.ReferenceDate.Format("2006-01-02"),
		},
	}
}
