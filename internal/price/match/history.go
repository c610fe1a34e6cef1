package match

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/greenmarket/catalog-service/internal/model"
	"github.com/greenmarket/catalog-service/pkg/logger"
)

// Historical dataset column layout:
// AVG,ROWNO,PREAVG_2,MM_0,PUM_NAME,PREAVG_1,MM_1,UNIT_NAME,MM_2,GRADE_NAME
const (
	colAvg         = 0
	colTwoMonthAvg = 2
	colDateCode    = 3
	colName        = 4
	colPrevAvg     = 5
	colUnit        = 7
	colGrade       = 9
	minColumns     = 10
)

// HistoryPool holds the flat historical price dataset in memory. The file is
// parsed once and indexed by normalized token, so per-request matching never
// re-reads the file. Reload replaces the snapshot atomically under the lock.
type HistoryPool struct {
	path   string
	logger logger.ZapLogger

	mu      sync.RWMutex
	records []model.PriceRecord
	names   []string         // distinct product names, sorted
	byName  map[string][]int // product name -> record indexes
	tokens  map[string][]int // token (rune length > 1) -> record indexes
}

func NewHistoryPool(path string, log logger.ZapLogger) *HistoryPool {
	return &HistoryPool{
		path:   path,
		logger: log,
		byName: make(map[string][]int),
		tokens: make(map[string][]int),
	}
}

// Load parses the dataset file and builds the in-memory indexes. Malformed
// rows are skipped; a missing file is an error the caller decides about.
func (p *HistoryPool) Load() error {
	f, err := os.Open(p.path)
	if err != nil {
		return errors.Wrapf(err, "open history dataset %s", p.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return errors.Wrap(err, "read history dataset")
	}

	var (
		records []model.PriceRecord
		byName  = make(map[string][]int)
		tokens  = make(map[string][]int)
		skipped int
	)

	for i, row := range rows {
		if i == 0 { // header
			continue
		}
		rec, err := recordFromRow(row)
		if err != nil {
			skipped++
			continue
		}
		idx := len(records)
		records = append(records, rec)
		byName[rec.ProductName] = append(byName[rec.ProductName], idx)
		for _, tok := range strings.Fields(rec.ProductName) {
			if utf8.RuneCountInString(tok) <= 1 {
				continue
			}
			tokens[tok] = append(tokens[tok], idx)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	p.mu.Lock()
	p.records = records
	p.names = names
	p.byName = byName
	p.tokens = tokens
	p.mu.Unlock()

	p.logger.Info("history dataset loaded",
		zap.String("path", p.path),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped))
	return nil
}

// Reload re-parses the file. Intended to run on a schedule or after the
// dataset is replaced on disk.
func (p *HistoryPool) Reload() error {
	return p.Load()
}

// Size reports the number of loaded records.
func (p *HistoryPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Records returns a copy of the loaded record slice.
func (p *HistoryPool) Records() []model.PriceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.PriceRecord, len(p.records))
	copy(out, p.records)
	return out
}

// Match returns every record whose name matches productName under the
// NameMatch policy. Exact and token-overlap hits come from the indexes;
// substring containment still walks the distinct name list.
func (p *HistoryPool) Match(productName string) []model.PriceRecord {
	query := strings.TrimSpace(productName)
	if query == "" {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	hit := make(map[int]struct{})

	for _, idx := range p.byName[query] {
		hit[idx] = struct{}{}
	}
	for _, tok := range strings.Fields(query) {
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		for _, idx := range p.tokens[tok] {
			hit[idx] = struct{}{}
		}
	}
	for _, name := range p.names {
		if strings.Contains(name, query) || strings.Contains(query, name) {
			for _, idx := range p.byName[name] {
				hit[idx] = struct{}{}
			}
		}
	}

	if len(hit) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(hit))
	for idx := range hit {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	out := make([]model.PriceRecord, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, p.records[idx])
	}
	return out
}

// MatchNames returns the distinct matching product names, sorted, capped at
// ten.
func (p *HistoryPool) MatchNames(term string) []string {
	p.mu.RLock()
	names := p.names
	p.mu.RUnlock()
	return MatchingNames(term, names)
}

func recordFromRow(row []string) (model.PriceRecord, error) {
	if len(row) < minColumns {
		return model.PriceRecord{}, errors.Errorf("row has %d columns, want at least %d", len(row), minColumns)
	}

	name := strings.TrimSpace(row[colName])
	if name == "" {
		return model.PriceRecord{}, errors.New("empty product name")
	}

	current, err := parsePrice(row[colAvg])
	if err != nil {
		return model.PriceRecord{}, err
	}
	prev, err := parsePrice(row[colPrevAvg])
	if err != nil {
		return model.PriceRecord{}, err
	}
	twoAgo, err := parsePrice(row[colTwoMonthAvg])
	if err != nil {
		return model.PriceRecord{}, err
	}

	dateCode := strings.TrimSpace(row[colDateCode])
	date, err := ParseDateCode(dateCode)
	if err != nil {
		return model.PriceRecord{}, err
	}

	unit := strings.TrimSpace(row[colUnit])
	grade := strings.TrimSpace(row[colGrade])

	return model.PriceRecord{
		ID:                 RecordID(name, unit, grade, dateCode),
		ProductName:        name,
		Grade:              grade,
		Unit:               unit,
		CurrentPrice:       current,
		PreviousMonthPrice: prev,
		TwoMonthsAgoPrice:  twoAgo,
		PriceDate:          date,
		Source:             model.SourcePublicData,
		MarketType:         model.MarketGarak,
		Category:           model.CategoryProduce,
	}, nil
}

// ParseDateCode accepts yyyyMMdd or yyyyMM codes; month-only codes resolve to
// the first of the month.
func ParseDateCode(code string) (time.Time, error) {
	code = strings.TrimSpace(code)
	switch len(code) {
	case 8:
		return time.Parse("20060102", code)
	case 6:
		return time.Parse("200601", code)
	default:
		return time.Time{}, errors.Errorf("bad date code %q", code)
	}
}

func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", s)
	}
	return v, nil
}
