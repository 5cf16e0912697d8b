package nlquery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/schema"
)

var (
	productWord  = regexp.MustCompile(`\bproducts?\b`)
	materialWord = regexp.MustCompile(`\bmaterials?\b`)
	vehicleWord  = regexp.MustCompile(`\bvehicles?\b`)
	plateWord    = regexp.MustCompile(`\bplates?\b`)
	deliveryWord = regexp.MustCompile(`\bdelivery\b|\bdeliveries\b`)
	salesWord    = regexp.MustCompile(`\bsales?\b`)
)

type tableRule struct {
	table string
	match func(text string) bool
}

// Evaluated first-match-wins; sales_data is the fallback.
var tableRules = []tableRule{
	{schema.TableProducts, func(t string) bool {
		return productWord.MatchString(t) && materialWord.MatchString(t)
	}},
	{schema.TableVehicles, func(t string) bool {
		return vehicleWord.MatchString(t) || (deliveryWord.MatchString(t) && plateWord.MatchString(t))
	}},
}

// Join rules apply only when the main table is sales_data. At most one join
// per statement; first match wins.
var joinRules = []tableRule{
	{schema.TableProducts, func(t string) bool {
		return materialWord.MatchString(t) ||
			strings.Contains(t, "product price") ||
			strings.Contains(t, "product cost")
	}},
	{schema.TableVehicles, func(t string) bool {
		return vehicleWord.MatchString(t) && !strings.Contains(t, "delivery plate")
	}},
}

var aggregateMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\btotals?\b`),
	regexp.MustCompile(`\baverages?\b|\bavg\b`),
	regexp.MustCompile(`\bsums?\b`),
	regexp.MustCompile(`\bcount(s|ing)?\b`),
	regexp.MustCompile(`\bmin(imum)?\b`),
	regexp.MustCompile(`\bmax(imum)?\b`),
	regexp.MustCompile(`\bgroup by\b`),
}

var (
	countPhrase = regexp.MustCompile(`\bhow many\b|\bcount(s|ing)?\b|\bnumber of\b`)
	sumPhrase   = regexp.MustCompile(`\btotals?\b|\bsums?\b`)
	avgPhrase   = regexp.MustCompile(`\baverages?\b|\bavg\b`)
	trendPhrase = regexp.MustCompile(`\btrend\b|\bover time\b|\btime series\b|\btimeseries\b`)
)

type groupRule struct {
	match  *regexp.Regexp
	column string
	unit   DateUnit
}

var groupRules = []groupRule{
	{match: regexp.MustCompile(`\bby country\b`), column: "country"},
	{match: regexp.MustCompile(`\bby region\b`), column: "region"},
	{match: regexp.MustCompile(`\bby city\b`), column: "city"},
	{match: regexp.MustCompile(`\bby store\b`), column: "store_name"},
	{match: regexp.MustCompile(`\bby products?\b|\bper product\b|\bfor each product\b`), column: "product_name"},
	{match: regexp.MustCompile(`\bby month\b|\bmonthly\b|\bper month\b`), unit: UnitMonth},
	{match: regexp.MustCompile(`\bby year\b|\byearly\b|\bper year\b|\bannually\b`), unit: UnitYear},
	{match: regexp.MustCompile(`\bby quarter\b|\bquarterly\b|\bper quarter\b`), unit: UnitQuarter},
	{match: regexp.MustCompile(`\bby week\b|\bweekly\b|\bper week\b`), unit: UnitWeek},
	{match: regexp.MustCompile(`\bby day\b|\bdaily\b|\bper day\b`), unit: UnitDay},
}

var (
	sumDefaults = []string{"quantity", "total_cost", "total_product_cost"}
	avgDefaults = []string{"unit_price", "total_cost", "delivery_duration_mins"}
)

var (
	datePattern     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	limitPattern    = regexp.MustCompile(`\b(?:top|first|limit)\s+(\d+)\b`)
	recentWord      = regexp.MustCompile(`\brecent\b`)
	descWord        = regexp.MustCompile(`\bdesc(ending)?\b|\bhighest\b|\bmost\b`)
	locationPattern = regexp.MustCompile(`\b(?:in|for|at|from)\s+([a-z][\w-]*(?:\s+[\w-]+)*?)\s+(country|region|city)\b`)
)

var sortMarkers = []string{"order by", "sort by", "sorted by"}

const valueAlt = `(?:'([^']+)'|"([^"]+)"|([\w-]+))`

type filterPattern struct {
	field   string
	op      Operator
	re      *regexp.Regexp
	numeric bool
	like    bool
}

func newFilterPatterns(table schema.Table) []filterPattern {
	var out []filterPattern
	for _, col := range table.Columns {
		field := table.Qualify(col.StorageName)
		for _, phrase := range col.MatchPhrases() {
			p := regexp.QuoteMeta(phrase)
			out = append(out,
				filterPattern{
					field: field, op: OpEquals, numeric: col.IsNumeric(),
					re: regexp.MustCompile(`\b(?:where|with|for|if)\s+` + p + `\s+(?:is|=|equals?)\s+` + valueAlt),
				},
				filterPattern{
					field: field, op: OpLike, like: true,
					re: regexp.MustCompile(`\b` + p + `\s+(?:contains|like|has)\s+` + valueAlt),
				},
				filterPattern{
					field: field, op: OpGreater, numeric: true,
					re: regexp.MustCompile(`\b` + p + `\s+(?:>|greater than|more than|above|over)\s+(\d+(?:[.-]\d+)*)`),
				},
				filterPattern{
					field: field, op: OpLess, numeric: true,
					re: regexp.MustCompile(`\b` + p + `\s+(?:<|less than|under|below|fewer than)\s+(\d+(?:[.-]\d+)*)`),
				},
			)
		}
	}
	return out
}

// Analyzer maps a free-text question to an Intent with pure lexical rules;
// no model is involved. Clock feeds the relative time-range filters and is
// swappable in tests.
type Analyzer struct {
	Catalog *schema.Catalog
	Dialect Dialect
	Clock   func() time.Time

	phraseRes map[string]*regexp.Regexp
	patterns  map[string][]filterPattern
}

func New(catalog *schema.Catalog, dialect Dialect) *Analyzer {
	a := &Analyzer{
		Catalog:   catalog,
		Dialect:   dialect,
		Clock:     time.Now,
		phraseRes: make(map[string]*regexp.Regexp),
		patterns:  make(map[string][]filterPattern),
	}
	for _, table := range catalog.Tables() {
		for _, col := range table.Columns {
			for _, phrase := range col.MatchPhrases() {
				if _, ok := a.phraseRes[phrase]; !ok {
					a.phraseRes[phrase] = regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
				}
			}
		}
		a.patterns[table.Name] = newFilterPatterns(table)
	}
	return a
}

func (a *Analyzer) Analyze(question string) (Intent, error) {
	text := strings.ToLower(strings.TrimSpace(question))

	main, err := a.Catalog.Lookup(tableFor(text))
	if err != nil {
		return Intent{}, err
	}
	intent := Intent{Main: main}

	if main.Name == schema.TableSales {
		for _, rule := range joinRules {
			if !rule.match(text) {
				continue
			}
			join, err := a.Catalog.Lookup(rule.table)
			if err != nil {
				return Intent{}, err
			}
			intent.Join = &join
			break
		}
	}

	intent.Aggregated = needsAggregation(text)
	a.selectColumns(&intent, text)
	if intent.HasAggregate() {
		intent.Aggregated = true
	}
	a.inferGrouping(&intent, text)
	a.inferFilters(&intent, text)
	intent.Filters = append(intent.Filters, a.timeFilters(text, main)...)
	a.inferSort(&intent, text)
	intent.Limit = inferLimit(text)
	return intent, nil
}

func tableFor(text string) string {
	for _, rule := range tableRules {
		if rule.match(text) {
			return rule.table
		}
	}
	return schema.TableSales
}

func needsAggregation(text string) bool {
	for _, marker := range aggregateMarkers {
		if marker.MatchString(text) {
			return true
		}
	}
	return mentionsSalesByProduct(text)
}

// mentionsSalesByProduct implements the deliberately broad "sales by
// product" fallback: the two words co-occurring anywhere trigger it, not
// just the literal phrase.
func mentionsSalesByProduct(text string) bool {
	if strings.Contains(text, "sales by product") {
		return true
	}
	return salesWord.MatchString(text) && productWord.MatchString(text)
}

func (a *Analyzer) mentioned(text string, col schema.Column) bool {
	for _, phrase := range col.MatchPhrases() {
		if re, ok := a.phraseRes[phrase]; ok && re.MatchString(text) {
			return true
		}
	}
	return false
}

func (a *Analyzer) selectColumns(intent *Intent, text string) {
	if countPhrase.MatchString(text) {
		intent.addColumn(SelectedColumn{Expr: "*", Alias: "record_count", Aggregate: AggregateCount})
	}
	if sumPhrase.MatchString(text) {
		a.addAggregateColumns(intent, text, AggregateSum, "total_", sumDefaults)
	}
	if avgPhrase.MatchString(text) {
		a.addAggregateColumns(intent, text, AggregateAvg, "avg_", avgDefaults)
	}
	a.addMentionedColumns(intent, text)
	if mentionsSalesByProduct(text) && !intent.HasAggregate() {
		if col, ok := intent.Main.Column("quantity"); ok {
			intent.addColumn(SelectedColumn{
				Expr:      intent.Main.Qualify(col.StorageName),
				Alias:     "total_quantity",
				Column:    col.StorageName,
				Aggregate: AggregateSum,
			})
		}
	}
	if len(intent.Columns) == 0 {
		a.addDefaultProjection(intent)
	}
}

func (a *Analyzer) addAggregateColumns(intent *Intent, text string, agg AggregateFn, aliasPrefix string, defaults []string) {
	matched := false
	for _, table := range intent.tables() {
		for _, col := range table.Columns {
			if !col.IsNumeric() || col.Internal() || col.StorageName == table.PrimaryKey() {
				continue
			}
			if !a.mentioned(text, col) {
				continue
			}
			if intent.addColumn(SelectedColumn{
				Expr:      table.Qualify(col.StorageName),
				Alias:     aggregateAlias(aliasPrefix, col.StorageName),
				Column:    col.StorageName,
				Aggregate: agg,
			}) {
				matched = true
			}
		}
	}
	if matched {
		return
	}
	for _, name := range defaults {
		col, ok := intent.Main.Column(name)
		if !ok || !col.IsNumeric() {
			continue
		}
		intent.addColumn(SelectedColumn{
			Expr:      intent.Main.Qualify(col.StorageName),
			Alias:     aggregateAlias(aliasPrefix, col.StorageName),
			Column:    col.StorageName,
			Aggregate: agg,
		})
		return
	}
}

// aggregateAlias avoids stutter when the column already carries the prefix,
// so SUM over total_cost stays total_cost rather than total_total_cost.
func aggregateAlias(prefix, storageName string) string {
	if strings.HasPrefix(storageName, prefix) {
		return storageName
	}
	return prefix + storageName
}

func (a *Analyzer) addMentionedColumns(intent *Intent, text string) {
	for _, table := range intent.tables() {
		for _, col := range table.Columns {
			if col.Internal() || !a.mentioned(text, col) {
				continue
			}
			if intent.hasAggregateOn(col.StorageName) {
				continue
			}
			intent.addColumn(SelectedColumn{
				Expr:   table.Qualify(col.StorageName),
				Column: col.StorageName,
			})
		}
	}
}

func (a *Analyzer) addDefaultProjection(intent *Intent) {
	if intent.Main.Name == schema.TableSales {
		for _, name := range []string{"sales_date", "product_name", "quantity", "unit_price", "total_cost"} {
			if col, ok := intent.Main.Column(name); ok {
				intent.addColumn(SelectedColumn{Expr: intent.Main.Qualify(col.StorageName), Column: col.StorageName})
			}
		}
		return
	}
	for _, col := range intent.Main.Columns {
		if col.Internal() {
			continue
		}
		intent.addColumn(SelectedColumn{Expr: intent.Main.Qualify(col.StorageName), Column: col.StorageName})
	}
}

func (a *Analyzer) inferGrouping(intent *Intent, text string) {
	if !intent.HasAggregate() {
		return
	}
	matched := false
	for _, rule := range groupRules {
		if !rule.match.MatchString(text) {
			continue
		}
		if rule.column != "" {
			if _, ok := intent.Main.Column(rule.column); ok {
				intent.addGroup(intent.Main.Qualify(rule.column))
				matched = true
			}
			continue
		}
		if dateCol, ok := intent.Main.DateColumn(); ok {
			intent.addGroup(a.Dialect.DateTrunc(rule.unit, intent.Main.Qualify(dateCol.StorageName)))
			matched = true
		}
	}
	if !matched && trendPhrase.MatchString(text) {
		if dateCol, ok := intent.Main.DateColumn(); ok {
			intent.addGroup(a.Dialect.DateTrunc(UnitMonth, intent.Main.Qualify(dateCol.StorageName)))
		}
	}
	if len(intent.GroupBy) == 0 {
		for _, col := range intent.Columns {
			if col.Aggregate == AggregateNone && col.Column != "" {
				intent.addGroup(col.Expr)
			}
		}
	}
	if len(intent.GroupBy) == 0 && mentionsSalesByProduct(text) {
		if _, ok := intent.Main.Column("product_name"); ok {
			intent.addGroup(intent.Main.Qualify("product_name"))
		}
	}
}

func (a *Analyzer) inferFilters(intent *Intent, text string) {
	for _, table := range intent.tables() {
		for _, fp := range a.patterns[table.Name] {
			m := fp.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			raw := firstGroup(m)
			if raw == "" {
				continue
			}
			value := any(raw)
			if fp.like {
				value = "%" + raw + "%"
			} else if fp.numeric {
				if f, err := strconv.ParseFloat(raw, 64); err == nil {
					value = f
				}
			}
			intent.Filters = append(intent.Filters, Filter{Field: fp.field, Operator: fp.op, Value: value})
		}
	}
	if _, ok := intent.Main.Column("sales_type"); ok {
		field := intent.Main.Qualify("sales_type")
		switch {
		case strings.Contains(text, "instore") || strings.Contains(text, "in store"):
			intent.Filters = append(intent.Filters, Filter{Field: field, Operator: OpEquals, Value: "instore"})
		case deliveryWord.MatchString(text) && !strings.Contains(text, "delivery fee") && !strings.Contains(text, "delivery plate"):
			intent.Filters = append(intent.Filters, Filter{Field: field, Operator: OpEquals, Value: "delivery"})
		}
	}
	if m := locationPattern.FindStringSubmatch(text); m != nil {
		place := strings.TrimSpace(strings.TrimPrefix(m[1], "the "))
		if _, ok := intent.Main.Column(m[2]); ok && place != "" {
			intent.Filters = append(intent.Filters, Filter{Field: intent.Main.Qualify(m[2]), Operator: OpEquals, Value: place})
		}
	}
}

// timeFilters runs after the regular filter pass so its parameters always
// trail the others in the rendered statement.
func (a *Analyzer) timeFilters(text string, main schema.Table) []Filter {
	dateCol, ok := main.DateColumn()
	if !ok {
		return nil
	}
	field := main.Qualify(dateCol.StorageName)
	var out []Filter

	dates := datePattern.FindAllString(text, -1)
	switch {
	case len(dates) >= 2:
		out = append(out,
			Filter{Field: field, Operator: OpGreaterOrEqual, Value: dates[0]},
			Filter{Field: field, Operator: OpLessOrEqual, Value: dates[1]},
		)
	case len(dates) == 1:
		out = append(out, Filter{Field: field, Operator: OpGreaterOrEqual, Value: dates[0]})
	}

	now := a.Clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(text, "last month"):
		out = append(out,
			Filter{Field: field, Operator: OpGreaterOrEqual, Value: monthStart.AddDate(0, -1, 0).Format("2006-01-02")},
			Filter{Field: field, Operator: OpLessOrEqual, Value: monthStart.AddDate(0, 0, -1).Format("2006-01-02")},
		)
	case strings.Contains(text, "this month"):
		out = append(out, Filter{Field: field, Operator: OpGreaterOrEqual, Value: monthStart.Format("2006-01-02")})
	}
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(text, "last year"):
		out = append(out,
			Filter{Field: field, Operator: OpGreaterOrEqual, Value: yearStart.AddDate(-1, 0, 0).Format("2006-01-02")},
			Filter{Field: field, Operator: OpLessOrEqual, Value: yearStart.AddDate(0, 0, -1).Format("2006-01-02")},
		)
	case strings.Contains(text, "this year"):
		out = append(out, Filter{Field: field, Operator: OpGreaterOrEqual, Value: yearStart.Format("2006-01-02")})
	}
	return out
}

func (a *Analyzer) inferSort(intent *Intent, text string) {
	dir := Ascending
	if descWord.MatchString(text) {
		dir = Descending
	}
	for _, marker := range sortMarkers {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		tail := text[idx+len(marker):]
		for _, col := range intent.Columns {
			if col.Aggregate != AggregateNone || col.Column == "" {
				continue
			}
			if strings.Contains(tail, spoken(col.Column)) {
				intent.Sort = &Sort{Field: col.Expr, Direction: dir}
				return
			}
		}
		for _, col := range intent.Columns {
			if col.Aggregate == AggregateNone {
				continue
			}
			if strings.Contains(tail, spoken(col.Alias)) || (col.Column != "" && strings.Contains(tail, spoken(col.Column))) {
				intent.Sort = &Sort{Field: col.Alias, Direction: dir, Aggregate: true}
				return
			}
		}
		return
	}
	dateCol, ok := intent.Main.DateColumn()
	if !ok {
		return
	}
	candidate := Sort{Field: intent.Main.Qualify(dateCol.StorageName), Direction: Descending}
	if OrderByAllowed(candidate, intent.Aggregated, intent.GroupBy) {
		intent.Sort = &candidate
	}
}

func inferLimit(text string) int {
	if m := limitPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	if recentWord.MatchString(text) {
		return 10
	}
	return 0
}

func (in *Intent) tables() []schema.Table {
	tables := []schema.Table{in.Main}
	if in.Join != nil {
		tables = append(tables, *in.Join)
	}
	return tables
}

func firstGroup(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

func spoken(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
