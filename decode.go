package rebalance

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/logger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Decoder reads ledgers, snapshots and candidate allocations from their
// usual text formats. Malformed records are logged, counted in Skipped and
// ignored: only I/O and document-level errors are returned.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	Resolver *Resolver
	Currency string // ledger currency, DefaultCurrency when empty
	Log      zerolog.Logger
	Skipped  int
}

// NewDecoder creates a Decoder resolving instruments with r.
func NewDecoder(r *Resolver, currency string, log zerolog.Logger) *Decoder {
	return &Decoder{
		Resolver: r,
		Currency: currency,
		Log:      logger.Component(log, "decoder"),
	}
}

func (d *Decoder) currency() string {
	if d.Currency == "" {
		return DefaultCurrency
	}
	return d.Currency
}

func (d *Decoder) skip(name string, line int, err error) {
	d.Skipped++
	d.Log.Warn().Err(err).Str("file", name).Int("line", line).Msg("skipping malformed record")
}

// Transactions decodes a JSONL ledger, one trade per line:
//
//	{"date":"2025-01-02","name":"PETROBRAS PN N2","side":"BUY","quantity":100,"price":10.5,"gross":1050,"fees":1.2}
//
// gross and fees are optional. name is the filename, for messages only.
func (d *Decoder) Transactions(r io.Reader, name string) ([]Transaction, error) {
	// jtx is the object read from the file using json parser.
	type jtx struct {
		Date     date.Date       `json:"date"`
		Name     string          `json:"name"`
		Side     Side            `json:"side"`
		Quantity decimal.Decimal `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
		Gross    decimal.Decimal `json:"gross"`
		Fees     decimal.Decimal `json:"fees"`
	}

	var txs []Transaction
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var j jtx
		if err := json.Unmarshal(line, &j); err != nil {
			d.skip(name, i, fmt.Errorf("not a correct json: %w", err))
			continue
		}
		cur := d.currency()
		tx := Transaction{
			Date:       j.Date,
			RawName:    j.Name,
			Side:       j.Side,
			Quantity:   Q(j.Quantity),
			UnitPrice:  M(j.Price, cur),
			GrossValue: M(j.Gross, cur),
			Fees:       M(j.Fees, cur),
		}
		if err := tx.Validate(); err != nil {
			d.skip(name, i, err)
			continue
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", name, err)
	}
	return txs, nil
}

// snapshotColumns lists the accepted header names of each snapshot field.
var snapshotColumns = map[string][]string{
	"date":    {"date", "data", "observation_date", "on"},
	"id":      {"id", "symbol", "ticker", "ativo", "name"},
	"current": {"current", "current_price", "price", "preco", "cotacao"},
	"target":  {"target", "target_price", "preco_alvo", "alvo"},
}

// SnapshotsCSV decodes a CSV of snapshots. The header names the columns (see
// snapshotColumns), in any order. Both ',' and ';' separators are accepted;
// with ';' decimal commas are accepted too. An empty current price is a
// target-only observation.
func (d *Decoder) SnapshotsCSV(r io.Reader, name string) ([]Snapshot, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(1024)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("cannot read %q: %w", name, err)
	}
	first, _, _ := bytes.Cut(peek, []byte("\n"))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		cr.Comma = ';'
	}

	header, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("invalid header in %q: %w", name, err)
	}
	cols, err := columns(header)
	if err != nil {
		return nil, fmt.Errorf("invalid header in %q: %w", name, err)
	}

	var snaps []Snapshot
	err = d.eachRecord(cr, name, func(line int, rec []string) error {
		s, err := d.snapshotRecord(func(field string) string {
			c, ok := cols[field]
			if !ok || c >= len(rec) {
				return ""
			}
			return rec[c]
		}, date.Date{})
		if err != nil {
			return err
		}
		snaps = append(snaps, s)
		return nil
	})
	return snaps, err
}

// eachRecord calls fn for every record of cr. Records that cannot be parsed or
// that fn rejects are skipped; only read errors are returned.
func (d *Decoder) eachRecord(cr *csv.Reader, name string, fn func(line int, rec []string) error) error {
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			d.skip(name, perr.Line, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("cannot read %q: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if err := fn(line, rec); err != nil {
			d.skip(name, line, err)
		}
	}
}

// columns maps snapshot fields to their column index in header.
func columns(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for field, names := range snapshotColumns {
			for _, n := range names {
				if h == n {
					if _, exists := cols[field]; !exists {
						cols[field] = i
					}
				}
			}
		}
	}
	var errs []error
	for _, field := range []string{"date", "id", "target"} {
		if _, ok := cols[field]; !ok {
			errs = append(errs, fmt.Errorf("missing column %q", field))
		}
	}
	return cols, errors.Join(errs...)
}

// snapshotRecord builds a snapshot from a field accessor. on is used when the
// record has no date of its own.
func (d *Decoder) snapshotRecord(get func(field string) string, on date.Date) (Snapshot, error) {
	s := Snapshot{Date: on}
	if raw := get("date"); raw != "" {
		parsed, err := date.Parse(raw)
		if err != nil {
			return s, err
		}
		s.Date = parsed
	}
	s.ID = d.Resolver.Resolve(get("id"))
	var err error
	if raw := get("current"); raw != "" {
		if s.CurrentPrice, err = parseNumber(raw); err != nil {
			return s, fmt.Errorf("current price: %w", err)
		}
	}
	if s.TargetPrice, err = parseNumber(get("target")); err != nil {
		return s, fmt.Errorf("target price: %w", err)
	}
	return s, s.Validate()
}

// parseNumber parses "12.5", "12,5" or "R$ 1.234,56".
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	// the last separator is the decimal one, the other groups thousands.
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

// DefaultFeedPath selects the records of a snapshot feed document.
const DefaultFeedPath = "$.snapshots[*]"

// SnapshotFeed decodes snapshots from a JSON document, selecting the records
// with a jsonpath expression (DefaultFeedPath when path is empty). Records use
// the same field names as the CSV header; a record without a date is dated on.
func (d *Decoder) SnapshotFeed(r io.Reader, name, path string, on date.Date) ([]Snapshot, error) {
	if path == "" {
		path = DefaultFeedPath
	}
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("%q is not a correct json: %w", name, err)
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("cannot select %q in %q: %w", path, name, err)
	}
	// jsonpath returns a list for wildcards and a single value otherwise.
	jlist, ok := jval.([]any)
	if !ok {
		jlist = []any{jval}
	}

	var snaps []Snapshot
	for i, item := range jlist {
		jrec, ok := item.(map[string]any)
		if !ok {
			d.skip(name, i+1, fmt.Errorf("record is a %T, not an object", item))
			continue
		}
		s, err := d.snapshotRecord(func(field string) string {
			for _, key := range snapshotColumns[field] {
				if v, ok := jrec[key]; ok {
					return jsonString(v)
				}
			}
			return ""
		}, on)
		if err != nil {
			d.skip(name, i+1, err)
			continue
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

// jsonString renders a decoded json scalar as text.
func jsonString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Candidate decodes a candidate allocation, either a JSON list of
// {"id","weight"} objects, a JSON object of id to weight, or a CSV with an
// id,weight header.
func (d *Decoder) Candidate(r io.Reader, name string) (Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Candidate{}, fmt.Errorf("cannot read %q: %w", name, err)
	}
	data = bytes.TrimSpace(data)
	var pairs []WeightPair
	switch {
	case len(data) == 0:
		return Candidate{}, fmt.Errorf("%q is empty", name)
	case data[0] == '[':
		if err := json.Unmarshal(data, &pairs); err != nil {
			return Candidate{}, fmt.Errorf("%q is not a correct json list: %w", name, err)
		}
	case data[0] == '{':
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return Candidate{}, fmt.Errorf("%q is not a correct json object: %w", name, err)
		}
		for id, w := range m {
			pairs = append(pairs, WeightPair{ID: id, Weight: w})
		}
	default:
		if pairs, err = d.candidateCSV(data, name); err != nil {
			return Candidate{}, err
		}
	}
	return NewCandidate(pairs, d.Resolver), nil
}

func (d *Decoder) candidateCSV(data []byte, name string) ([]WeightPair, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if first, _, _ := bytes.Cut(data, []byte("\n")); bytes.Contains(first, []byte(";")) {
		cr.Comma = ';'
	}
	var pairs []WeightPair
	first := true
	err := d.eachRecord(cr, name, func(line int, rec []string) error {
		header := first
		first = false
		if len(rec) < 2 {
			return fmt.Errorf("want 2 fields, got %d", len(rec))
		}
		w, err := parseNumber(rec[1])
		if err != nil {
			if header {
				return nil
			}
			return err
		}
		pairs = append(pairs, WeightPair{ID: rec[0], Weight: w})
		return nil
	})
	return pairs, err
}
