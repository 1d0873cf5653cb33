package rebalance

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDecoder() *Decoder {
	return NewDecoder(MustResolver(DefaultAliases()), "", zerolog.Nop())
}

func TestDecoder_Transactions(t *testing.T) {
	input := `
# broker export
{"date":"2025-01-02","name":"PETROBRAS PN N2","side":"C","quantity":100,"price":10.5}
{"date":"2025-01-03","name":"PETR4","side":"SELL","quantity":30,"price":12,"gross":360,"fees":1.2}
{"date":"2025-01-04","name":"VALE3","side":"HOLD","quantity":1,"price":60}
not json
{"date":"2025-01-05","name":"VALE3","side":"BUY","quantity":0,"price":60}
`
	d := newTestDecoder()
	txs, err := d.Transactions(strings.NewReader(input), "ledger.jsonl")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 3, d.Skipped)

	first := txs[0]
	assert.Equal(t, day("2025-01-02"), first.Date)
	assert.Equal(t, "PETROBRAS PN N2", first.RawName)
	assert.Equal(t, Buy, first.Side)
	assert.True(t, first.Gross().Equal(BRL(1050)), "gross = %v", first.Gross())
	assert.Equal(t, DefaultCurrency, first.UnitPrice.Currency())

	second := txs[1]
	assert.Equal(t, Sell, second.Side)
	assert.True(t, second.Gross().Equal(BRL(360)))
	assert.True(t, second.Fees.Equal(BRL(1.2)))
}

func TestDecoder_SnapshotsCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "date,symbol,price,target\n2025-01-02,PETR4,30.5,40\n2025-01-02,VALE3,,70\n"},
		{"semicolon and decimal comma", "Data;Ativo;Cotacao;Preco_Alvo\n02/01/2025;PETR4;30,50;40\n02/01/2025;Vale ON NM;;70,00\n"},
		{"reordered columns", "target,id,on,current\n40,petr4,2025-01-02,30.5\n70,VALE3,2025-01-02,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoder()
			snaps, err := d.SnapshotsCSV(strings.NewReader(tt.input), "snapshots.csv")
			require.NoError(t, err)
			require.Len(t, snaps, 2)
			assert.Zero(t, d.Skipped)
			assert.Equal(t, snap("2025-01-02", "PETR4", 30.5, 40), snaps[0])
			assert.Equal(t, snap("2025-01-02", "VALE3", 0, 70), snaps[1])
		})
	}
}

func TestDecoder_SnapshotsCSV_Errors(t *testing.T) {
	d := newTestDecoder()
	_, err := d.SnapshotsCSV(strings.NewReader("date,price\n2025-01-02,10\n"), "bad.csv")
	assert.Error(t, err, "missing id and target columns")

	snaps, err := d.SnapshotsCSV(strings.NewReader("date,id,price,target\nyesterday,A,1,2\n2025-01-02,A,x,2\n2025-01-02,A,1,0\n2025-01-02,A,1,2\n"), "rows.csv")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
	assert.Equal(t, 3, d.Skipped)
}

func TestDecoder_SnapshotsCSV_BadQuote(t *testing.T) {
	input := "date,id,price,target\n2025-01-02,A,10,12\n2025-01-02,B\"x,10,12\n2025-01-02,C,20,30\n"
	d := newTestDecoder()
	snaps, err := d.SnapshotsCSV(strings.NewReader(input), "quotes.csv")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, CanonicalID("A"), snaps[0].ID)
	assert.Equal(t, CanonicalID("C"), snaps[1].ID)
	assert.Equal(t, 1, d.Skipped)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"12.5", 12.5, false},
		{"12,5", 12.5, false},
		{"R$ 1.234,56", 1234.56, false},
		{"1,234.56", 1234.56, false},
		{" 7 ", 7, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNumber(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseNumber(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDecoder_SnapshotFeed(t *testing.T) {
	input := `{
  "updated": "2025-01-02",
  "snapshots": [
    {"symbol": "PETR4", "current_price": 30.5, "target_price": 40},
    {"symbol": "VALE3", "date": "2025-01-01", "current_price": null, "target_price": "70"},
    {"symbol": "ITUB4", "current_price": 30},
    "garbage"
  ]
}`
	d := newTestDecoder()
	snaps, err := d.SnapshotFeed(strings.NewReader(input), "feed.json", "", day("2025-01-02"))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 2, d.Skipped)
	assert.Equal(t, snap("2025-01-02", "PETR4", 30.5, 40), snaps[0])
	assert.Equal(t, snap("2025-01-01", "VALE3", 0, 70), snaps[1])

	single, err := d.SnapshotFeed(strings.NewReader(input), "feed.json", "$.snapshots[0]", day("2025-01-02"))
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = d.SnapshotFeed(strings.NewReader("{"), "broken.json", "", day("2025-01-02"))
	assert.Error(t, err)
}

func TestDecoder_Candidate(t *testing.T) {
	want := Weights{"PETR4": 0.6, "VALE3": 0.4}
	tests := []struct {
		name  string
		input string
	}{
		{"json list", `[{"id":"PETR4","weight":0.6},{"id":"vale3","weight":0.4}]`},
		{"json object", `{"PETR4":0.6,"VALE ON NM":0.4}`},
		{"csv", "id,weight\nPETR4,0.6\nVALE3,0.4\n"},
		{"csv semicolon", "ativo;peso\nPETROBRAS PN N2;0,6\nVALE3;0,4\n"},
		{"duplicates are summed", `[{"id":"PETR4","weight":0.3},{"id":"PETROBRAS PN N2","weight":0.3},{"id":"VALE3","weight":0.4}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newTestDecoder().Candidate(strings.NewReader(tt.input), "candidate")
			require.NoError(t, err)
			require.NoError(t, c.Validate())
			assert.InDeltaMapValues(t, want, c.Weights, 1e-12)
		})
	}

	_, err := newTestDecoder().Candidate(strings.NewReader("  "), "empty")
	assert.Error(t, err)
}

func TestDecoder_Candidate_BadQuote(t *testing.T) {
	d := newTestDecoder()
	c, err := d.Candidate(strings.NewReader("id,weight\nPETR4,0.6\nVA\"LE,0.1\nVALE3,0.4\n"), "candidate.csv")
	require.NoError(t, err)
	assert.InDeltaMapValues(t, Weights{"PETR4": 0.6, "VALE3": 0.4}, c.Weights, 1e-12)
	assert.Equal(t, 1, d.Skipped)
}
