package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/kassa/internal/export"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/testutil"
)

const testConfig = `
timezone: UTC
receipt:
  origin: https://kassa.example
`

// harness runs commands against one temp database with a fixed clock and
// sequential identities.
type harness struct {
	t      *testing.T
	dir    string
	config string
	db     string
	clock  *testutil.FixedClock
	ids    *ids.Sequence
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "kassa.yaml")
	require.NoError(t, os.WriteFile(config, []byte(testConfig), 0o644))
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })
	return &harness{
		t:      t,
		dir:    dir,
		config: config,
		db:     filepath.Join(dir, "kassa.db"),
		clock:  testutil.NewFixedClock(testutil.Now),
		ids:    ids.NewSequence("id"),
	}
}

// exec runs one command line and returns stdout.
func (h *harness) exec(args ...string) (string, error) {
	h.t.Helper()
	opts := &RootOptions{Clock: h.clock, IDs: h.ids}
	cmd := newRootCommand(opts)
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(diag)
	cmd.SetArgs(append([]string{"--config", h.config, "--db", h.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustExec(args ...string) string {
	h.t.Helper()
	out, err := h.exec(args...)
	require.NoError(h.t, err, "kassa %v\n%s", args, out)
	return out
}

// seedCafe onboards the Cafe and adds Latte and Bun.
func (h *harness) seedCafe() {
	h.mustExec("init", "--name", "Cafe", "--currency", "UZS", "--language", "en")
	h.mustExec("product", "add", "--barcode", "4780000000017", "--name", "Latte", "--price", "10000")
	h.mustExec("product", "add", "--barcode", "4780000000024", "--name", "Bun", "--price", "5000")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "kassa", cmd.Use)

	commands := [][]string{
		{"init"}, {"shop", "show"}, {"shop", "set"},
		{"product", "add"}, {"product", "search"}, {"product", "edit"},
		{"catalog", "import"}, {"sell"}, {"stats"}, {"close"}, {"cash-count"},
		{"report", "list"}, {"report", "export"}, {"receipt", "decode"},
		{"serve"}, {"sync"},
	}
	for _, path := range commands {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec("--format", "xml", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSell_JSON(t *testing.T) {
	h := newHarness(t)
	h.seedCafe()

	out := h.mustExec("--format", "json", "sell", "4780000000017:2", "4780000000024", "--pay", "cash")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sell_cafe", []byte(out))
}

func TestSell_WritesQR(t *testing.T) {
	h := newHarness(t)
	h.seedCafe()

	qr := filepath.Join(h.dir, "receipt.png")
	out := h.mustExec("sell", "4780000000024", "--pay", "card", "--qr", qr)
	assert.Contains(t, out, "5,000 UZS, card")
	assert.Contains(t, out, "receipt: https://kassa.example/receipt?data=")

	png, err := os.ReadFile(qr)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestSell_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("sell", "4780000000017")
	assert.Equal(t, ExitCommandError, GetExitCode(err), "not onboarded")

	h.seedCafe()

	out, err := h.exec("sell", "000")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
	assert.Contains(t, out, "unknown barcode")

	_, err = h.exec("sell", "4780000000017:0")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = h.exec("sell", "4780000000017", "--pay", "barter")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	stats := h.mustExec("--format", "json", "stats")
	assert.Contains(t, stats, `"count":0`, "rejected sales leave nothing behind")
}

func TestDayFlow(t *testing.T) {
	h := newHarness(t)
	h.seedCafe()
	h.mustExec("sell", "4780000000017:2", "4780000000024", "--pay", "cash")
	h.mustExec("sell", "4780000000024", "--pay", "card")

	stats := h.mustExec("stats")
	assert.Equal(t, "2026-10-15: 2 sales, total 30,000 UZS (cash 25,000 UZS, card 5,000 UZS)\n", stats)

	count := h.mustExec("cash-count", "--note", "10000=2", "--note", "5000=1", "--coins", "500")
	assert.Contains(t, count, "surplus 500 UZS")

	closed := h.mustExec("close")
	assert.Contains(t, closed, "2026-10-15 closed: 2 sales, total 30,000 UZS")

	out, err := h.exec("close")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")

	// Closing does not reset the day.
	assert.Equal(t, stats, h.mustExec("stats"))

	list := h.mustExec("report", "list")
	assert.Contains(t, list, "2026-10-15 closed")

	file := filepath.Join(h.dir, "reports.xlsx")
	h.mustExec("report", "export", "-o", file)
	f, err := excelize.OpenFile(file)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "30000", rows[1][2])
}

func TestShopAndCatalogCommands(t *testing.T) {
	h := newHarness(t)
	h.seedCafe()

	out := h.mustExec("shop", "set", "--name", "Cafe Central")
	assert.Contains(t, out, "Cafe Central (UZS, en)")

	_, err := h.exec("init", "--name", "Second")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	catalog := filepath.Join(h.dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("products:\n  - name: Tea\n    price: 3000\n  - name: Tarte\n    price: 12000\n"), 0o644))
	assert.Equal(t, "imported 2 products\n", h.mustExec("catalog", "import", catalog))

	found := h.mustExec("product", "search", "ta")
	assert.Contains(t, found, "Tarte")
	assert.NotContains(t, found, "Tea")

	var resp struct {
		Data []productResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustExec("--format", "json", "product", "search", "lat")), &resp))
	require.Len(t, resp.Data, 1)

	edited := h.mustExec("product", "edit", resp.Data[0].ID, "--price", "11000")
	assert.Contains(t, edited, "11,000 UZS")

	_, err = h.exec("catalog", "import", filepath.Join(h.dir, "missing.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProductAdd_UnknownBarcode(t *testing.T) {
	h := newHarness(t)
	h.seedCafe()

	_, err := h.exec("sell", "4780000000031", "--pay", "cash")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := h.mustExec("product", "add", "--barcode", "4780000000031", "--price", "7000")
	assert.Contains(t, out, "Product 4780000000031")

	out = h.mustExec("sell", "4780000000031", "--pay", "cash")
	assert.Contains(t, out, "7,000 UZS")

	_, err = h.exec("product", "add", "--price", "7000")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestReceiptDecode(t *testing.T) {
	h := newHarness(t)
	url, err := os.ReadFile(filepath.Join("..", "receipt", "testdata", "golden", "cafe_url.golden"))
	require.NoError(t, err)

	out := h.mustExec("receipt", "decode", string(url), "--currency", "UZS")
	assert.Contains(t, out, "Cafe  2026-10-15T09:30:00.000Z")
	assert.Contains(t, out, "2 x 10,000 UZS = 20,000 UZS")
	assert.Contains(t, out, "total 25,000 UZS, cash")

	out, err = h.exec("receipt", "decode", "https://kassa.example/receipt?data=%7B%7D")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestSync_NoRemote(t *testing.T) {
	h := newHarness(t)
	out, err := h.exec("sync")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no remote configured")
}

func TestConfigErrors(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte("remote:\n  kind: carrier-pigeon\n"), 0o644))

	out, err := h.exec("stats")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}
