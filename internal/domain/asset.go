package domain

import (
	"hash/fnv"
	"strings"

	"github.com/samber/lo"
)

// USDSymbol is the fiat cash asset. It is valued at exactly one USD per unit.
const USDSymbol = "USD"

// AssetMeta holds display metadata for an asset symbol.
type AssetMeta struct {
	Symbol  string `json:"symbol" yaml:"symbol"`
	Name    string `json:"name" yaml:"name"`
	Color   string `json:"color" yaml:"color"`
	IconURL string `json:"iconUrl" yaml:"iconUrl"`
}

// requiredAssets and defaultCatalog are unexported to prevent external mutation.
var (
	requiredAssets = []string{"BTC", "ETH", "USDT", "TUIT"}

	defaultCatalog = []AssetMeta{
		{Symbol: "BTC", Name: "Bitcoin", Color: "#F7931A"},
		{Symbol: "ETH", Name: "Ethereum", Color: "#627EEA"},
		{Symbol: "USDT", Name: "Tether", Color: "#26A17B"},
		{Symbol: "TUIT", Name: "Tuition Token", Color: "#6C3CE9"},
		{Symbol: USDSymbol, Name: "US Dollar", Color: "#85BB65"},
	}

	// fallbackPalette colors assets the catalog does not know.
	fallbackPalette = []string{"#E84142", "#2775CA", "#F0B90B", "#8247E5", "#00AEEF", "#FF007A", "#14F195", "#C2A633"}
)

// RequiredAssets returns a copy of the default always-shown asset list.
func RequiredAssets() []string {
	return append([]string(nil), requiredAssets...)
}

// DefaultCatalog returns a copy of the built-in asset metadata.
func DefaultCatalog() []AssetMeta {
	return append([]AssetMeta(nil), defaultCatalog...)
}

// NormalizeSymbol upper-cases and trims an asset symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseSymbols splits a comma-separated symbol list, dropping blanks and duplicates.
func ParseSymbols(list string) []string {
	symbols := lo.FilterMap(strings.Split(list, ","), func(s string, _ int) (string, bool) {
		s = NormalizeSymbol(s)
		return s, s != ""
	})
	return lo.Uniq(symbols)
}

// Catalog resolves display metadata by symbol.
type Catalog struct {
	bySymbol map[string]AssetMeta
}

// NewCatalog builds a catalog from the given entries layered over the defaults.
func NewCatalog(entries ...AssetMeta) *Catalog {
	all := append(DefaultCatalog(), entries...)
	return &Catalog{
		bySymbol: lo.SliceToMap(all, func(m AssetMeta) (string, AssetMeta) {
			m.Symbol = NormalizeSymbol(m.Symbol)
			return m.Symbol, m
		}),
	}
}

// Lookup returns metadata for symbol. Unknown symbols get the symbol as name
// and a stable color from the fallback palette.
func (c *Catalog) Lookup(symbol string) AssetMeta {
	symbol = NormalizeSymbol(symbol)
	if c != nil {
		if m, ok := c.bySymbol[symbol]; ok {
			if m.Name == "" {
				m.Name = symbol
			}
			if m.Color == "" {
				m.Color = paletteColor(symbol)
			}
			return m
		}
	}
	return AssetMeta{Symbol: symbol, Name: symbol, Color: paletteColor(symbol)}
}

func paletteColor(symbol string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}
