package taxonomy

// Resolution is the outcome of mapping RMS classification fields onto the
// commerce standard taxonomy.
type Resolution struct {
	TaxonomyID  string
	ProductType string
	Vendor      string
}

// entry is one candidate taxonomy node for the token-scored fallback.
type entry struct {
	TaxonomyID  string
	ProductType string
	// Keywords maps folded tokens to their match weight.
	Keywords map[string]float64
}

// exactTable resolves well-known (familia, categoria) pairs directly.
// Keys are folded "familia|categoria".
var exactTable = map[string]Resolution{
	"ropa|blusas":        {TaxonomyID: "aa-1-13-8", ProductType: "Blusas"},
	"ropa|camisas":       {TaxonomyID: "aa-1-13-13", ProductType: "Camisas"},
	"ropa|pantalones":    {TaxonomyID: "aa-1-13-14", ProductType: "Pantalones"},
	"ropa|vestidos":      {TaxonomyID: "aa-1-13-7", ProductType: "Vestidos"},
	"ropa|faldas":        {TaxonomyID: "aa-1-13-12", ProductType: "Faldas"},
	"ropa|shorts":        {TaxonomyID: "aa-1-13-11", ProductType: "Shorts"},
	"ropa|abrigos":       {TaxonomyID: "aa-1-13-1", ProductType: "Abrigos"},
	"ropa|sueteres":      {TaxonomyID: "aa-1-13-15", ProductType: "Suéteres"},
	"zapatos|botas":      {TaxonomyID: "aa-8-1", ProductType: "Botas"},
	"zapatos|sandalias":  {TaxonomyID: "aa-8-5", ProductType: "Sandalias"},
	"zapatos|tenis":      {TaxonomyID: "aa-8-7", ProductType: "Tenis"},
	"zapatos|tacones":    {TaxonomyID: "aa-8-4", ProductType: "Tacones"},
	"zapatos|flats":      {TaxonomyID: "aa-8-3", ProductType: "Flats"},
	"accesorios|bolsas":  {TaxonomyID: "aa-6-4", ProductType: "Bolsas"},
	"accesorios|cintos":  {TaxonomyID: "aa-2-5", ProductType: "Cintos"},
	"accesorios|joyeria": {TaxonomyID: "aa-6-9", ProductType: "Joyería"},
	"accesorios|gorras":  {TaxonomyID: "aa-2-17", ProductType: "Gorras"},
}

// candidates backs the token-scored fallback when no exact pair matches.
var candidates = []entry{
	{TaxonomyID: "aa-1-13-8", ProductType: "Blusas", Keywords: map[string]float64{"blusa": 3, "blusas": 3, "top": 2, "playera": 2}},
	{TaxonomyID: "aa-1-13-13", ProductType: "Camisas", Keywords: map[string]float64{"camisa": 3, "camisas": 3, "manga": 1}},
	{TaxonomyID: "aa-1-13-14", ProductType: "Pantalones", Keywords: map[string]float64{"pantalon": 3, "pantalones": 3, "jeans": 3, "mezclilla": 2}},
	{TaxonomyID: "aa-1-13-7", ProductType: "Vestidos", Keywords: map[string]float64{"vestido": 3, "vestidos": 3}},
	{TaxonomyID: "aa-1-13-12", ProductType: "Faldas", Keywords: map[string]float64{"falda": 3, "faldas": 3}},
	{TaxonomyID: "aa-1-13-1", ProductType: "Abrigos", Keywords: map[string]float64{"abrigo": 3, "chamarra": 3, "chaqueta": 3, "sudadera": 2}},
	{TaxonomyID: "aa-8-1", ProductType: "Botas", Keywords: map[string]float64{"bota": 3, "botas": 3, "botin": 3}},
	{TaxonomyID: "aa-8-5", ProductType: "Sandalias", Keywords: map[string]float64{"sandalia": 3, "sandalias": 3, "huarache": 2}},
	{TaxonomyID: "aa-8-7", ProductType: "Tenis", Keywords: map[string]float64{"tenis": 3, "deportivo": 2, "sneaker": 2}},
	{TaxonomyID: "aa-8-4", ProductType: "Tacones", Keywords: map[string]float64{"tacon": 3, "tacones": 3, "zapatilla": 2}},
	{TaxonomyID: "aa-6-4", ProductType: "Bolsas", Keywords: map[string]float64{"bolsa": 3, "bolso": 3, "cartera": 2, "mochila": 2}},
	{TaxonomyID: "aa-2-5", ProductType: "Cintos", Keywords: map[string]float64{"cinto": 3, "cinturon": 3}},
	{TaxonomyID: "aa-6-9", ProductType: "Joyería", Keywords: map[string]float64{"collar": 3, "arete": 3, "pulsera": 3, "anillo": 3}},
}

// familyFallback resolves at the familia level when token scoring finds no
// confident match.
var familyFallback = map[string]Resolution{
	"zapatos":    {TaxonomyID: "aa-8", ProductType: "Calzado"},
	"ropa":       {TaxonomyID: "aa-1", ProductType: "Ropa"},
	"accesorios": {TaxonomyID: "aa-2", ProductType: "Accesorios"},
}

// terminalFallback is used when nothing else matched.
var terminalFallback = Resolution{TaxonomyID: "aa-0", ProductType: "Miscellaneous"}

// footwearTaxonomyPrefix identifies footwear nodes; drives the shoe_size
// metafield.
const footwearTaxonomyPrefix = "aa-8"

// IsFootwear reports whether a taxonomy id belongs to the footwear subtree.
func IsFootwear(taxonomyID string) bool {
	return taxonomyID == footwearTaxonomyPrefix ||
		len(taxonomyID) > len(footwearTaxonomyPrefix) && taxonomyID[:len(footwearTaxonomyPrefix)+1] == footwearTaxonomyPrefix+"-"
}
