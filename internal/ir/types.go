package ir

// Pos is a source position within the expression text.
// Line and Col are 1-based; a zero Pos means "unknown".
type Pos struct {
	Line int32 `json:"line"`
	Col  int32 `json:"col"`
}

// Expr is a sealed interface over the supported expression node kinds.
// Only Name, Literal, Unary, Binary, and Call implement it. The
// extractor rejects any host-parser node outside this set before an
// Expr is ever built, so a type switch over these five is exhaustive.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Name is a bare identifier in value position. Whether it is a
// datafield or a local binding is recorded on the NameUse, not here.
type Name struct {
	Ident string
	Pos   Pos
}

func (Name) exprNode() {}

// Literal is a bool, int, float, or string literal.
type Literal struct {
	Value LitValue
	Pos   Pos
}

func (Literal) exprNode() {}

// Unary is a unary operation (not, -, +, ~). Sign applications to
// numeric literals are folded into the Literal during extraction and
// never appear as Unary nodes.
type Unary struct {
	Op  string
	X   Expr
	Pos Pos
}

func (Unary) exprNode() {}

// Binary is a binary arithmetic, comparison, or boolean operation.
// Op is the literal operator token ("+", ">=", "and", ...).
type Binary struct {
	Op   string
	X, Y Expr
	Pos  Pos
}

func (Binary) exprNode() {}

// Call is a function invocation in expression position. It shares its
// CallSite with Extraction.CallSites.
type Call struct {
	Site *CallSite
}

func (Call) exprNode() {}

// Kwarg is one keyword-argument occurrence within a call.
type Kwarg struct {
	Name  string
	Value Expr
	Pos   Pos
}

// CallSite is one concrete function invocation with resolved
// positional and keyword arguments. Index is its position in
// Extraction.CallSites (outermost-first appearance order); nested
// calls get independent sites.
type CallSite struct {
	Operator string
	Index    int
	Pos      Pos
	Args     []Expr
	// Kwargs preserves every keyword occurrence in source order,
	// including repeats. Repeats are invalid and flagged by the
	// validator; KwargMap applies last-occurrence-wins.
	Kwargs []Kwarg
}

// KwargMap returns the keyword arguments as a map. When a keyword is
// repeated the last occurrence wins.
func (c *CallSite) KwargMap() map[string]Expr {
	m := make(map[string]Expr, len(c.Kwargs))
	for _, kw := range c.Kwargs {
		m[kw.Name] = kw.Value
	}
	return m
}

// NameUse is one occurrence of a datafield reference. CallIndex is the
// index of the innermost enclosing call site, or -1 when the name is
// used outside any call.
type NameUse struct {
	Name      string
	Pos       Pos
	CallIndex int
}

// Extraction is the complete result of walking one expression string.
// Operators and Datafields are ordered-unique by first appearance;
// CallSites and Uses record every occurrence.
type Extraction struct {
	Operators  []string
	Datafields []string
	CallSites  []*CallSite
	Uses       []NameUse

	// First-appearance positions, keyed by token / datafield name.
	OperatorPos  map[string]Pos
	DatafieldPos map[string]Pos
}
