package extract

import "go.starlark.net/syntax"

// binaryOps maps host-parser binary and comparison tokens to the
// operator symbols used in rule schemas.
var binaryOps = map[syntax.Token]string{
	syntax.PLUS:       "+",
	syntax.MINUS:      "-",
	syntax.STAR:       "*",
	syntax.SLASH:      "/",
	syntax.PERCENT:    "%",
	syntax.STARSTAR:   "**",
	syntax.SLASHSLASH: "//",
	syntax.AMP:        "&",
	syntax.PIPE:       "|",
	syntax.CIRCUMFLEX: "^",
	syntax.LTLT:       "<<",
	syntax.GTGT:       ">>",

	syntax.EQL: "==",
	syntax.NEQ: "!=",
	syntax.LT:  "<",
	syntax.GT:  ">",
	syntax.GE:  ">=",
	syntax.LE:  "<=",

	syntax.AND:    "and",
	syntax.OR:     "or",
	syntax.IN:     "in",
	syntax.NOT_IN: "not in",
}

// augAssignOps maps augmented-assignment tokens to their symbols.
// Plain "=" assignment is not an operator and is absent here.
var augAssignOps = map[syntax.Token]string{
	syntax.PLUS_EQ:       "+=",
	syntax.MINUS_EQ:      "-=",
	syntax.STAR_EQ:       "*=",
	syntax.SLASH_EQ:      "/=",
	syntax.SLASHSLASH_EQ: "//=",
	syntax.PERCENT_EQ:    "%=",
	syntax.AMP_EQ:        "&=",
	syntax.PIPE_EQ:       "|=",
	syntax.CIRCUMFLEX_EQ: "^=",
	syntax.LTLT_EQ:       "<<=",
	syntax.GTGT_EQ:       ">>=",
}

// unaryOps maps unary tokens to their symbols. A sign applied directly
// to a numeric literal folds into the literal and never reaches the
// operator list.
var unaryOps = map[syntax.Token]string{
	syntax.PLUS:  "+",
	syntax.MINUS: "-",
	syntax.NOT:   "not",
	syntax.TILDE: "~",
}
