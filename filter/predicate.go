package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/rowfilter/ast"
)

// Operator compares a column with a value in a predicate.
type Operator int

const (
	OpEq Operator = iota
	OpGt
	OpLt
	OpNotEq
)

func (op Operator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpNotEq:
		return "<>"
	}
	return "Operator(" + strconv.Itoa(int(op)) + ")"
}

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidValueType    = errors.New("invalid value type")
	ErrInvalidColumn       = errors.New("invalid column name")
)

// ParseOperator parses an operator written as a symbol ("=", ">", "<", "<>", "!=")
// or a name ("eq", "gt", "lt", "ne").
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "eq", "":
		return OpEq, nil
	case ">", "gt":
		return OpGt, nil
	case "<", "lt":
		return OpLt, nil
	case "<>", "!=", "ne":
		return OpNotEq, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedOperator, "%q", s)
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Predicate builds the expression "column op value" for dialect d.
//
// Column is a column name or a dotted path of plain identifiers
// (letters, digits and underscores, not starting with a digit).
// Value is a Go integer, a finite float or a string.
// Only OpEq is supported.
//
// Every input is checked before anything is built,
// so an error never leaves a partial predicate behind.
func Predicate(d ast.Dialect, column string, op Operator, value any) (ast.Expr, error) {
	if op != OpEq {
		return nil, errors.Wrapf(ErrUnsupportedOperator, "%s", op)
	}

	parts := strings.Split(column, ".")
	for _, part := range parts {
		if !plainIdent.MatchString(part) {
			return nil, errors.Wrapf(ErrInvalidColumn, "%q", column)
		}
	}

	lit, err := literal(d, value)
	if err != nil {
		return nil, err
	}

	var left ast.Expr
	if len(parts) == 1 {
		left = &ast.Identifier{Name: ast.NewIdent(parts[0])}
	} else {
		left = &ast.CompoundIdentifier{Parts: ast.NewObjectName(parts...)}
	}
	return &ast.BinaryOp{Left: left, Op: ast.Eq, Right: lit}, nil
}

func literal(d ast.Dialect, value any) (*ast.Value, error) {
	switch v := value.(type) {
	case string:
		return ast.StringValue(v, d.BackslashEscapes()), nil
	case int:
		return ast.NumberValue(strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return ast.NumberValue(strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return ast.NumberValue(strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return ast.NumberValue(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return ast.NumberValue(strconv.FormatInt(v, 10)), nil
	case uint:
		return ast.NumberValue(strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return ast.NumberValue(strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return ast.NumberValue(strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return ast.NumberValue(strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return ast.NumberValue(strconv.FormatUint(v, 10)), nil
	case float32:
		return floatLiteral(float64(v), 32)
	case float64:
		return floatLiteral(v, 64)
	}
	return nil, errors.Wrapf(ErrInvalidValueType, "%T", value)
}

func floatLiteral(f float64, bits int) (*ast.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Wrapf(ErrInvalidValueType, "%v", f)
	}
	return ast.NumberValue(strconv.FormatFloat(f, 'g', -1, bits)), nil
}
