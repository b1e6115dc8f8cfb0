package jsast

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

const (
	precLowest = iota
	precComma
	precAssign
	precConditional
	precLogicalOr
	precLogicalAnd
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precPrefix
	precPostfix
	precNew
	precCall
	precMember
	precPrimary
)

var binaryPrecedences = map[token.Token]int{
	token.LOGICAL_OR:           precLogicalOr,
	token.LOGICAL_AND:          precLogicalAnd,
	token.OR:                   precBitwiseOr,
	token.EXCLUSIVE_OR:         precBitwiseXor,
	token.AND:                  precBitwiseAnd,
	token.EQUAL:                precEquality,
	token.NOT_EQUAL:            precEquality,
	token.STRICT_EQUAL:         precEquality,
	token.STRICT_NOT_EQUAL:     precEquality,
	token.LESS:                 precRelational,
	token.GREATER:              precRelational,
	token.LESS_OR_EQUAL:        precRelational,
	token.GREATER_OR_EQUAL:     precRelational,
	token.INSTANCEOF:           precRelational,
	token.IN:                   precRelational,
	token.SHIFT_LEFT:           precShift,
	token.SHIFT_RIGHT:          precShift,
	token.UNSIGNED_SHIFT_RIGHT: precShift,
	token.PLUS:                 precAdditive,
	token.MINUS:                precAdditive,
	token.MULTIPLY:             precMultiplicative,
	token.SLASH:                precMultiplicative,
	token.REMAINDER:            precMultiplicative,
}

// binaryPrecedence falls back to the tightest binary level for operators
// outside the table so that both operands get parenthesized.
func binaryPrecedence(op token.Token) int {
	if prec, ok := binaryPrecedences[op]; ok {
		return prec
	}
	return precMultiplicative
}

func precedence(e ast.Expression) int {
	switch e := e.(type) {
	case *ast.SequenceExpression:
		return precComma
	case *ast.AssignExpression, *ast.SpreadElement:
		return precAssign
	case *ast.ConditionalExpression:
		return precConditional
	case *ast.BinaryExpression:
		return binaryPrecedence(e.Operator)
	case *ast.UnaryExpression:
		if e.Postfix {
			return precPostfix
		}
		return precPrefix
	case *ast.NewExpression:
		return precNew
	case *ast.CallExpression:
		return precCall
	case *ast.DotExpression, *ast.BracketExpression:
		return precMember
	case *ast.FunctionLiteral:
		// a function in callee or operand position must not start a statement
		return precAssign
	default:
		return precPrimary
	}
}
