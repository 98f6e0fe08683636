// Package parser implements the FHIRPath lexer and parser.
//
// The parser is a hand-written recursive descent parser with operator
// precedence climbing. It produces [types.ASTNode] trees consumed by the
// evaluation driver; it performs no evaluation itself.
package parser

import (
	"strconv"
	"strings"

	"github.com/mooshifrew/fhirpath-go/pkg/types"
)

// Parser converts a token stream into an AST.
type Parser struct {
	lexer *Lexer
	tok   Token // current token
}

// Parse compiles a FHIRPath expression into an Expression.
func Parse(input string) (*types.Expression, error) {
	p := &Parser{lexer: NewLexer(input)}
	p.advance()

	ast, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenEOF {
		return nil, types.NewError(types.ErrSyntaxError,
			"unexpected token "+p.tok.Type.String(), p.tok.Position)
	}
	if err := p.lexer.Err(); err != nil {
		return nil, err
	}
	return types.NewExpression(ast, input), nil
}

// Binding powers, loosest to tightest, per the FHIRPath grammar.
const (
	bpImplies = iota + 1
	bpOr      // or, xor
	bpAnd
	bpMembership // in, contains
	bpEquality   // =, !=
	bpInequality // <, <=, >, >=
	bpUnion      // |
	bpType       // is, as
	bpAdditive   // +, -, &
	bpMultiplicative
	bpUnary
)

// infixOp maps the current token to a binary operator and its binding
// power. Word operators arrive as TokenName and are recognized here,
// which keeps them usable as ordinary path steps elsewhere.
func infixOp(tok Token) (string, int, bool) {
	switch tok.Type {
	case TokenPlus:
		return "+", bpAdditive, true
	case TokenMinus:
		return "-", bpAdditive, true
	case TokenConcat:
		return "&", bpAdditive, true
	case TokenMult:
		return "*", bpMultiplicative, true
	case TokenDiv:
		return "/", bpMultiplicative, true
	case TokenPipe:
		return "|", bpUnion, true
	case TokenEqual:
		return "=", bpEquality, true
	case TokenNotEqual:
		return "!=", bpEquality, true
	case TokenLess:
		return "<", bpInequality, true
	case TokenLessEqual:
		return "<=", bpInequality, true
	case TokenGreater:
		return ">", bpInequality, true
	case TokenGreaterEqual:
		return ">=", bpInequality, true
	case TokenName:
		switch tok.Value {
		case "implies":
			return "implies", bpImplies, true
		case "or", "xor":
			return tok.Value, bpOr, true
		case "and":
			return "and", bpAnd, true
		case "in", "contains":
			return tok.Value, bpMembership, true
		case "is", "as":
			return tok.Value, bpType, true
		case "div", "mod":
			return tok.Value, bpMultiplicative, true
		}
	}
	return "", 0, false
}

// parseExpression parses with precedence climbing. Path steps and
// indexers are postfix and bind tighter than any binary operator.
func (p *Parser) parseExpression(minBP int) (*types.ASTNode, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		// Postfix: path step and indexer bind tightest.
		switch p.tok.Type {
		case TokenDot:
			p.advance()
			step, err := p.parseStep()
			if err != nil {
				return nil, err
			}
			node := types.NewASTNode(types.NodePath, step.Position)
			node.LHS = left
			node.RHS = step
			left = node
			continue
		case TokenBracketOpen:
			pos := p.tok.Position
			p.advance()
			index, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenBracketClose); err != nil {
				return nil, err
			}
			node := types.NewASTNode(types.NodeIndexer, pos)
			node.LHS = left
			node.RHS = index
			left = node
			continue
		}

		op, bp, ok := infixOp(p.tok)
		if !ok || bp < minBP {
			return left, nil
		}
		pos := p.tok.Position
		p.advance()

		if op == "is" || op == "as" {
			typeName, err := p.parseTypeSpecifier()
			if err != nil {
				return nil, err
			}
			node := types.NewASTNode(types.NodeTypeOp, pos)
			node.StrValue = op
			node.LHS = left
			node.RHS = typeName
			left = node
			continue
		}

		right, err := p.parseExpression(bp + 1)
		if err != nil {
			return nil, err
		}
		node := types.NewASTNode(types.NodeBinary, pos)
		node.StrValue = op
		node.LHS = left
		node.RHS = right
		left = node
	}
}

// parsePrefix parses a term: literal, unary operator, variable, grouped
// expression, empty collection, identifier or function invocation.
func (p *Parser) parsePrefix() (*types.ASTNode, error) {
	tok := p.tok
	switch tok.Type {
	case TokenMinus, TokenPlus:
		p.advance()
		operand, err := p.parseExpression(bpUnary)
		if err != nil {
			return nil, err
		}
		node := types.NewASTNode(types.NodeUnary, tok.Position)
		node.StrValue = tok.Type.String()
		node.LHS = operand
		return node, nil

	case TokenNumber:
		p.advance()
		return numberNode(tok)

	case TokenString:
		p.advance()
		node := types.NewASTNode(types.NodeString, tok.Position)
		node.StrValue = tok.Value
		return node, nil

	case TokenBoolean:
		p.advance()
		node := types.NewASTNode(types.NodeBoolean, tok.Position)
		node.BoolValue = tok.Value == "true"
		return node, nil

	case TokenTemporal:
		p.advance()
		return temporalNode(tok)

	case TokenVariable:
		p.advance()
		node := types.NewASTNode(types.NodeVariable, tok.Position)
		node.StrValue = "$" + tok.Value
		return node, nil

	case TokenEnvVar:
		p.advance()
		node := types.NewASTNode(types.NodeVariable, tok.Position)
		node.StrValue = "%" + tok.Value
		return node, nil

	case TokenParenOpen:
		p.advance()
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenBraceOpen:
		// {} is the empty collection literal.
		p.advance()
		if err := p.expect(TokenBraceClose); err != nil {
			return nil, err
		}
		return types.NewASTNode(types.NodeNull, tok.Position), nil

	case TokenName, TokenNameEsc:
		return p.parseStep()

	case TokenError:
		return nil, types.NewError(types.ErrSyntaxError, tok.Value, tok.Position)
	}

	return nil, types.NewError(types.ErrSyntaxError,
		"unexpected token "+tok.Type.String(), tok.Position)
}

// parseStep parses an identifier path step or a function invocation.
func (p *Parser) parseStep() (*types.ASTNode, error) {
	tok := p.tok
	if tok.Type != TokenName && tok.Type != TokenNameEsc {
		return nil, types.NewError(types.ErrExpectedToken,
			"expected identifier, got "+tok.Type.String(), tok.Position)
	}
	p.advance()

	if p.tok.Type == TokenParenOpen {
		return p.parseFunctionCall(tok)
	}

	node := types.NewASTNode(types.NodeName, tok.Position)
	node.StrValue = tok.Value
	return node, nil
}

// parseFunctionCall parses "(" arguments ")" after a function name.
func (p *Parser) parseFunctionCall(name Token) (*types.ASTNode, error) {
	node := types.NewASTNode(types.NodeFunction, name.Position)
	node.StrValue = name.Value

	p.advance() // consume (
	if p.tok.Type == TokenParenClose {
		p.advance()
		return node, nil
	}
	for {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		node.Arguments = append(node.Arguments, arg)
		if p.tok.Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseTypeSpecifier parses the type name after is/as. Qualified names
// ("FHIR.Patient", "System.String") collapse to their last segment.
func (p *Parser) parseTypeSpecifier() (*types.ASTNode, error) {
	tok := p.tok
	if tok.Type != TokenName && tok.Type != TokenNameEsc {
		return nil, types.NewError(types.ErrExpectedToken,
			"expected type name, got "+tok.Type.String(), tok.Position)
	}
	name := tok.Value
	p.advance()
	for p.tok.Type == TokenDot {
		p.advance()
		if p.tok.Type != TokenName && p.tok.Type != TokenNameEsc {
			return nil, types.NewError(types.ErrExpectedToken,
				"expected type name segment", p.tok.Position)
		}
		name = p.tok.Value
		p.advance()
	}
	node := types.NewASTNode(types.NodeName, tok.Position)
	node.StrValue = name
	return node, nil
}

func numberNode(tok Token) (*types.ASTNode, error) {
	if strings.ContainsRune(tok.Value, '.') {
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, types.NewError(types.ErrNumberOutOfRange, tok.Value, tok.Position)
		}
		node := types.NewASTNode(types.NodeDecimal, tok.Position)
		node.NumValue = f
		return node, nil
	}
	i, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, types.NewError(types.ErrNumberOutOfRange, tok.Value, tok.Position)
	}
	node := types.NewASTNode(types.NodeInteger, tok.Position)
	node.IntValue = i
	return node, nil
}

// temporalNode classifies a temporal literal: @T... is a time, a literal
// containing 'T' is a dateTime, anything else is a date.
func temporalNode(tok Token) (*types.ASTNode, error) {
	lit := tok.Value
	switch {
	case strings.HasPrefix(lit, "T"):
		node := types.NewASTNode(types.NodeTime, tok.Position)
		node.StrValue = strings.TrimPrefix(lit, "T")
		return node, nil
	case strings.ContainsRune(lit, 'T'):
		node := types.NewASTNode(types.NodeDateTime, tok.Position)
		node.StrValue = strings.TrimSuffix(lit, "T")
		return node, nil
	default:
		node := types.NewASTNode(types.NodeDate, tok.Position)
		node.StrValue = lit
		return node, nil
	}
}

// expect consumes a token of the given type or fails.
func (p *Parser) expect(tt TokenType) error {
	if p.tok.Type != tt {
		return types.NewError(types.ErrExpectedToken,
			"expected "+tt.String()+", got "+p.tok.Type.String(), p.tok.Position)
	}
	p.advance()
	return nil
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.tok = p.lexer.Next()
}
