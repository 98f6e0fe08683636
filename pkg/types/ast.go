package types

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types consumed by the evaluation driver.
const (
	// Literals
	NodeBoolean  NodeType = "boolean"
	NodeInteger  NodeType = "integer"
	NodeDecimal  NodeType = "decimal"
	NodeString   NodeType = "string"
	NodeDate     NodeType = "date"
	NodeDateTime NodeType = "dateTime"
	NodeTime     NodeType = "time"
	NodeNull     NodeType = "null" // {} empty collection literal

	// Navigation
	NodePath    NodeType = "path"    // LHS.RHS
	NodeName    NodeType = "name"    // identifier step
	NodeIndexer NodeType = "indexer" // LHS[RHS]

	// Operators
	NodeBinary NodeType = "binary" // StrValue holds the operator
	NodeUnary  NodeType = "unary"  // StrValue holds "-" or "+"
	NodeTypeOp NodeType = "typeop" // is/as; StrValue operator, RHS type name

	// Invocation and variables
	NodeFunction NodeType = "function" // StrValue name, Arguments exprs
	NodeVariable NodeType = "variable" // StrValue: "$this" or "%name"
)

// ASTNode represents a node in the Abstract Syntax Tree.
//
// The evaluation driver consumes this contract: literals carry their value
// in the typed fields, paths chain LHS/RHS, function invocations carry
// unevaluated argument expressions.
type ASTNode struct {
	Type      NodeType
	StrValue  string  // identifier, operator, function name, string/temporal literal
	NumValue  float64 // decimal literal value
	IntValue  int64   // integer literal value
	BoolValue bool    // boolean literal value
	Position  int

	LHS       *ASTNode
	RHS       *ASTNode
	Arguments []*ASTNode
}

// NewASTNode creates a new AST node of the specified type.
func NewASTNode(nodeType NodeType, position int) *ASTNode {
	return &ASTNode{Type: nodeType, Position: position}
}

// String returns the node type name.
func (n *ASTNode) String() string {
	return string(n.Type)
}
