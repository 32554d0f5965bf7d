// Package lang parses weft templates into an immutable AST.
//
// # Grammar
//
// A template is a sequence of lines. Blank lines and lines whose first
// non-space text is "//" are ignored. Each remaining line is one node;
// its indentation (two spaces per level) places it under the nearest
// preceding line one level shallower. A line may be indented at most one
// level deeper than the line before it.
//
//	Line       → Statement | Text | Tag
//	Statement  → '-' Keyword Operand*
//	Text       → '|' ' '? <verbatim text>
//	Tag        → Name? ('#' Id)? ('.' Class)* ('(' Attrs ')')? (' ' Content)?
//	Attrs      → (Key ('=' Quoted)?)* ('@' Action*)?
//	Action     → '{{' Event Target Method '}}'
//	Expr       → Number | Quoted | '[' Expr (',' Expr)* ']' | Path
//	Path       → Ident ('.' Ident)*
//
// Text and tag content may embed expressions in mustaches, "{{ expr }}".
// An attribute whose value is a single mustache may end in "!" to bind it
// two ways, or "!!" to also save the model on every change.
//
// # Statements
//
//	- if EXPR
//	- if-greater A B
//	- if-equal A B
//	- if-not-equal A B
//	- for VAR in EXPR
//	- for EXPR
//	- view NAME ARG...
//	- view ?NAME ARG...
//	- import NAME KEY=EXPR...
//	- content
//	- client
//
// # Example
//
//	html
//	  body.page
//	    h1#title {{ page.title }}
//	    - for item in items
//	      li(class="row {{ item.kind }}" @ {{click item select}}) {{ item.name }}
//	    - view user "42"
//	      input(value="{{ name }}!!")
//	    | plain text
//
// Nodes carry both literal content and children only by mistake; the parser
// rejects that case along with indentation jumps and unknown keywords, each
// reported as a [ParseError] naming the line.
package lang
