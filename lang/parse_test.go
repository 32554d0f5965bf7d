package lang

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_Tags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Node
	}{
		{
			name:  "default tag with id and classes",
			input: "#main.a.b",
			want: &Node{
				Kind: KindTag, Line: 1, Name: "div", ID: "main",
				Classes: []string{"a", "b"},
			},
		},
		{
			name:  "tag with content",
			input: "h1 Hello {{ user.name }}",
			want: &Node{
				Kind: KindTag, Line: 1, Name: "h1",
				Content: "Hello {{ user.name }}",
			},
		},
		{
			name:  "attributes",
			input: `a(href="/x" class='c {{k}}' hidden title="{{t}}")`,
			want: &Node{
				Kind: KindTag, Line: 1, Name: "a",
				Attrs: []Attr{
					{Name: "href", Value: "/x"},
					{Name: "class", Value: "c {{k}}", Kind: AttrInterpolated},
					{Name: "hidden"},
					{
						Name: "title", Value: "{{t}}", Kind: AttrPath,
						Expr: &Expr{Kind: ExprPath, Source: "t"},
					},
				},
			},
		},
		{
			name:  "bindings",
			input: `input(value="{{user.name}}!" checked="{{user.ok}}!!")`,
			want: &Node{
				Kind: KindTag, Line: 1, Name: "input",
				Attrs: []Attr{
					{
						Name: "value", Value: "{{user.name}}", Kind: AttrPath,
						Expr:    &Expr{Kind: ExprPath, Source: "user.name"},
						Binding: BindTwoWay,
					},
					{
						Name: "checked", Value: "{{user.ok}}", Kind: AttrPath,
						Expr:    &Expr{Kind: ExprPath, Source: "user.ok"},
						Binding: BindAutoSave,
					},
				},
			},
		},
		{
			name:  "actions",
			input: `button(type="button" @ {{click todo remove}} {{hover todo peek}}) x`,
			want: &Node{
				Kind: KindTag, Line: 1, Name: "button",
				Attrs: []Attr{{Name: "type", Value: "button"}},
				Actions: []Action{
					{Event: "click", Target: "todo", Method: "remove"},
					{Event: "hover", Target: "todo", Method: "peek"},
				},
				Content: "x",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if len(root.Children) != 1 {
				t.Fatalf("expected 1 node, got %d", len(root.Children))
			}

			if diff := cmp.Diff(tt.want, root.Children[0]); diff != "" {
				t.Errorf("node mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Statements(t *testing.T) {
	path := func(s string) Expr { return Expr{Kind: ExprPath, Source: s} }

	tests := []struct {
		name  string
		input string
		want  *Node
	}{
		{
			name:  "if",
			input: "- if user.admin",
			want: &Node{
				Kind: KindStatement, Keyword: KeywordIf,
				Args: []Expr{path("user.admin")},
			},
		},
		{
			name:  "if-equal",
			input: `- if-equal state "done"`,
			want: &Node{
				Kind: KindStatement, Keyword: KeywordIfEqual,
				Args: []Expr{path("state"), {Kind: ExprString, Source: `"done"`}},
			},
		},
		{
			name:  "for with variable",
			input: "- for item in [1, 2, 3]",
			want: &Node{
				Kind: KindStatement, Keyword: KeywordFor, Var: "item",
				Args: []Expr{{
					Kind: ExprArray, Source: "[1, 2, 3]",
					Items: []Expr{
						{Kind: ExprNumber, Source: "1"},
						{Kind: ExprNumber, Source: "2"},
						{Kind: ExprNumber, Source: "3"},
					},
				}},
			},
		},
		{
			name:  "for without variable",
			input: "- for todos",
			want: &Node{
				Kind: KindStatement, Keyword: KeywordFor,
				Args: []Expr{path("todos")},
			},
		},
		{
			name:  "required view",
			input: `- view user "42"`,
			want: &Node{
				Kind: KindStatement, Keyword: KeywordView, Name: "user",
				Args: []Expr{{Kind: ExprString, Source: `"42"`}},
			},
		},
		{
			name:  "optional view",
			input: "- view ?sidebar",
			want: &Node{
				Kind: KindStatement, Keyword: KeywordView, Name: "sidebar",
				Optional: true,
			},
		},
		{
			name:  "bare view",
			input: "- view",
			want: &Node{
				Kind: KindStatement, Keyword: KeywordView, Optional: true,
			},
		},
		{
			name:  "import",
			input: `- import card title="Hi there" n=3 who=user.name`,
			want: &Node{
				Kind: KindStatement, Keyword: KeywordImport, Name: "card",
				Params: []Param{
					{Name: "title", Value: Expr{Kind: ExprString, Source: `"Hi there"`}},
					{Name: "n", Value: Expr{Kind: ExprNumber, Source: "3"}},
					{Name: "who", Value: path("user.name")},
				},
			},
		},
		{
			name:  "content",
			input: "- content",
			want:  &Node{Kind: KindStatement, Keyword: KeywordContent},
		},
		{
			name:  "client",
			input: "- client",
			want:  &Node{Kind: KindStatement, Keyword: KeywordClient},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			tt.want.Line = 1

			if diff := cmp.Diff(tt.want, root.Children[0]); diff != "" {
				t.Errorf("node mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Nesting(t *testing.T) {
	input := strings.Join([]string{
		"// header comment",
		"ul",
		"",
		"  li one",
		"  li",
		"    | two",
		"    |  three",
		"p after",
	}, "\n")

	root, err := Parse(t.Context(), input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	want := &Node{
		Kind: KindTop,
		Children: []*Node{
			{
				Kind: KindTag, Line: 2, Name: "ul",
				Children: []*Node{
					{Kind: KindTag, Line: 4, Name: "li", Content: "one"},
					{
						Kind: KindTag, Line: 5, Name: "li",
						Children: []*Node{
							{Kind: KindText, Line: 6, Content: "two\n"},
							{Kind: KindText, Line: 7, Content: " three\n"},
						},
					},
				},
			},
			{Kind: KindTag, Line: 8, Name: "p", Content: "after"},
		},
	}

	if diff := cmp.Diff(want, root); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		want  error
	}{
		{
			name:  "two levels deeper",
			input: "div\n  p\n      span",
			line:  3,
			want:  ErrTooMuchIndentation,
		},
		{
			name:  "indented first line",
			input: "\n  div",
			line:  2,
			want:  ErrTooMuchIndentation,
		},
		{
			name:  "odd indentation",
			input: "div\n   p",
			line:  2,
			want:  ErrBadIndentation,
		},
		{
			name:  "tab indentation",
			input: "div\n\tp",
			line:  2,
			want:  ErrBadIndentation,
		},
		{
			name:  "content then children",
			input: "p hello\n  span",
			line:  2,
			want:  ErrContentAndChildren,
		},
		{
			name:  "text then children",
			input: "div\n  | text\n    span",
			line:  3,
			want:  ErrContentAndChildren,
		},
		{
			name:  "unknown keyword",
			input: "div\n  - loop items",
			line:  2,
			want:  ErrUnknownInstruction,
		},
		{
			name:  "if arity",
			input: "- if-equal a",
			line:  1,
			want:  ErrSyntax,
		},
		{
			name:  "unterminated mustache",
			input: "p {{ name",
			line:  1,
			want:  ErrUnterminated,
		},
		{
			name:  "malformed action",
			input: "button(@ {{click go}})",
			line:  1,
			want:  ErrSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(t.Context(), tt.input, WithFile("page.weft"))
			if err == nil {
				t.Fatal("expected parse error")
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}

			if pe.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, pe.Line)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}

			if !strings.HasPrefix(err.Error(), "page.weft:") {
				t.Errorf("expected file prefix, got %q", err.Error())
			}
		})
	}
}

func TestParse_UnknownInstructionHint(t *testing.T) {
	_, err := Parse(t.Context(), "- imprt card")

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}

	if got := pe.Hint(); got != "import" {
		t.Errorf("expected hint import, got %q", got)
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := "html\n  body\n    - for x in xs\n      p {{x}}\n    - view ?v\n      | t"

	a, err := Parse(t.Context(), input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	b, err := Parse(t.Context(), input)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if a == b {
		t.Error("expected distinct trees from uncached parses")
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("parses differ (-first +second):\n%s", diff)
	}
}
