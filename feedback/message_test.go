package feedback

import (
	"testing"

	"github.com/achronyme/achronyme/source"
	"github.com/stretchr/testify/assert"
)

func testFile() *source.File {
	contents := "let x = 1\nlet y = x +\n"
	return &source.File{
		Filename: "sample.ach",
		Contents: contents,
		Lines:    []string{"let x = 1\n", "let y = x +\n"},
	}
}

func TestErrorMakeRendersClassificationAndGutter(t *testing.T) {
	file := testFile()
	err := Error{
		Classification: CompileError,
		File:           file,
		What: Selection{
			Description: "expected an expression after '+'",
			Span: source.Span{
				Start: source.Pos{Line: 2, Col: 13},
				End:   source.Pos{Line: 2, Col: 13},
			},
		},
	}

	out := err.Make(false)
	assert.Contains(t, out, "compile error")
	assert.Contains(t, out, "sample.ach:2:13")
	assert.Contains(t, out, "expected an expression after '+'")
}

func TestWarningMakeUsesWarningHeader(t *testing.T) {
	file := testFile()
	w := Warning{
		Classification: SyntaxWarning,
		File:           file,
		What: Selection{
			Description: "unreachable code",
			Span: source.Span{
				Start: source.Pos{Line: 1, Col: 1},
				End:   source.Pos{Line: 1, Col: 1},
			},
		},
	}

	out := w.Make(false)
	assert.Contains(t, out, "warning:")
	assert.Contains(t, out, "unreachable code")
}
