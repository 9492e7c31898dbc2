package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineDiff(t *testing.T) {
	tests := []struct {
		name    string
		before  string
		after   string
		context int
		want    []DiffLine
	}{
		{
			name:    "identical",
			before:  "a\nb\n",
			after:   "a\nb\n",
			context: 1,
			want:    nil,
		},
		{
			name:    "middle line changed",
			before:  "a\nb\nc\nd\ne\n",
			after:   "a\nb\nX\nd\ne\n",
			context: 1,
			want: []DiffLine{
				{Op: DiffSkip},
				{Op: DiffContext, Text: "b"},
				{Op: DiffDelete, Text: "c"},
				{Op: DiffInsert, Text: "X"},
				{Op: DiffContext, Text: "d"},
				{Op: DiffSkip},
			},
		},
		{
			name:    "short context kept whole",
			before:  "a\nb\nc\n",
			after:   "a\nB\nc\n",
			context: 2,
			want: []DiffLine{
				{Op: DiffContext, Text: "a"},
				{Op: DiffDelete, Text: "b"},
				{Op: DiffInsert, Text: "B"},
				{Op: DiffContext, Text: "c"},
			},
		},
		{
			name:    "single line without newline",
			before:  "See [[from]].",
			after:   "See [[to]].",
			context: 3,
			want: []DiffLine{
				{Op: DiffDelete, Text: "See [[from]]."},
				{Op: DiffInsert, Text: "See [[to]]."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineDiff(tt.before, tt.after, tt.context))
		})
	}
}

func TestRenderer_RenderDiff(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, true)
	r.SetWriter(&buf)

	r.RenderDiff([]DiffLine{
		{Op: DiffContext, Text: "keep"},
		{Op: DiffDelete, Text: "old"},
		{Op: DiffInsert, Text: "new"},
		{Op: DiffSkip},
	})

	assert.Equal(t, "  keep\n- old\n+ new\n  ...\n", buf.String())
}
