package relink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeaf_Report(t *testing.T) {
	tests := []struct {
		name string
		leaf Leaf
		want string
	}{
		{
			name: "renamed",
			leaf: Leaf{Construct: "macrocall", Detail: "filter", From: "from here", To: "to there", Modified: true},
			want: "Renaming macrocall filter 'from here' to 'to there'",
		},
		{
			name: "impossible",
			leaf: Leaf{Construct: "prettylink", From: "a", To: "b]]", Impossible: true},
			want: "Cannot relink prettylink from 'a' to 'b]]'",
		},
		{
			name: "placeholder",
			leaf: Leaf{Construct: "html", Detail: "<$link to>", From: "a", To: `x'"`, Placeholder: true, Modified: true},
			want: "Renaming html <$link to> 'a' to 'x'\"' through a placeholder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, tt.leaf.Report())
		})
	}
}

func TestContainer_Failed(t *testing.T) {
	c := &Container{Construct: "wikitext"}
	assert.True(t, c.Empty())
	c.Add(&Leaf{Construct: "prettylink", Modified: true})
	assert.False(t, c.Failed())

	inner := &Container{Construct: "macrocall"}
	inner.Add(&Leaf{Construct: "macrocall", Impossible: true})
	c.Add(inner)
	c.Add(nil)

	assert.True(t, c.Failed())
	assert.Len(t, c.Children, 2)
	assert.Len(t, c.Report(), 2)
}

func TestLogger_Nil(t *testing.T) {
	var l *Logger
	l.Add(&Leaf{})
	assert.Nil(t, l.Entries())
}
