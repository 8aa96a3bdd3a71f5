package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  queryDirectives
	}{
		{
			name:  "no directives",
			query: "How often do licenses renew?",
			want:  queryDirectives{Query: "How often do licenses renew?"},
		},
		{
			name:  "state",
			query: "renewal rules state:co",
			want:  queryDirectives{Query: "renewal rules", Jurisdictions: []string{"CO"}},
		},
		{
			name:  "jurisdiction list",
			query: "jurisdiction:CO,MI testing requirements",
			want:  queryDirectives{Query: "testing requirements", Jurisdictions: []string{"CO", "MI"}},
		},
		{
			name:  "types lower-cased",
			query: "fees type:Licensing doctype:FEES",
			want:  queryDirectives{Query: "fees", DocumentTypes: []string{"licensing", "fees"}},
		},
		{
			name:  "duplicates collapse",
			query: "state:CO rules state:co,MI",
			want:  queryDirectives{Query: "rules", Jurisdictions: []string{"CO", "MI"}},
		},
		{
			name:  "hyphenated type",
			query: "labels type:child-resistant",
			want:  queryDirectives{Query: "labels", DocumentTypes: []string{"child-resistant"}},
		},
		{
			name:  "directive inside a word is text",
			query: "upstate:CO rules",
			want:  queryDirectives{Query: "upstate:CO rules"},
		},
		{
			name:  "only directives",
			query: "state:CO type:licensing",
			want:  queryDirectives{Query: "", Jurisdictions: []string{"CO"}, DocumentTypes: []string{"licensing"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDirectives(tt.query))
		})
	}
}

func TestAppendUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, appendUnique(nil, "a", "", "b", "a"))
	assert.Equal(t, []string{"x", "y"}, appendUnique([]string{"x"}, "x", "y"))
	assert.Nil(t, appendUnique(nil))
}
