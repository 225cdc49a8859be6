package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimStrings(t *testing.T) {
	a, b := "  max  ", "\tmaria\n"
	TrimStrings(&a, &b)
	assert.Equal(t, "max", a)
	assert.Equal(t, "maria", b)
}

func TestTrimSlice(t *testing.T) {
	ss := []string{" one", "two ", " three "}
	TrimSlice(ss)
	assert.Equal(t, []string{"one", "two", "three"}, ss)
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AthleteID", "athlete_id"},
		{"BirthDate", "birth_date"},
		{"ParentID", "parent_id"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToSnakeCase(tt.in), tt.in)
	}
}
