package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageSpecifier(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{"1", []int{1}, false},
		{"1,3", []int{1, 3}, false},
		{"2-4", []int{2, 3, 4}, false},
		{" 1, 3-5 ,7", []int{1, 3, 4, 5, 7}, false},
		{"3,1-3", []int{1, 2, 3}, false},
		{"", nil, true},
		{"a", nil, true},
		{"5-2", nil, true},
		{"1-x", nil, true},
		{"99999-100000", []int{99999, 100000}, false},
		{"1-2000000000", nil, true},
		{"100001", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParsePageSpecifier(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePageNumbers(t *testing.T) {
	assert.NoError(t, ValidatePageNumbers([]int{1, 2}, 2))
	assert.Error(t, ValidatePageNumbers([]int{0}, 2))
	assert.Error(t, ValidatePageNumbers([]int{3}, 2))
}
