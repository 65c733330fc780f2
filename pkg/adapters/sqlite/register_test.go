package sqlite

import (
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlite "modernc.org/sqlite"
)

func TestRegisterWith(t *testing.T) {
	tests := []struct {
		name    string
		fail    error
		wantErr string
	}{
		{name: "registered"},
		{name: "rejected", fail: errors.New("already registered"), wantErr: "register cosine_similarity: already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := registerWith(func(name string, nArg int32, _ func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)) error {
				got = append(got, name)
				assert.EqualValues(t, 2, nArg)
				return tt.fail
			})
			assert.Equal(t, []string{"cosine_similarity"}, got)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestOpen_ReportsRegistrationFailure(t *testing.T) {
	require.NoError(t, registerFunctions())

	registerErr = errors.New("register cosine_similarity: out of memory")
	t.Cleanup(func() { registerErr = nil })

	idx, err := Open(":memory:")
	assert.Nil(t, idx)
	assert.ErrorContains(t, err, "register cosine_similarity")
}
