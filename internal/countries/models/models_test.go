package models

import (
	"encoding/json"
	"testing"

	dErrors "atlas/pkg/domain-errors"
	"atlas/pkg/platform/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryJSON(t *testing.T) {
	t.Run("reduced record omits extended fields but keeps empty timezone", func(t *testing.T) {
		raw, err := json.Marshal(Country{Name: "Antarctica", Code: "AQ", Timezone: []string{}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Antarctica","code":"AQ","flag":"","population":0,"region":"","capital":"","timezone":[]}`, string(raw))
	})

	t.Run("extended record carries languages with nativeName", func(t *testing.T) {
		raw, err := json.Marshal(Country{
			Code:      "DE",
			Timezone:  []string{"UTC+01:00"},
			Languages: []Language{{Name: "German", NativeName: "Deutschland"}},
			Borders:   []string{"AUT"},
		})
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"languages":[{"name":"German","nativeName":"Deutschland"}]`)
		assert.Contains(t, string(raw), `"borders":["AUT"]`)
	})
}

func TestSearchParams(t *testing.T) {
	p := SearchParams{Name: "  ger ", Timezone: "\tUTC+01"}
	p.Normalize()
	assert.Equal(t, SearchParams{Name: "ger", Timezone: "UTC+01"}, p)
	assert.False(t, p.Empty())
	assert.True(t, SearchParams{}.Empty())
}

func TestCodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    string
		wantErr bool
	}{
		{name: "alpha-2 lower case", code: " de ", want: "DE"},
		{name: "alpha-3", code: "deu", want: "DEU"},
		{name: "empty", code: "", wantErr: true},
		{name: "digits", code: "12", wantErr: true},
		{name: "too long", code: "DEUT", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &CodeRequest{Code: tt.code}
			err := httputil.PrepareRequest(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Code)
		})
	}
}
