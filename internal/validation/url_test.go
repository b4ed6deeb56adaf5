package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		requireHTTPS bool
		wantErr      bool
	}{
		{"empty allowed", "", true, false},
		{"http", "http://localhost:5000", false, false},
		{"https with path", "https://eventapp.example.com/events", true, false},
		{"http in production", "http://eventapp.example.com", true, true},
		{"missing scheme", "eventapp.example.com", false, true},
		{"ftp scheme", "ftp://example.com", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := URL("web_url", tt.value, tt.requireHTTPS)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, IsFieldError(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStruct(t *testing.T) {
	type input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	require.NoError(t, Struct(input{Email: "a@b.com", Password: "pw"}))

	err := Struct(input{Email: "a@b.com"})
	var fe FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "password", fe.Field)
	require.Equal(t, "is required", fe.Message)

	err = Struct(input{Email: "nope", Password: "pw"})
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "email", fe.Field)
	require.Equal(t, "email: must be a valid email address", fe.Error())
}
