package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Monir-Ruet/authentication/internal/database"
)

func TestSchemaSanitization(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		want   string
	}{
		{"plain", "identity", "identity"},
		{"brackets stripped", "[identity]", "identity"},
		{"quotes stripped", `"identity"`, "identity"},
		{"mixed quoting", "['identity']", "identity"},
		{"backticks stripped", "`identity`", "identity"},
		{"empty falls back", "", "identity"},
		{"only quoting falls back", `[""]`, "identity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := database.New(nil, tc.schema)
			require.Equal(t, tc.want, db.Schema())
			require.Equal(t, tc.want+".users", db.Table("users"))
		})
	}
}
