package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/logistics/settlement/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add rate sync jobs", "add_rate_sync_jobs"},
		{"Add-Ledger-Index", "add_ledger_index"},
		{"ADD__PARTNER__NAME", "add_partner_name"},
		{"  spaces  ", "spaces"},
		{"drop!@# fk", "drop_fk"},
		{"курсы валют", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	first, err := CreateMigration(dir, "init settlement", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_settlement.up.sql"), first.UpPath)

	second, err := CreateMigration(dir, "add partner email", "Partners get a contact email")
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_partner_email.down.sql"), second.DownPath)

	up, err := os.ReadFile(second.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- 000002_add_partner_email (up)")
	assert.Contains(t, string(up), "-- Partners get a contact email")

	down, err := os.ReadFile(second.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(down)")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_add_index.up.sql":         {Data: []byte("--")},
		"000002_rates.up.sql":             {Data: []byte("--")},
		"000002_rates.down.sql":           {Data: []byte("--")},
		"000001_init.up.sql":              {Data: []byte("--")},
		"000001_init.down.sql":            {Data: []byte("--")},
		"README.md":                       {Data: []byte("docs")},
		"notes.sql":                       {Data: []byte("--")},
		"000003_bad.sideways.sql":         {Data: []byte("--")},
		"nested/000004_skipped.up.sql":    {Data: []byte("--")},
		"abc_not_a_version.up.sql":        {Data: []byte("--")},
		"000005_multi_part_name.down.sql": {Data: []byte("--")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: 1, Name: "init", HasDown: true},
		{Version: 2, Name: "rates", HasDown: true},
		{Version: 5, Name: "multi_part_name", HasDown: true},
		{Version: 10, Name: "add_index"},
	}, list)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, Migration{Version: 1, Name: "init_settlement", HasDown: true}, list[0])
	for i, m := range list {
		assert.EqualValues(t, i+1, m.Version, "versions must be contiguous")
		assert.True(t, m.HasDown, "migration %d has no down file", m.Version)
	}
}
