package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTariffDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewTariffConfigHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "10", got.PerUnitRate().String())
	assert.Equal(t, "100", got.FixedChargeAmount().String())
}

func TestTariffFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yml")
	require.NoError(t, os.WriteFile(path, []byte("tariff:\n  perUnit: 12.5\n  fixedCharge: 80\n"), 0o600))

	holder, err := NewTariffConfigHolder(Config{TariffFilePath: path}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "12.5", got.PerUnitRate().String())
	assert.Equal(t, "80", got.FixedChargeAmount().String())
}

func TestTariffRejectsNegativeAmounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yml")
	require.NoError(t, os.WriteFile(path, []byte("tariff:\n  perUnit: -1\n  fixedCharge: 100\n"), 0o600))

	_, err := NewTariffConfigHolder(Config{TariffFilePath: path}, zap.NewNop())
	assert.Error(t, err)
}
