package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"

	"github.com/passkeep/passkeep/config"
)

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	baseDir := fmt.Sprintf("/tmp/passkeep_ut_%s", ulid.Make().String())
	uut := config.DefaultAt(baseDir)

	assert.Equal(baseDir, uut.BaseDir)
	assert.Equal(filepath.Join(baseDir, config.DefaultVaultFileName), uut.VaultFile)
	assert.Equal(filepath.Join(baseDir, config.DefaultSaltFileName), uut.SaltFile)
	assert.Greater(uut.KDFIterations, 0)

	validate := validator.New()
	assert.Nil(uut.Validate(validate))

	// An incomplete configuration fails validation
	assert.NotNil(config.Config{BaseDir: baseDir}.Validate(validate))

	// EnsureBaseDir creates the directory owner-only
	assert.Nil(uut.EnsureBaseDir())
	info, err := os.Stat(baseDir)
	assert.Nil(err)
	assert.True(info.IsDir())
	assert.Equal(os.FileMode(0700), info.Mode().Perm())

	// Repeat calls are no-ops
	assert.Nil(uut.EnsureBaseDir())
}
