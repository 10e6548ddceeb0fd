package clinic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlProfile = `
name: Clinica Prueba
address: Calle Falsa 123
hours:
  - days: Lunes a Viernes
    hours: 9:00 - 18:00
services:
  - name: Odontologia General
payment_methods:
  - Efectivo
`

const jsonProfile = `{
  "name": "Clinica JSON",
  "address": "Av. Principal 456",
  "hours": [{"days": "Lunes a Sabado", "hours": "8:00 - 20:00"}],
  "services": [{"name": "Ortodoncia", "description": "Brackets"}]
}`

func writeTempProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfile_EmptyPathReturnsDefault(t *testing.T) {
	profile, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "Clinica Dental Arludent", profile.Name)
	assert.NotEmpty(t, profile.Services)
	assert.NotEmpty(t, profile.Hours)
}

func TestLoadProfile_YAML(t *testing.T) {
	path := writeTempProfile(t, "profile.yaml", yamlProfile)

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "Clinica Prueba", profile.Name)
	assert.Equal(t, "Calle Falsa 123", profile.Address)
	require.Len(t, profile.Services, 1)
	assert.Equal(t, "Odontologia General", profile.Services[0].Name)
}

func TestLoadProfile_JSON(t *testing.T) {
	path := writeTempProfile(t, "profile.json", jsonProfile)

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "Clinica JSON", profile.Name)
	require.Len(t, profile.Hours, 1)
	assert.Equal(t, "Lunes a Sabado", profile.Hours[0].Days)
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile("/does/not/exist.yaml")
	assert.ErrorIs(t, err, ErrFileNotFound("/does/not/exist.yaml"))
}

func TestLoadProfile_InvalidContent(t *testing.T) {
	path := writeTempProfile(t, "broken.yaml", "::: not valid {{{")

	_, err := LoadProfile(path)
	require.Error(t, err)
}

func TestLoadProfile_MissingRequiredField(t *testing.T) {
	path := writeTempProfile(t, "incomplete.yaml", "name: Sin Direccion\n")

	_, err := LoadProfile(path)
	assert.ErrorIs(t, err, ErrMissingField("address"))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("profile.json", nil))
	assert.Equal(t, FormatYAML, DetectFormat("profile.yaml", nil))
	assert.Equal(t, FormatYAML, DetectFormat("profile.yml", nil))
	assert.Equal(t, FormatJSON, DetectFormat("noext", []byte(`  {"a":1}`)))
	assert.Equal(t, FormatYAML, DetectFormat("noext", []byte("a: 1")))
}

func TestValidateProfile(t *testing.T) {
	valid := DefaultProfile()
	assert.NoError(t, ValidateProfile(valid))

	noServices := DefaultProfile()
	noServices.Services = nil
	assert.Error(t, ValidateProfile(noServices))

	noHours := DefaultProfile()
	noHours.Hours = nil
	assert.Error(t, ValidateProfile(noHours))
}
