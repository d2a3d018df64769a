package assets

import (
	"bytes"
	"testing"
	"text/template"

	"github.com/stretchr/testify/require"

	"github.com/qrioso-software/nodefn/internal/config"
)

func TestTemplateRendersValidConfig(t *testing.T) {
	file, err := Templates.ReadFile("templates/nodefn.tmpl.yml")
	require.NoError(t, err)

	tpl := template.Must(template.New("srv").Parse(string(file)))
	var buf bytes.Buffer
	require.NoError(t, tpl.Execute(&buf, struct {
		Service string
		Stage   string
		Region  string
	}{"demo", "dev", "us-east-1"}))

	cfg, err := config.Parse(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "src/index.ts", cfg.Functions["hello"].Entry)
}
