package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(format Format) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := NewFormatter(format, false, false)
	f.Writer = out
	f.ErrWriter = errOut
	return f, out, errOut
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter_PrintTable(t *testing.T) {
	data := TableData{
		Headers: []string{"KEY", "PATH"},
		Rows:    [][]string{{"main.js", "/static/main.js"}},
	}

	t.Run("table", func(t *testing.T) {
		f, out, _ := newTestFormatter(FormatTable)
		require.NoError(t, f.PrintTable(data))
		assert.Contains(t, out.String(), "KEY")
		assert.Contains(t, out.String(), "/static/main.js")
	})

	t.Run("no headers", func(t *testing.T) {
		f, out, _ := newTestFormatter(FormatTable)
		f.NoHeaders = true
		require.NoError(t, f.PrintTable(data))
		assert.NotContains(t, out.String(), "KEY")
	})

	t.Run("json", func(t *testing.T) {
		f, out, _ := newTestFormatter(FormatJSON)
		require.NoError(t, f.PrintTable(data))
		assert.JSONEq(t, `[{"key":"main.js","path":"/static/main.js"}]`, out.String())
	})

	t.Run("yaml", func(t *testing.T) {
		f, out, _ := newTestFormatter(FormatYAML)
		require.NoError(t, f.PrintTable(data))
		assert.Equal(t, "- key: main.js\n  path: /static/main.js\n", out.String())
	})
}

func TestFormatter_Quiet(t *testing.T) {
	f, out, errOut := newTestFormatter(FormatTable)
	f.Quiet = true

	f.PrintSuccess("done")
	f.PrintWarning("careful")
	require.NoError(t, f.Raw([]byte("{}")))
	require.NoError(t, f.Print(map[string]string{"a": "b"}))

	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestFormatter_Messages(t *testing.T) {
	f, out, errOut := newTestFormatter(FormatTable)

	f.PrintSuccess("wrote %s", "manifest.json")
	f.PrintWarning("legacy emit is ignored in %s mode", "watch")

	assert.Equal(t, "wrote manifest.json\n", out.String())
	assert.Equal(t, "Warning: legacy emit is ignored in watch mode\n", errOut.String())
}

func TestFormatter_Raw(t *testing.T) {
	f, out, _ := newTestFormatter(FormatTable)

	require.NoError(t, f.Raw([]byte(`{"a":"<b>"}`)))
	require.NoError(t, f.Raw([]byte("x\n")))

	assert.Equal(t, "{\"a\":\"<b>\"}\nx\n", out.String())
}

func TestFormatter_PrintJSONKeepsHTML(t *testing.T) {
	f, out, _ := newTestFormatter(FormatJSON)
	require.NoError(t, f.Print(map[string]string{"a": "<b>"}))
	assert.Equal(t, "{\n  \"a\": \"<b>\"\n}\n", out.String())
}
