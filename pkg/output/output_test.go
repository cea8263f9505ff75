package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func printer(f Format) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(f, false, true).WithWriters(&out, &errOut), &out, &errOut
}

func TestSuccessFormats(t *testing.T) {
	t.Parallel()
	result := map[string]any{"id": 7, "firstName": "Ada"}

	p, out, _ := printer(FormatJSON)
	require.NoError(t, p.Success(result))
	var resp api.Response[map[string]any]
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Ada", resp.Result["firstName"])

	p, out, _ = printer(FormatYAML)
	require.NoError(t, p.Success(result))
	assert.Equal(t, "firstName: Ada\nid: 7\n", out.String())

	p, out, _ = printer(FormatRaw)
	require.NoError(t, p.Success("plain"))
	assert.Equal(t, "plain\n", out.String())
}

func TestAPIErrorJSON(t *testing.T) {
	t.Parallel()
	p, out, _ := printer(FormatJSON)

	err := p.Error(&client.APIError{
		Kind:        client.KindHTTP,
		Status:      400,
		FieldErrors: []api.FieldError{{FieldName: "email", FieldError: "already in use"}},
	})
	assert.True(t, IsReported(err))

	var resp api.Response[any]
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, api.ErrValidation, resp.Error.Code)
	assert.Equal(t, 400, resp.Error.Status)
	assert.Equal(t, "some fields are invalid: email: already in use", resp.Error.Message)
	require.Len(t, resp.Error.FieldErrors, 1)
}

func TestErrorHuman(t *testing.T) {
	t.Parallel()
	p, _, errOut := printer(FormatHuman)

	err := p.Error(&client.APIError{Kind: client.KindHTTP, Status: 401})
	assert.True(t, IsReported(err))
	assert.Contains(t, errOut.String(), "error: authentication required")
	assert.Contains(t, errOut.String(), "tally login")

	errOut.Reset()
	plain := errors.New("boom")
	err = p.Error(plain)
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, "error: boom\n", errOut.String())
}

func TestTable(t *testing.T) {
	t.Parallel()
	p, out, _ := printer(FormatHuman)
	require.NoError(t, p.Table([]string{"ID", "Name"}, [][]string{{"1", "Ada"}, {"12", "Grace"}}))
	assert.Equal(t, "ID  Name   \n--  -----  \n1   Ada    \n12  Grace  \n", out.String())

	p, out, _ = printer(FormatJSON)
	require.NoError(t, p.Table([]string{"ID"}, [][]string{{"1"}}))
	assert.Empty(t, out.String())
}

func TestFieldsAndQuiet(t *testing.T) {
	t.Parallel()
	p, out, _ := printer(FormatHuman)
	p.Fields(map[string]any{"name": "Acme", "id": 3})
	assert.Equal(t, "id    3\nname  Acme\n", out.String())

	var buf bytes.Buffer
	q := New(FormatHuman, true, true).WithWriters(&buf, &buf)
	q.Printf("hidden\n")
	q.Done("hidden")
	assert.Empty(t, buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
