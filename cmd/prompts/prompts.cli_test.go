package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-prompts"
)

const (
	testTemplate     = "Hello {{ name }}!"
	testDataJSON     = `{"name": "Alice"}`
	testExpected     = "Hello Alice!\n"
	testInvalid      = "Hello {{ name"
	testIndented     = "\n    First line\n      indented\n    last\n"
	testTokensYAML   = "models:\n  acme/model:\n    sequence: {begin: \"<go>\", end: \"<stop>\"}\n"
	testDataJSONC    = "{\n  // the user\n  \"name\": \"Carol\",\n}\n"
	testDataYAML     = "name: Dave\nwords: 5\n"
	testTokensHeader = "(default)"
)

// setupTestData creates template, data and token files in a temp directory
func setupTestData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"template.txt": testTemplate,
		"invalid.txt":  testInvalid,
		"indented.txt": testIndented,
		"data.json":    testDataJSON,
		"data.jsonc":   testDataJSONC,
		"data.yaml":    testDataYAML,
		"data.txt":     "name=x",
		"tokens.yaml":  testTokensYAML,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), FilePermissions))
	}
	return dir
}

// runCLI runs a command with isolated environment defaults
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(EnvModel, "")
	t.Setenv(EnvTokens, "")
	return runCLIWithEnv(stdin, args...)
}

func runCLIWithEnv(stdin string, args ...string) (int, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

// ==================== run() dispatch tests ====================

func TestRun_NoArgs_ShowsHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "")

	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, CLIName)
	for _, cmd := range []string{CmdNameRender, CmdNameNormalize, CmdNameValidate, CmdNameTokens, CmdNameSchema} {
		assert.Contains(t, stdout, cmd)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "frobnicate")

	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stdout, ErrMsgUnknownCommand)
	assert.Contains(t, stdout, "frobnicate")
}

func TestRun_HelpCommand(t *testing.T) {
	for cmd, usage := range commandHelp {
		t.Run(cmd, func(t *testing.T) {
			code, stdout, _ := runCLI(t, "", CmdNameHelp, cmd)
			assert.Equal(t, ExitCodeSuccess, code)
			assert.Contains(t, stdout, usage)
		})
	}
}

// ==================== render tests ====================

func TestRender(t *testing.T) {
	dir := setupTestData(t)
	tmpl := filepath.Join(dir, "template.txt")

	tests := []struct {
		name     string
		stdin    string
		args     []string
		expected string
	}{
		{"inline data", "", []string{"-t", tmpl, "-d", testDataJSON}, testExpected},
		{"long flags", "", []string{"--template", tmpl, "--data", testDataJSON}, testExpected},
		{"stdin template", testTemplate, []string{"-t", "-", "-d", `{"name": "Bob"}`}, "Hello Bob!\n"},
		{"json data file", "", []string{"-t", tmpl, "-f", filepath.Join(dir, "data.json")}, testExpected},
		{"jsonc data file", "", []string{"-t", tmpl, "-f", filepath.Join(dir, "data.jsonc")}, "Hello Carol!\n"},
		{"yaml data file", "", []string{"-t", tmpl, "-f", filepath.Join(dir, "data.yaml")}, "Hello Dave!\n"},
		{"integers stay integers", "{{ words }} words", []string{"-t", "-", "-d", `{"words": 50}`}, "50 words\n"},
		{"model tokens", "{{ bos }}{{ name }}{{ eos }}", []string{"-t", "-", "-d", testDataJSON, "-m", prompts.ModelGemma2}, "<bos>Alice<eos>\n"},
		{"custom token table", "{{ bos }}x{{ eos }}", []string{"-t", "-", "-m", "acme/model", "--tokens", filepath.Join(dir, "tokens.yaml")}, "<go>x<stop>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.stdin, append([]string{CmdNameRender}, tt.args...)...)
			require.Equal(t, ExitCodeSuccess, code, stderr)
			assert.Equal(t, tt.expected, stdout)
		})
	}
}

func TestRender_JSONOutput(t *testing.T) {
	code, stdout, _ := runCLI(t, "{{ bos }}hi", CmdNameRender, "-t", "-", "-m", prompts.ModelGemma2, "-o", OutputFormatJSON)
	require.Equal(t, ExitCodeSuccess, code)

	var out renderOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, prompts.ModelGemma2, out.Model)
	assert.Equal(t, "<bos>hi", out.Output)
}

func TestRender_UnknownModelWarns(t *testing.T) {
	code, stdout, stderr := runCLI(t, "{{ bos }}hi", CmdNameRender, "-t", "-", "-m", "acme/unknown")
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, "hi\n", stdout)
	assert.Contains(t, stderr, prompts.LogMsgUnknownModel)

	code, _, stderr = runCLI(t, "{{ bos }}hi", CmdNameRender, "-t", "-", "-m", "acme/unknown", "-q")
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Empty(t, stderr)
}

func TestRender_EnvDefaults(t *testing.T) {
	dir := setupTestData(t)
	t.Setenv(EnvModel, "acme/model")
	t.Setenv(EnvTokens, filepath.Join(dir, "tokens.yaml"))

	code, stdout, stderr := runCLIWithEnv("{{ bos }}x", CmdNameRender, "-t", "-")
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "<go>x\n", stdout)

	// Flags override the environment
	code, stdout, _ = runCLIWithEnv("{{ bos }}x", CmdNameRender, "-t", "-", "-m", prompts.ModelGemma2)
	require.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, "<bos>x\n", stdout)
}

func TestRender_Errors(t *testing.T) {
	dir := setupTestData(t)
	tmpl := filepath.Join(dir, "template.txt")

	tests := []struct {
		name   string
		stdin  string
		args   []string
		code   int
		errMsg string
	}{
		{"missing template flag", "", nil, ExitCodeUsageError, ErrMsgMissingTemplate},
		{"unknown flag", "", []string{"-t", tmpl, "--nope"}, ExitCodeUsageError, ErrMsgInvalidFlags},
		{"bad output format", "", []string{"-t", tmpl, "-o", "xml"}, ExitCodeUsageError, ErrMsgInvalidFormat},
		{"missing template file", "", []string{"-t", filepath.Join(dir, "missing.txt")}, ExitCodeInputError, ErrMsgReadFileFailed},
		{"invalid json", "", []string{"-t", tmpl, "-d", "{"}, ExitCodeInputError, ErrMsgInvalidData},
		{"data not an object", "", []string{"-t", tmpl, "-d", "[1, 2]"}, ExitCodeInputError, ErrMsgDataNotObject},
		{"unsupported data file", "", []string{"-t", tmpl, "-f", filepath.Join(dir, "data.txt")}, ExitCodeInputError, ErrMsgUnsupportedData},
		{"missing token table", "", []string{"-t", tmpl, "--tokens", filepath.Join(dir, "missing.yaml")}, ExitCodeInputError, ErrMsgLoadTokensFailed},
		{"missing variable", "", []string{"-t", tmpl}, ExitCodeError, ErrMsgRenderFailed},
		{"syntax error", testInvalid, []string{"-t", "-"}, ExitCodeError, prompts.ErrMsgTemplateSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.stdin, append([]string{CmdNameRender}, tt.args...)...)
			assert.Equal(t, tt.code, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.errMsg)
		})
	}
}

// ==================== normalize tests ====================

func TestNormalize(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, _ := runCLI(t, "", CmdNameNormalize, "-t", filepath.Join(dir, "indented.txt"))
	require.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, prompts.Normalize(testIndented)+"\n", stdout)
	assert.Equal(t, "First line\n  indented\nlast\n", stdout)

	code, stdout, _ = runCLI(t, "a \\\nb", CmdNameNormalize, "-t", "-")
	require.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, "a b\n", stdout)

	code, _, stderr := runCLI(t, "", CmdNameNormalize)
	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stderr, ErrMsgMissingTemplate)
}

// ==================== validate tests ====================

func TestValidate(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, _ := runCLI(t, "", CmdNameValidate, "-t", filepath.Join(dir, "template.txt"))
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, ValidateTextValid+"\n", stdout)

	code, stdout, _ = runCLI(t, "", CmdNameValidate, "-t", filepath.Join(dir, "invalid.txt"))
	assert.Equal(t, ExitCodeError, code)
	assert.Contains(t, stdout, prompts.ErrMsgTemplateSyntax)
}

func TestValidate_JSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "line one\n{% if x %}", CmdNameValidate, "-t", "-", "-F", OutputFormatJSON)
	assert.Equal(t, ExitCodeError, code)

	var out validateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.False(t, out.Valid)
	assert.NotEmpty(t, out.Error)
	assert.Positive(t, out.Line)

	code, stdout, _ = runCLI(t, testTemplate, CmdNameValidate, "-t", "-", "--format", OutputFormatJSON)
	assert.Equal(t, ExitCodeSuccess, code)
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.True(t, out.Valid)
}

func TestValidate_Usage(t *testing.T) {
	code, _, _ := runCLI(t, "", CmdNameValidate)
	assert.Equal(t, ExitCodeUsageError, code)

	code, _, _ = runCLI(t, "", CmdNameValidate, "-t", "-", "-F", "xml")
	assert.Equal(t, ExitCodeUsageError, code)
}

// ==================== tokens tests ====================

func TestTokens_List(t *testing.T) {
	code, stdout, _ := runCLI(t, "", CmdNameTokens)
	require.Equal(t, ExitCodeSuccess, code)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, len(prompts.DefaultTokenTable().Models())+1)
	assert.True(t, strings.HasPrefix(lines[0], testTokensHeader))
	assert.Contains(t, stdout, prompts.ModelGemma2)
	assert.Contains(t, stdout, `bos="<bos>"`)
}

func TestTokens_JSON(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, _ := runCLI(t, "", CmdNameTokens, "-F", OutputFormatJSON, "--tokens", filepath.Join(dir, "tokens.yaml"))
	require.Equal(t, ExitCodeSuccess, code)

	var out map[string]prompts.SpecialTokens
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "<go>", out["acme/model"].Sequence.Begin)
	assert.Equal(t, "<bos>", out[prompts.ModelGemma2].Sequence.Begin)
}

func TestTokens_Model(t *testing.T) {
	code, stdout, _ := runCLI(t, "", CmdNameTokens, "-m", prompts.ModelMistral7BInstruct, "-F", OutputFormatJSON)
	require.Equal(t, ExitCodeSuccess, code)

	var out prompts.SpecialTokens
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "[INST]", out.User.Begin)

	code, stdout, _ = runCLI(t, "", CmdNameTokens, "-m", prompts.ModelGemma2)
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, "<bos>")

	code, _, stderr := runCLI(t, "", CmdNameTokens, "-m", "acme/unknown")
	assert.Equal(t, ExitCodeError, code)
	assert.Contains(t, stderr, ErrMsgUnknownModel)
}

// ==================== schema tests ====================

func TestSchema(t *testing.T) {
	code, stdout, _ := runCLI(t, "", CmdNameSchema)
	require.Equal(t, ExitCodeSuccess, code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"name", "body", "params", "variants"} {
		assert.Contains(t, props, field)
	}
	assert.Contains(t, schema["required"], "name")

	code, _, _ = runCLI(t, "", CmdNameSchema, "--bogus")
	assert.Equal(t, ExitCodeUsageError, code)
}

func TestSchema_Check(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"good.yaml":    "name: greet\nparams:\n  - name: user\n  - name: tone\n    default: 3\nbody: Hi {{ user }}\n",
		"good.jsonc":   "{\n  // greeting\n  \"name\": \"greet\",\n  \"body\": \"Hi\",\n}\n",
		"no-body.yaml": "name: greet\n",
		"extra.yaml":   "name: greet\nbody: Hi\nunknown: true\n",
		"bad.toml":     "name = 'greet'\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), FilePermissions))
	}

	for _, name := range []string{"good.yaml", "good.jsonc"} {
		code, stdout, stderr := runCLI(t, "", CmdNameSchema, "-c", filepath.Join(dir, name))
		assert.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, ValidateTextValid+"\n", stdout)
	}

	for _, name := range []string{"no-body.yaml", "extra.yaml"} {
		code, stdout, _ := runCLI(t, "", CmdNameSchema, "--check", filepath.Join(dir, name))
		assert.Equal(t, ExitCodeError, code, name)
		assert.True(t, strings.HasPrefix(stdout, "invalid:"), stdout)
	}

	code, _, stderr := runCLI(t, "", CmdNameSchema, "-c", filepath.Join(dir, "bad.toml"))
	assert.Equal(t, ExitCodeInputError, code)
	assert.Contains(t, stderr, ErrMsgUnsupportedData)
}

// ==================== version tests ====================

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", CmdNameVersion)
	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, prompts.Version)

	code, stdout, _ = runCLI(t, "", CmdNameVersion, "-F", OutputFormatJSON)
	assert.Equal(t, ExitCodeSuccess, code)

	var out versionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, prompts.Version, out.Version)
	assert.Equal(t, prompts.VersionName, out.Name)

	code, _, _ = runCLI(t, "", CmdNameVersion, "-F", "xml")
	assert.Equal(t, ExitCodeUsageError, code)
}
