package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/app"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.csv")
	content := "topic,detail\nrefund,processed within 14 days\nshipping,free over $50\nreturns,30 day window\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return "file://" + path
}

func TestIngest(t *testing.T) {
	_, _, store := useFakes(t)

	out, err := execute(t, "", "ingest", writeCSV(t), "--file-id", "policy")

	require.NoError(t, err)
	assert.Contains(t, out, "stored batch 2/2")
	assert.Contains(t, out, "DOCUMENT_STORED")
	n, err := store.Count(context.Background(), "policy")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIngest_RequiresFileID(t *testing.T) {
	useFakes(t)

	_, err := execute(t, "", "ingest", "https://example.com/a.pdf")

	assert.ErrorContains(t, err, "file-id")
}

func TestIngest_UnsupportedType(t *testing.T) {
	useFakes(t)
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0600))

	_, err := execute(t, "", "ingest", "file://"+path, "--file-id", "img")

	assert.ErrorContains(t, err, "ingest failed")
}

func TestChat_WithQuestion(t *testing.T) {
	_, llm, _ := useFakes(t)
	_, err := execute(t, "", "ingest", writeCSV(t), "--file-id", "policy")
	require.NoError(t, err)

	out, err := execute(t, "", "chat", "--file-id", "policy", "How long do refunds take?")

	require.NoError(t, err)
	assert.Equal(t, "Refunds take 14 days.\n", out)
	assert.Contains(t, llm.systemPrompt(), "detail: processed within 14 days")
}

func TestChat_QuestionFromStdin(t *testing.T) {
	useFakes(t)

	out, err := execute(t, "  What is the refund window?\n", "chat", "--file-id", "policy")

	require.NoError(t, err)
	assert.Equal(t, "Refunds take 14 days.\n", out)
}

func TestChat_EmptyQuestion(t *testing.T) {
	useFakes(t)

	_, err := execute(t, "   \n", "chat", "--file-id", "policy")

	assert.ErrorContains(t, err, "no question given")
}

func TestChatCmd_Help(t *testing.T) {
	assert.Equal(t, "chat [question]", chatCmd.Use)
	assert.NotNil(t, chatCmd.Flags().Lookup("file-id"))
}

func TestServeCmd_Flags(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
}

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestStoreOverride(t *testing.T) {
	useFakes(t)
	var got string
	inner := appFactory
	SetAppFactory(func(ctx context.Context, opts app.Options) (*app.App, error) {
		got = string(opts.Settings.Store.Backend)
		return inner(ctx, opts)
	})

	_, err := execute(t, "", "--store", "memory", "chat", "--file-id", "policy", "hi")
	require.NoError(t, err)
	assert.Equal(t, "memory", got)

	_, err = execute(t, "", "--store", "redis", "chat", "--file-id", "policy", "hi")
	assert.ErrorContains(t, err, "unknown store")
}

func TestDelete(t *testing.T) {
	_, _, store := useFakes(t)
	_, err := execute(t, "", "ingest", writeCSV(t), "--file-id", "policy")
	require.NoError(t, err)

	out, err := execute(t, "", "delete", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted 3 chunks for "policy"`)

	n, err := store.Count(context.Background(), "policy")
	require.NoError(t, err)
	assert.Zero(t, n)

	out, err = execute(t, "", "delete", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "No chunks stored")
}
