package sandbox_test

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/chat"
	"github.com/iksnae/hospital-console/internal/sandbox"
	"github.com/iksnae/hospital-console/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = testutil.SandboxToken

func newSandbox(t *testing.T) (*api.Client, *sandbox.DB) {
	t.Helper()
	sb := testutil.NewSandbox(t)
	return sb.Client, sb.DB
}

func TestSandbox_Health(t *testing.T) {
	client, _ := newSandbox(t)
	h, err := client.Health(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, sandbox.Version, h.Version)
}

func TestSandbox_RejectsBadToken(t *testing.T) {
	client, _ := newSandbox(t)
	_, err := client.ListWards(context.Background(), "wrong")
	require.ErrorIs(t, err, api.ErrServer)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid token", apiErr.Message)
}

func TestSandbox_SeededData(t *testing.T) {
	client, _ := newSandbox(t)
	ctx := context.Background()

	users, err := client.ListUsers(ctx, token)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	wards, err := client.ListWards(ctx, token)
	require.NoError(t, err)
	require.Len(t, wards, 2)
	assert.Equal(t, "Cardiology", wards[0].Name)
	assert.Equal(t, 2, wards[0].Occupied)

	beds, err := client.ListBeds(ctx, token, api.BedFilter{WardID: wards[1].ID, Status: api.BedAvailable})
	require.NoError(t, err)
	assert.Len(t, beds, 2)

	logs, err := client.ListLogs(ctx, token, api.LogFilter{Level: "error"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "chatbot", logs[0].Source)

	limited, err := client.ListLogs(ctx, token, api.LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSandbox_CRUDThroughContainers(t *testing.T) {
	client, _ := newSandbox(t)
	a := app.New(client, token)
	ctx := context.Background()

	_, err := a.Wards.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, a.Wards.Items(), 2)

	capacity := 6
	ward, err := a.Wards.Create(ctx, api.WardInput{Name: "Maternity", Capacity: &capacity})
	require.NoError(t, err)
	assert.Len(t, a.Wards.Items(), 3)

	updated, err := a.Wards.Update(ctx, ward.ID, api.WardInput{Description: "Level 4"})
	require.NoError(t, err)
	assert.Equal(t, "Maternity", updated.Name)
	assert.Equal(t, "Level 4", updated.Description)

	bed, err := a.Beds.Create(ctx, api.BedInput{Number: "M-1", WardID: ward.ID})
	require.NoError(t, err)
	assert.Equal(t, api.BedAvailable, bed.Status)

	err = a.Wards.Delete(ctx, ward.ID)
	require.ErrorIs(t, err, api.ErrServer, "ward with beds cannot be deleted")
	assert.Equal(t, err, a.Wards.Err())
	assert.Len(t, a.Wards.Items(), 3)

	require.NoError(t, a.Beds.Delete(ctx, bed.ID))
	require.NoError(t, a.Wards.Delete(ctx, ward.ID))
	assert.Len(t, a.Wards.Items(), 2)

	_, err = a.Wards.Fetch(ctx, ward.ID)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "ward not found", apiErr.Message)
}

func TestSandbox_BedFilterThroughApp(t *testing.T) {
	client, _ := newSandbox(t)
	a := app.New(client, token)
	a.SetBedFilter(api.BedFilter{Status: api.BedOccupied})

	beds, err := a.Beds.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, beds, 3)
	for _, b := range beds {
		assert.Equal(t, api.BedOccupied, b.Status)
	}
}

func TestSandbox_ChatFlow(t *testing.T) {
	client, _ := newSandbox(t)
	a := app.New(client, token)
	defer a.Close()
	ctx := context.Background()

	draft := chat.NewDraft("How many beds are free?")
	res, err := a.Chat.Send(ctx, draft)
	require.NoError(t, err)
	assert.Empty(t, draft.Value())
	assert.Contains(t, res.Response, "**3** of 7 beds available")

	id := a.Chat.Active()
	require.NotEmpty(t, id)
	msgs := a.Chat.ActiveMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)

	_, err = a.Chat.Send(ctx, chat.NewDraft("and the wards?"))
	require.NoError(t, err)
	assert.Equal(t, id, a.Chat.Active(), "follow-up stays in the session")
	assert.Len(t, a.Chat.ActiveMessages(), 4)

	fetched, err := a.Chat.FetchConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a.Chat.ActiveMessages(), fetched)

	sessions, err := a.Chat.FetchSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].SessionID)
	assert.Equal(t, 4, sessions[0].MessageCount)
	assert.Equal(t, "How many beds are free?", sessions[0].Title)

	h, err := a.Chat.FetchPDF(ctx, id)
	require.NoError(t, err)
	data, err := h.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
	assert.True(t, bytes.HasSuffix(data, []byte("%%EOF\n")))

	require.NoError(t, a.Chat.Clear(ctx, id))
	assert.Empty(t, a.Chat.Active())
	assert.True(t, h.Revoked())

	_, err = a.Chat.FetchConversation(ctx, id)
	require.ErrorIs(t, err, api.ErrServer)
}

func TestSandbox_SendToUnknownSession(t *testing.T) {
	client, _ := newSandbox(t)
	a := app.New(client, token)
	a.Chat.Select("no-such-session")
	draft := chat.NewDraft("hello")

	_, err := a.Chat.Send(context.Background(), draft)
	require.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, "hello", draft.Value())
	assert.Equal(t, "no-such-session", a.Chat.Active())
}

func TestLoadSeed(t *testing.T) {
	path := testutil.WriteSeedFile(t, t.TempDir())

	seed, err := sandbox.LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Wards, 1)
	assert.Len(t, seed.Wards[0].Beds, 2)

	db, err := sandbox.Open("")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, seed.Apply(db))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wards)
	assert.Equal(t, 2, stats.Beds)
	assert.Equal(t, 1, stats.BedsByStatus[api.BedOccupied])
	assert.Equal(t, 1, stats.BedsByStatus[api.BedAvailable])
	assert.Equal(t, "ICU", stats.BusiestWard)
	assert.Equal(t, 1, stats.BusiestFree)
}

func TestLoadSeed_Missing(t *testing.T) {
	_, err := sandbox.LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
